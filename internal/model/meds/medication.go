package meds

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Placeholders used when an OpenFDA label omits a field.
const (
	UnknownName      = "Unknown"
	NoIndication     = "No indication available"
	NoWarnings       = "No warnings available"
	NoDosage         = "No dosage information available"
	NoInteractionMsg = "No interaction information available"
)

var medicationNamespace = uuid.MustParse("6f1c6d1e-8a43-4a57-9f0c-2d4b7c1a9e55")

// Medication is the summary kept for one drug label.
type Medication struct {
	BrandName   string `json:"brandName"`
	GenericName string `json:"genericName"`
	Indications string `json:"indications"`
	Warnings    string `json:"warnings"`
	Dosage      string `json:"dosage"`
}

// ID derives a stable identifier from (brand, generic), the cache's unique key.
func (m Medication) ID() string {
	key := strings.ToLower(m.BrandName) + "\x00" + strings.ToLower(m.GenericName)
	return uuid.NewSHA1(medicationNamespace, []byte(key)).String()
}

// EmbeddingText is the text a medication is indexed under.
func (m Medication) EmbeddingText() string {
	return m.BrandName + " " + m.GenericName + " " + m.Indications
}

// SearchHit pairs a cached medication with its similarity to the query.
type SearchHit struct {
	Medication Medication `json:"medication"`
	Similarity float32    `json:"similarity"`
}

// QueryRecord is one entry of the search history.
type QueryRecord struct {
	ID           string    `json:"id"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"resultsCount"`
	CreatedAt    time.Time `json:"createdAt"`
}
