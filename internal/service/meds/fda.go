package meds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
)

// DefaultSearchLimit is the number of labels requested per symptom search.
const DefaultSearchLimit = 5

// ErrFDARequest marks a failed OpenFDA call.
var ErrFDARequest = errors.New("openfda request failed")

// FDAClient queries the OpenFDA drug label endpoint.
type FDAClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewFDAClient creates a client; baseURL is the drug API root, e.g. https://api.fda.gov/drug.
func NewFDAClient(baseURL, apiKey string) *FDAClient {
	return &FDAClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type labelResponse struct {
	Results []label `json:"results"`
}

type label struct {
	OpenFDA struct {
		BrandName   []string `json:"brand_name"`
		GenericName []string `json:"generic_name"`
	} `json:"openfda"`
	IndicationsAndUsage     []string `json:"indications_and_usage"`
	Warnings                []string `json:"warnings"`
	DosageAndAdministration []string `json:"dosage_and_administration"`
	DrugInteractions        []string `json:"drug_interactions"`
}

func first(values []string, fallback string) string {
	if len(values) == 0 {
		return fallback
	}
	return values[0]
}

func (l label) medication() meds.Medication {
	return meds.Medication{
		BrandName:   first(l.OpenFDA.BrandName, meds.UnknownName),
		GenericName: first(l.OpenFDA.GenericName, meds.UnknownName),
		Indications: first(l.IndicationsAndUsage, meds.NoIndication),
		Warnings:    first(l.Warnings, meds.NoWarnings),
		Dosage:      first(l.DosageAndAdministration, meds.NoDosage),
	}
}

// phraseEscaper keeps user text inside a quoted Lucene phrase.
var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// SearchMedications finds labels whose indications mention every term.
func (c *FDAClient) SearchMedications(ctx context.Context, terms []string, limit int) ([]meds.Medication, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, phraseEscaper.Replace(term))
	}
	search := fmt.Sprintf(`indications_and_usage:"%s"`, strings.Join(quoted, " AND "))

	labels, err := c.queryLabels(ctx, search, limit)
	if err != nil {
		return nil, err
	}

	out := make([]meds.Medication, 0, len(labels))
	for _, l := range labels {
		out = append(out, l.medication())
	}
	return out, nil
}

// DrugInteractions returns the interaction paragraphs of the first label
// matching name as brand or generic name.
func (c *FDAClient) DrugInteractions(ctx context.Context, name string) ([]string, error) {
	name = phraseEscaper.Replace(name)
	search := fmt.Sprintf(`openfda.brand_name:"%s" OR openfda.generic_name:"%s"`, name, name)

	labels, err := c.queryLabels(ctx, search, 1)
	if err != nil {
		return nil, err
	}
	if len(labels) == 0 || len(labels[0].DrugInteractions) == 0 {
		return []string{meds.NoInteractionMsg}, nil
	}
	return labels[0].DrugInteractions, nil
}

func (c *FDAClient) queryLabels(ctx context.Context, search string, limit int) ([]label, error) {
	params := url.Values{}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	params.Set("search", search)
	params.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/label.json?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFDARequest, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFDARequest, err)
	}
	defer resp.Body.Close()

	// OpenFDA answers 404 when nothing matches.
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", ErrFDARequest, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var decoded labelResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", ErrFDARequest, err)
	}
	return decoded.Results, nil
}
