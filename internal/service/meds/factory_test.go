package meds

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/healthcare-site/backend/internal/config"
	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
)

func TestOpenReindexesPersistedMedications(t *testing.T) {
	dir := t.TempDir()
	cfg := config.MedsConfig{
		FDABaseURL:        "http://127.0.0.1:0",
		EmbeddingProvider: "hash",
		DataDir:           dir,
	}

	svc, db, err := Open(t.Context(), cfg, config.AIConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, svc.CachedCount())

	require.NoError(t, db.UpsertMedication(t.Context(), meds.Medication{
		BrandName:   "Advil",
		GenericName: "ibuprofen",
		Indications: "temporarily relieves minor aches and pains due to headache",
	}))
	require.NoError(t, db.Close())

	// drop the vector store so the next start has to rebuild it
	require.NoError(t, os.RemoveAll(filepath.Join(dir, "vectors")))

	svc, db, err = Open(t.Context(), cfg, config.AIConfig{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	assert.Equal(t, 1, svc.CachedCount())
}

func TestOpenRejectsUnknownEmbedder(t *testing.T) {
	_, _, err := Open(t.Context(), config.MedsConfig{
		EmbeddingProvider: "word2vec",
		DataDir:           t.TempDir(),
	}, config.AIConfig{}, nil)
	assert.Error(t, err)
}
