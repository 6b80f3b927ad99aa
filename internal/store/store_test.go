package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUpsertMedicationUpdatesExistingPair(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	m := meds.Medication{BrandName: "Imitrex", GenericName: "sumatriptan", Indications: "migraine"}
	require.NoError(t, db.UpsertMedication(ctx, m))

	m.Indications = "acute migraine with or without aura"
	require.NoError(t, db.UpsertMedication(ctx, m))

	n, err := db.CountMedications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all, err := db.ListMedications(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, m, all[0])
}

func TestRecordQueryStoresRankedResults(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first := meds.Medication{BrandName: "Imitrex", GenericName: "sumatriptan"}
	second := meds.Medication{BrandName: "Maxalt", GenericName: "rizatriptan"}
	require.NoError(t, db.UpsertMedication(ctx, first))
	require.NoError(t, db.UpsertMedication(ctx, second))

	rec, err := db.RecordQuery(ctx, "migraine", []meds.SearchHit{
		{Medication: first, Similarity: 0.9},
		{Medication: second, Similarity: 0.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, rec.ResultsCount)

	ids, err := db.QueryResults(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID(), second.ID()}, ids)

	_, err = db.RecordQuery(ctx, "drowsiness", nil)
	require.NoError(t, err)

	recent, err := db.RecentQueries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "drowsiness", recent[0].Query)
	assert.Equal(t, 0, recent[0].ResultsCount)
	assert.Equal(t, "migraine", recent[1].Query)
}

func TestRecordQueryRejectsUnknownMedication(t *testing.T) {
	db := openTestDB(t)

	_, err := db.RecordQuery(context.Background(), "migraine", []meds.SearchHit{
		{Medication: meds.Medication{BrandName: "Ghost", GenericName: "none"}, Similarity: 0.4},
	})
	require.Error(t, err)

	recent, err := db.RecentQueries(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meds.db")
	db, err := Open(path)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, path, db.Path())
	assert.FileExists(t, path)
}
