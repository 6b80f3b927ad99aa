package meds

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
	"github.com/zhouzirui/healthcare-site/backend/internal/store"
)

type fakeLabels struct {
	results      []meds.Medication
	interactions []string
	err          error
	searches     atomic.Int32
	gotTerms     []string
}

func (f *fakeLabels) SearchMedications(_ context.Context, terms []string, _ int) ([]meds.Medication, error) {
	f.searches.Add(1)
	f.gotTerms = terms
	return f.results, f.err
}

func (f *fakeLabels) DrugInteractions(_ context.Context, _ string) ([]string, error) {
	return f.interactions, f.err
}

func newTestService(t *testing.T, labels LabelSource) (*Service, *store.DB) {
	t.Helper()
	db, err := store.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache, err := NewMemoryCache(NewHashEmbedder(0))
	require.NoError(t, err)
	return NewService(labels, cache, db, nil), db
}

func TestSearchMissFetchesCachesAndSearchesAgain(t *testing.T) {
	ctx := context.Background()
	labels := &fakeLabels{results: []meds.Medication{imitrex, tylenol}}
	svc, db := newTestService(t, labels)

	res, err := svc.Search(ctx, "  migraine ")
	require.NoError(t, err)
	assert.Equal(t, SourceNewlyCached, res.Source)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, imitrex, res.Hits[0].Medication)
	assert.Equal(t, []string{"migraine"}, labels.gotTerms)
	assert.Equal(t, 2, svc.CachedCount())

	n, err := db.CountMedications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err = svc.Search(ctx, "migraine")
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, int32(1), labels.searches.Load())

	history, err := db.RecentQueries(ctx, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, 1, history[0].ResultsCount)
	assert.Equal(t, 1, history[1].ResultsCount)
	assert.Equal(t, 0, history[2].ResultsCount)
}

func TestSearchFallsBackToFDAResults(t *testing.T) {
	labels := &fakeLabels{results: []meds.Medication{tylenol}}
	svc, _ := newTestService(t, labels)

	res, err := svc.Search(context.Background(), "insomnia")
	require.NoError(t, err)
	assert.Equal(t, SourceFDA, res.Source)
	require.Len(t, res.Hits, 1)
	assert.Equal(t, tylenol, res.Hits[0].Medication)
	assert.Zero(t, res.Hits[0].Similarity)
}

func TestSearchNothingFound(t *testing.T) {
	svc, _ := newTestService(t, &fakeLabels{})

	res, err := svc.Search(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Equal(t, SourceNone, res.Source)
	assert.NotNil(t, res.Hits)
	assert.Empty(t, res.Hits)
}

func TestSearchErrors(t *testing.T) {
	svc, _ := newTestService(t, &fakeLabels{err: ErrFDARequest})

	_, err := svc.Search(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrQueryRequired)

	_, err = svc.Search(context.Background(), "migraine")
	assert.ErrorIs(t, err, ErrFDARequest)
}

func TestInteractions(t *testing.T) {
	svc, _ := newTestService(t, &fakeLabels{interactions: []string{"MAO inhibitors"}})

	out, err := svc.Interactions(context.Background(), "Imitrex")
	require.NoError(t, err)
	assert.Equal(t, []string{"MAO inhibitors"}, out)

	_, err = svc.Interactions(context.Background(), " ")
	assert.ErrorIs(t, err, ErrNameRequired)

	failing, _ := newTestService(t, &fakeLabels{err: errors.New("down")})
	_, err = failing.Interactions(context.Background(), "Imitrex")
	assert.ErrorContains(t, err, "down")
}

func TestWarmLoadsPersistedMedications(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeLabels{})

	require.NoError(t, svc.Warm(ctx, []meds.Medication{imitrex}))
	assert.Equal(t, 1, svc.CachedCount())

	require.NoError(t, svc.Warm(ctx, []meds.Medication{tylenol}))
	assert.Equal(t, 1, svc.CachedCount())
}
