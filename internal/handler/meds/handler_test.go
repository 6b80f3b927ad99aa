package meds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	medsModel "github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
	medsService "github.com/zhouzirui/healthcare-site/backend/internal/service/meds"
)

type stubSearcher struct {
	result       medsService.SearchResult
	interactions []string
	err          error
	gotName      string
}

func (s *stubSearcher) Search(_ context.Context, query string) (medsService.SearchResult, error) {
	if s.err != nil {
		return medsService.SearchResult{}, s.err
	}
	if query == "" {
		return medsService.SearchResult{}, medsService.ErrQueryRequired
	}
	res := s.result
	res.Query = query
	return res, nil
}

func (s *stubSearcher) Interactions(_ context.Context, name string) ([]string, error) {
	s.gotName = name
	return s.interactions, s.err
}

type stubHistory struct {
	records  []medsModel.QueryRecord
	gotLimit int
}

func (s *stubHistory) RecentQueries(_ context.Context, limit int) ([]medsModel.QueryRecord, error) {
	s.gotLimit = limit
	return s.records, nil
}

func serve(h *Handler, path string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
	return resp
}

func TestSearch(t *testing.T) {
	svc := &stubSearcher{result: medsService.SearchResult{
		Source: medsService.SourceCache,
		Hits: []medsModel.SearchHit{{
			Medication: medsModel.Medication{BrandName: "Imitrex"},
			Similarity: 0.8,
		}},
	}}

	resp := serve(New(svc, nil, nil), "/medications/search?q=migraine")
	require.Equal(t, http.StatusOK, resp.Code)

	var body medsService.SearchResult
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "migraine", body.Query)
	assert.Equal(t, "cache", body.Source)
	require.Len(t, body.Hits, 1)
	assert.Equal(t, "Imitrex", body.Hits[0].Medication.BrandName)
}

func TestSearchRequiresQuery(t *testing.T) {
	resp := serve(New(&stubSearcher{}, nil, nil), "/medications/search")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSearchUpstreamFailure(t *testing.T) {
	svc := &stubSearcher{err: fmt.Errorf("search openfda: %w", medsService.ErrFDARequest)}
	resp := serve(New(svc, nil, nil), "/medications/search?q=migraine")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)

	svc = &stubSearcher{err: errors.New("disk full")}
	resp = serve(New(svc, nil, nil), "/medications/search?q=migraine")
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.NotContains(t, resp.Body.String(), "disk full")
}

func TestInteractions(t *testing.T) {
	svc := &stubSearcher{interactions: []string{"MAO inhibitors"}}
	resp := serve(New(svc, nil, nil), "/medications/Imitrex/interactions")
	require.Equal(t, http.StatusOK, resp.Code)

	assert.JSONEq(t, `{"name":"Imitrex","interactions":["MAO inhibitors"]}`, resp.Body.String())
	assert.Equal(t, "Imitrex", svc.gotName)
}

func TestUnconfigured(t *testing.T) {
	h := New(nil, nil, nil)
	for _, path := range []string{"/medications/search?q=x", "/medications/x/interactions", "/medications/history"} {
		assert.Equal(t, http.StatusServiceUnavailable, serve(h, path).Code, path)
	}
}

func TestHistory(t *testing.T) {
	history := &stubHistory{records: []medsModel.QueryRecord{{ID: "q1", Query: "migraine", ResultsCount: 2}}}
	h := New(&stubSearcher{}, history, nil)

	resp := serve(h, "/medications/history?limit=5")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, history.gotLimit)

	var records []medsModel.QueryRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "migraine", records[0].Query)

	assert.Equal(t, http.StatusBadRequest, serve(h, "/medications/history?limit=abc").Code)
}
