// Package meds answers symptom searches from a vector cache backed by OpenFDA.
package meds

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
)

var (
	ErrQueryRequired = errors.New("query is required")
	ErrNameRequired  = errors.New("medication name is required")
)

// Source values reported with search results.
const (
	SourceCache       = "cache"
	SourceNewlyCached = "fda-cached"
	SourceFDA         = "fda"
	SourceNone        = "none"
)

// LabelSource is the upstream label database.
type LabelSource interface {
	SearchMedications(ctx context.Context, terms []string, limit int) ([]meds.Medication, error)
	DrugInteractions(ctx context.Context, name string) ([]string, error)
}

// History records similarity queries. Implemented by *store.DB.
type History interface {
	UpsertMedication(ctx context.Context, m meds.Medication) error
	RecordQuery(ctx context.Context, query string, hits []meds.SearchHit) (meds.QueryRecord, error)
}

// SearchResult is the answer to one symptom search.
type SearchResult struct {
	Query  string           `json:"query"`
	Source string           `json:"source"`
	Hits   []meds.SearchHit `json:"hits"`
}

// Service coordinates the cache, the label source and the history.
type Service struct {
	labels    LabelSource
	cache     *Cache
	history   History
	logger    *zap.Logger
	limit     int
	threshold float32
}

// NewService wires the lookup. history may be nil.
func NewService(labels LabelSource, cache *Cache, history History, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		labels:    labels,
		cache:     cache,
		history:   history,
		logger:    logger,
		limit:     DefaultSearchLimit,
		threshold: DefaultThreshold,
	}
}

// Search looks in the cache first. On a miss it asks OpenFDA, caches what it
// got and searches again; if the cache still has nothing above the threshold
// the raw OpenFDA results are returned with zero similarity.
func (s *Service) Search(ctx context.Context, query string) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, ErrQueryRequired
	}
	result := SearchResult{Query: query, Source: SourceNone, Hits: []meds.SearchHit{}}

	hits, err := s.findSimilar(ctx, query)
	if err != nil {
		return SearchResult{}, err
	}
	if len(hits) > 0 {
		result.Source = SourceCache
		result.Hits = hits
		return result, nil
	}

	s.logger.Debug("no cached medications matched, querying openfda", zap.String("query", query))
	found, err := s.labels.SearchMedications(ctx, []string{query}, s.limit)
	if err != nil {
		return SearchResult{}, fmt.Errorf("search openfda: %w", err)
	}
	if len(found) == 0 {
		return result, nil
	}

	cached := s.cacheMedications(ctx, found)
	if cached > 0 {
		hits, err = s.findSimilar(ctx, query)
		if err != nil {
			return SearchResult{}, err
		}
		if len(hits) > 0 {
			result.Source = SourceNewlyCached
			result.Hits = hits
			return result, nil
		}
	}

	result.Source = SourceFDA
	result.Hits = make([]meds.SearchHit, 0, len(found))
	for _, m := range found {
		result.Hits = append(result.Hits, meds.SearchHit{Medication: m})
	}
	return result, nil
}

// Interactions returns the label's interaction paragraphs for name.
func (s *Service) Interactions(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	out, err := s.labels.DrugInteractions(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("lookup interactions: %w", err)
	}
	return out, nil
}

// CachedCount reports how many medications the cache holds.
func (s *Service) CachedCount() int {
	return s.cache.Count()
}

// cacheMedications indexes each medication, skipping those that fail, and
// returns how many were stored.
func (s *Service) cacheMedications(ctx context.Context, found []meds.Medication) int {
	var cached int
	for _, m := range found {
		if s.history != nil {
			if err := s.history.UpsertMedication(ctx, m); err != nil {
				s.logger.Warn("error caching medication", zap.String("brand", m.BrandName), zap.Error(err))
				continue
			}
		}
		if err := s.cache.Upsert(ctx, m); err != nil {
			s.logger.Warn("error caching medication", zap.String("brand", m.BrandName), zap.Error(err))
			continue
		}
		cached++
	}
	return cached
}

func (s *Service) findSimilar(ctx context.Context, query string) ([]meds.SearchHit, error) {
	hits, err := s.cache.Search(ctx, query, s.limit, s.threshold)
	if err != nil {
		return nil, fmt.Errorf("search cache: %w", err)
	}

	if s.history != nil {
		if _, err := s.history.RecordQuery(ctx, query, hits); err != nil {
			s.logger.Warn("failed to record query history", zap.String("query", query), zap.Error(err))
		}
	}
	return hits, nil
}

// Warm indexes medications persisted by an earlier run when the cache is empty.
func (s *Service) Warm(ctx context.Context, items []meds.Medication) error {
	if s.cache.Count() > 0 || len(items) == 0 {
		return nil
	}
	if err := s.cache.Upsert(ctx, items...); err != nil {
		return err
	}
	s.logger.Info("warmed medication cache", zap.Int("count", len(items)))
	return nil
}
