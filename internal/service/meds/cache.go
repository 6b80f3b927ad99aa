package meds

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/zhouzirui/healthcare-site/backend/internal/model/meds"
)

const (
	collectionName = "medications"

	// DefaultThreshold drops hits whose cosine similarity is not above it.
	DefaultThreshold float32 = 0.3
)

// Cache is the vector index over cached medications.
type Cache struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   Embedder

	// chromem's Count and Query are not atomic with respect to each other
	mu sync.RWMutex
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(embedder Embedder) (*Cache, error) {
	return newCache(chromem.NewDB(), embedder)
}

// NewPersistentCache stores the index under dir and reloads it on start.
func NewPersistentCache(dir string, embedder Embedder) (*Cache, error) {
	db, err := chromem.NewPersistentDB(dir, true)
	if err != nil {
		return nil, fmt.Errorf("open vector cache: %w", err)
	}
	return newCache(db, embedder)
}

func newCache(db *chromem.DB, embedder Embedder) (*Cache, error) {
	col, err := db.GetOrCreateCollection(collectionName, map[string]string{"embedder": embedder.Name()}, ToChromemFunc(embedder))
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}
	return &Cache{db: db, collection: col, embedder: embedder}, nil
}

// Upsert indexes medications; an existing (brand, generic) entry is replaced.
func (c *Cache) Upsert(ctx context.Context, items ...meds.Medication) error {
	if len(items) == 0 {
		return nil
	}

	docs := make([]chromem.Document, 0, len(items))
	for _, m := range items {
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal medication: %w", err)
		}
		docs = append(docs, chromem.Document{
			ID:      m.ID(),
			Content: m.EmbeddingText(),
			Metadata: map[string]string{
				"brand_name":   m.BrandName,
				"generic_name": m.GenericName,
				"raw":          string(raw),
			},
		})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("index medications: %w", err)
	}
	return nil
}

// Search returns up to limit medications with similarity above threshold,
// best match first.
func (c *Cache) Search(ctx context.Context, query string, limit int, threshold float32) ([]meds.SearchHit, error) {
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	// chromem requires nResults <= collection size
	count := c.collection.Count()
	if count == 0 {
		return nil, nil
	}
	limit = min(limit, count)

	results, err := c.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector cache: %w", err)
	}

	hits := make([]meds.SearchHit, 0, len(results))
	for _, r := range results {
		if r.Similarity <= threshold {
			continue
		}
		var m meds.Medication
		if err := json.Unmarshal([]byte(r.Metadata["raw"]), &m); err != nil {
			return nil, fmt.Errorf("decode cached medication %s: %w", r.ID, err)
		}
		hits = append(hits, meds.SearchHit{Medication: m, Similarity: r.Similarity})
	}
	return hits, nil
}

// Count reports how many medications are indexed.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.collection.Count()
}
