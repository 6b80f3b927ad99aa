package meds

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/zhouzirui/healthcare-site/backend/internal/config"
	"github.com/zhouzirui/healthcare-site/backend/internal/store"
)

// NewEmbedder picks the embedder named by cfg.EmbeddingProvider, reusing the
// provider credentials from ai.
func NewEmbedder(ctx context.Context, cfg config.MedsConfig, ai config.AIConfig) (Embedder, error) {
	switch cfg.EmbeddingProvider {
	case "", "hash":
		return NewHashEmbedder(0), nil
	case config.ProviderOpenAI:
		if ai.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("EMBEDDING_PROVIDER=openai requires OPENAI_API_KEY")
		}
		return NewOpenAIEmbedder(ai.OpenAIAPIKey, ai.OpenAIBaseURL, cfg.EmbeddingModel), nil
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, ai.GeminiAPIKey, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.EmbeddingProvider)
	}
}

// Open builds the lookup from configuration: SQLite at DataDir/meds.db, the
// vector cache under DataDir/vectors and the OpenFDA client. Medications
// persisted by earlier runs are re-indexed when the vector cache is empty.
// The caller owns the returned DB.
func Open(ctx context.Context, cfg config.MedsConfig, ai config.AIConfig, logger *zap.Logger) (*Service, *store.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data dir: %w", err)
	}

	db, err := store.Open(filepath.Join(cfg.DataDir, "meds.db"))
	if err != nil {
		return nil, nil, err
	}

	embedder, err := NewEmbedder(ctx, cfg, ai)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	cache, err := NewPersistentCache(filepath.Join(cfg.DataDir, "vectors"), embedder)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	svc := NewService(NewFDAClient(cfg.FDABaseURL, cfg.FDAAPIKey), cache, db, logger)

	persisted, err := db.ListMedications(ctx)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	if err := svc.Warm(ctx, persisted); err != nil {
		logger.Warn("warming medication cache failed", zap.Error(err))
	}

	logger.Info("medication lookup ready",
		zap.String("embedder", embedder.Name()),
		zap.Int("cached", svc.CachedCount()),
	)
	return svc, db, nil
}
