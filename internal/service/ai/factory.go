package ai

import (
	"context"
	"fmt"

	"github.com/zhouzirui/healthcare-site/backend/internal/config"
)

// NewProvider builds the backend selected by cfg.Provider. system may be empty.
func NewProvider(ctx context.Context, cfg config.AIConfig, system string) (Provider, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("%w: %s credentials missing", ErrNotConfigured, cfg.Provider)
	}

	var (
		provider Provider
		err      error
	)

	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ModelOrDefault(), system)

	case config.ProviderGemini:
		provider, err = NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.ModelOrDefault(), system)

	case config.ProviderArk:
		chatModel, modelErr := cfg.NewChatModel(ctx)
		if modelErr != nil {
			return nil, fmt.Errorf("failed to create chat model: %w", modelErr)
		}
		provider, err = NewArkProvider(ctx, chatModel, system)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithTimeout(provider, cfg.RequestTimeout), nil
}
