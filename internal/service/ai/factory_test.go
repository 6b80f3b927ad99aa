package ai

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/healthcare-site/backend/internal/config"
	"github.com/zhouzirui/healthcare-site/backend/internal/model/clinic"
)

func TestNewProviderRequiresCredentials(t *testing.T) {
	for _, name := range []string{config.ProviderOpenAI, config.ProviderGemini, config.ProviderArk} {
		_, err := NewProvider(context.Background(), config.AIConfig{Provider: name}, "")
		assert.ErrorIs(t, err, ErrNotConfigured, name)
	}
}

func TestNewProviderOpenAIWithTimeout(t *testing.T) {
	p, err := NewProvider(context.Background(), config.AIConfig{
		Provider:       config.ProviderOpenAI,
		OpenAIAPIKey:   "sk-test",
		RequestTimeout: 5 * time.Second,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "openai", p.Name())
	_, wrapped := p.(*timeoutProvider)
	assert.True(t, wrapped)
}

func TestClinicPromptMentionsServices(t *testing.T) {
	prompt := NewClinicPrompt(clinic.DefaultProfile(), clinic.Seed()).Build()

	assert.Contains(t, prompt, "Healthcare Company")
	assert.Contains(t, prompt, "Cardiology: Heart health consultations and diagnostics.")
	assert.Contains(t, prompt, "(555) 123-4567")
}
