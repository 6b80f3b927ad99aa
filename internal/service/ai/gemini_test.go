package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubGeminiModels struct {
	resp *genai.GenerateContentResponse
	err  error

	gotModel    string
	gotContents []*genai.Content
	gotConfig   *genai.GenerateContentConfig
}

func (s *stubGeminiModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.gotModel = model
	s.gotContents = contents
	s.gotConfig = cfg
	return s.resp, s.err
}

func geminiTextResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Role:  genai.RoleModel,
					Parts: []*genai.Part{{Text: text}},
				},
			},
		},
	}
}

func TestNewGeminiProviderRequiresAPIKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), "  ", "gemini-2.0-flash", "")
	assert.Error(t, err)
}

func TestNewGeminiProviderForwardsKey(t *testing.T) {
	orig := newGeminiClient
	t.Cleanup(func() { newGeminiClient = orig })

	var gotCfg *genai.ClientConfig
	newGeminiClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
		gotCfg = cfg
		return &genai.Client{}, nil
	}

	p, err := NewGeminiProvider(context.Background(), "g-key", "gemini-2.0-flash", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini", p.Name())
	require.NotNil(t, gotCfg)
	assert.Equal(t, "g-key", gotCfg.APIKey)
	assert.Equal(t, genai.BackendGeminiAPI, gotCfg.Backend)
}

func TestGeminiProviderReturnsText(t *testing.T) {
	models := &stubGeminiModels{resp: geminiTextResponse("Hi there!")}
	p := &GeminiProvider{models: models, model: "gemini-2.0-flash"}

	reply, err := p.SendPrompt(context.Background(), "Hello")
	require.NoError(t, err)

	assert.Equal(t, "Hi there!", reply)
	assert.Equal(t, "gemini-2.0-flash", models.gotModel)
	require.Len(t, models.gotContents, 1)
	assert.Equal(t, genai.RoleUser, models.gotContents[0].Role)
	assert.Equal(t, "Hello", models.gotContents[0].Parts[0].Text)
	assert.Nil(t, models.gotConfig)
}

func TestGeminiProviderSystemInstruction(t *testing.T) {
	models := &stubGeminiModels{resp: geminiTextResponse("ok")}
	p := &GeminiProvider{models: models, model: "gemini-2.0-flash", system: "front desk"}

	_, err := p.SendPrompt(context.Background(), "Hello")
	require.NoError(t, err)

	require.NotNil(t, models.gotConfig)
	assert.Equal(t, "front desk", models.gotConfig.SystemInstruction.Parts[0].Text)
}

func TestGeminiProviderFailures(t *testing.T) {
	t.Run("sdk error", func(t *testing.T) {
		p := &GeminiProvider{models: &stubGeminiModels{err: errors.New("permission denied")}}
		_, err := p.SendPrompt(context.Background(), "Hello")
		assert.ErrorIs(t, err, ErrProviderCallFailed)
	})

	t.Run("no candidates", func(t *testing.T) {
		p := &GeminiProvider{models: &stubGeminiModels{resp: &genai.GenerateContentResponse{}}}
		_, err := p.SendPrompt(context.Background(), "Hello")
		assert.ErrorIs(t, err, ErrProviderCallFailed)
	})

	t.Run("blocked candidate", func(t *testing.T) {
		p := &GeminiProvider{models: &stubGeminiModels{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}}}
		reply, err := p.SendPrompt(context.Background(), "Which pills help with a migraine?")
		assert.ErrorIs(t, err, ErrProviderCallFailed)
		assert.Empty(t, reply)

		fallback, ok := ReplyOrFallback(context.Background(), p, "Which pills help with a migraine?", nil)
		assert.False(t, ok)
		assert.Equal(t, FallbackReply, fallback)
	})

	t.Run("candidate without text", func(t *testing.T) {
		p := &GeminiProvider{models: &stubGeminiModels{resp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				FinishReason: genai.FinishReasonStop,
				Content:      &genai.Content{Role: genai.RoleModel},
			}},
		}}}
		_, err := p.SendPrompt(context.Background(), "Hello")
		assert.ErrorIs(t, err, ErrProviderCallFailed)
	})

	t.Run("truncated reply is kept", func(t *testing.T) {
		resp := geminiTextResponse("partial answer")
		resp.Candidates[0].FinishReason = genai.FinishReasonMaxTokens
		p := &GeminiProvider{models: &stubGeminiModels{resp: resp}}
		reply, err := p.SendPrompt(context.Background(), "Hello")
		require.NoError(t, err)
		assert.Equal(t, "partial answer", reply)
	})
}
