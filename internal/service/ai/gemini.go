package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var newGeminiClient = func(ctx context.Context, cfg *genai.ClientConfig) (*genai.Client, error) {
	return genai.NewClient(ctx, cfg)
}

// GeminiProvider calls a Google generative model through the genai SDK.
type GeminiProvider struct {
	models geminiModels
	model  string
	system string
}

// NewGeminiProvider builds the SDK client from an API key and model id.
func NewGeminiProvider(ctx context.Context, apiKey, model, system string) (*GeminiProvider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := newGeminiClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	return &GeminiProvider{
		models: client.Models,
		model:  model,
		system: system,
	}, nil
}

func (p *GeminiProvider) Name() string {
	return "gemini"
}

// SendPrompt runs generateContent on the raw text and returns the reply's Text().
func (p *GeminiProvider) SendPrompt(ctx context.Context, text string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	var cfg *genai.GenerateContentConfig
	if p.system != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(p.system, genai.RoleUser),
		}
	}

	resp, err := p.models.GenerateContent(ctx, p.model, contents, cfg)
	if err != nil {
		return "", callFailed(p.Name(), err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", callFailed(p.Name(), errors.New("response has no candidates"))
	}

	candidate := resp.Candidates[0]
	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop, genai.FinishReasonMaxTokens:
	default:
		return "", callFailed(p.Name(), fmt.Errorf("candidate blocked: finish reason %s", candidate.FinishReason))
	}

	reply := resp.Text()
	if candidate.Content == nil || reply == "" {
		return "", callFailed(p.Name(), errors.New("candidate has no text"))
	}

	return reply, nil
}
