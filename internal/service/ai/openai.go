package ai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider calls an OpenAI-compatible chat-completions endpoint.
type OpenAIProvider struct {
	client *openai.Client
	model  string
	system string
}

// NewOpenAIProvider creates a provider; baseURL may be empty for the public API.
func NewOpenAIProvider(apiKey, baseURL, model, system string) *OpenAIProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIProvider{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		system: system,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai"
}

// SendPrompt posts a single user turn and returns choices[0].message.content.
func (p *OpenAIProvider) SendPrompt(ctx context.Context, text string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if p.system != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: p.system,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: text,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    p.model,
		Messages: messages,
	})
	if err != nil {
		return "", callFailed(p.Name(), err)
	}

	if len(resp.Choices) == 0 {
		return "", callFailed(p.Name(), errors.New("response has no choices"))
	}

	return resp.Choices[0].Message.Content, nil
}
