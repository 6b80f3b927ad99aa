package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ArkProvider drives a Volcengine Ark chat model through an eino chain.
type ArkProvider struct {
	chatModel model.BaseChatModel
	system    string
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewArkProvider compiles the prompt template + chat model chain.
func NewArkProvider(ctx context.Context, chatModel model.BaseChatModel, system string) (*ArkProvider, error) {
	templates := make([]schema.MessagesTemplate, 0, 2)
	if system != "" {
		templates = append(templates, schema.SystemMessage("{system}"))
	}
	templates = append(templates, schema.UserMessage("{query}"))

	promptTemplate := prompt.FromMessages(schema.FString, templates...)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &ArkProvider{
		chatModel: chatModel,
		system:    system,
		chain:     runnable,
	}, nil
}

func (p *ArkProvider) Name() string {
	return "ark"
}

// SendPrompt runs the chain with the raw user text as the only turn.
func (p *ArkProvider) SendPrompt(ctx context.Context, text string) (string, error) {
	input := map[string]any{"query": text}
	if p.system != "" {
		input["system"] = p.system
	}

	response, err := p.chain.Invoke(ctx, input)
	if err != nil {
		return "", callFailed(p.Name(), fmt.Errorf("failed to run AI chain: %w", err))
	}
	if response == nil {
		return "", callFailed(p.Name(), fmt.Errorf("chain returned no message"))
	}

	return response.Content, nil
}
