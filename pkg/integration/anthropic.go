package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

type anthropicConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type anthropicProvider struct {
	client anthropic.Client
	model  string
}

func newAnthropicProvider(cfg Integration) (Provider, error) {
	var c anthropicConfig
	if err := json.Unmarshal(cfg.Data, &c); err != nil {
		return nil, fmt.Errorf("integration: decoding anthropic config: %w", err)
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("integration: anthropic integration %q missing api_key", cfg.Name)
	}
	model := c.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	client := anthropic.NewClient(option.WithAPIKey(c.APIKey))
	return &anthropicProvider{client: client, model: model}, nil
}

func (p *anthropicProvider) Type() Type { return TypeAnthropic }

func (p *anthropicProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("integration: anthropic completion: %w", err)
	}
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	return &CompletionResult{
		Text:         text,
		InputTokens:  int(msg.Usage.InputTokens),
		OutputTokens: int(msg.Usage.OutputTokens),
	}, nil
}
