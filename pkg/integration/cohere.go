package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms/cohere"
)

type cohereConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type cohereProvider struct {
	llm *cohere.LLM
}

func newCohereProvider(cfg Integration) (Provider, error) {
	var c cohereConfig
	if err := json.Unmarshal(cfg.Data, &c); err != nil {
		return nil, fmt.Errorf("integration: decoding cohere config: %w", err)
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("integration: cohere integration %q missing api_key", cfg.Name)
	}
	llm, err := cohere.New(cohere.WithToken(c.APIKey), cohere.WithModel(c.Model))
	if err != nil {
		return nil, fmt.Errorf("integration: building cohere client: %w", err)
	}
	return &cohereProvider{llm: llm}, nil
}

func (p *cohereProvider) Type() Type { return TypeCohere }

func (p *cohereProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	return callChatModel(ctx, p.llm, req)
}
