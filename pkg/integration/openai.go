package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type openAIConfig struct {
	APIKey string `json:"api_key"`
	Model  string `json:"model"`
}

type openAIProvider struct {
	typ   Type
	llm   *openai.LLM
	model string
}

func newOpenAIProvider(cfg Integration) (Provider, error) {
	var c openAIConfig
	if err := json.Unmarshal(cfg.Data, &c); err != nil {
		return nil, fmt.Errorf("integration: decoding openai config: %w", err)
	}
	if c.APIKey == "" {
		return nil, fmt.Errorf("integration: openai integration %q missing api_key", cfg.Name)
	}
	llm, err := openai.New(openai.WithToken(c.APIKey), openai.WithModel(c.Model))
	if err != nil {
		return nil, fmt.Errorf("integration: building openai client: %w", err)
	}
	return &openAIProvider{typ: TypeOpenAI, llm: llm, model: c.Model}, nil
}

func (p *openAIProvider) Type() Type { return p.typ }

func (p *openAIProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	return callChatModel(ctx, p.llm, req)
}
