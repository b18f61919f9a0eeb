package integration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"
)

// selfHostedConfig points at an OpenAI-compatible endpoint (vLLM, TGI, or
// similar) running on worker nodes managed by the same scheduler.
type selfHostedConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Model   string `json:"model"`
}

type selfHostedProvider struct {
	llm *openai.LLM
}

func newSelfHostedProvider(cfg Integration) (Provider, error) {
	var c selfHostedConfig
	if err := json.Unmarshal(cfg.Data, &c); err != nil {
		return nil, fmt.Errorf("integration: decoding self_hosted config: %w", err)
	}
	if c.BaseURL == "" {
		return nil, fmt.Errorf("integration: self_hosted integration %q missing base_url", cfg.Name)
	}
	llm, err := openai.New(
		openai.WithBaseURL(c.BaseURL),
		openai.WithToken(c.APIKey),
		openai.WithModel(c.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("integration: building self-hosted client: %w", err)
	}
	return &selfHostedProvider{llm: llm}, nil
}

func (p *selfHostedProvider) Type() Type { return TypeSelfHosted }

func (p *selfHostedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	return callChatModel(ctx, p.llm, req)
}
