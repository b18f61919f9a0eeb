package integration

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// callChatModel drives any langchaingo llms.Model through the same
// single-call shape, shared by the openai/cohere/self_hosted providers.
func callChatModel(ctx context.Context, model llms.Model, req CompletionRequest) (*CompletionResult, error) {
	messages := []llms.MessageContent{}
	if req.SystemPrompt != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt))

	opts := []llms.CallOption{}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}
	if req.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(req.Temperature))
	}

	resp, err := model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return nil, fmt.Errorf("integration: generating completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("integration: provider returned no choices")
	}
	choice := resp.Choices[0]
	result := &CompletionResult{Text: choice.Content}
	if choice.GenerationInfo != nil {
		if v, ok := choice.GenerationInfo["PromptTokens"].(int); ok {
			result.InputTokens = v
		}
		if v, ok := choice.GenerationInfo["CompletionTokens"].(int); ok {
			result.OutputTokens = v
		}
	}
	return result, nil
}
