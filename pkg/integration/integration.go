// Package integration manages external LLM provider configuration and
// dispatches completion calls through a pluggable provider registry. An
// Integration row holds an opaque JSON blob of provider-specific
// credentials/config (API key, base URL, model name); the provider
// implementations in this package decode only the fields they need.
package integration

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type is the closed set of LLM providers the control plane can proxy to.
type Type string

const (
	TypeOpenAI     Type = "openai"
	TypeSelfHosted Type = "self_hosted"
	TypeAnthropic  Type = "anthropic"
	TypeCohere     Type = "cohere"
)

func isValidType(t Type) bool {
	switch t {
	case TypeOpenAI, TypeSelfHosted, TypeAnthropic, TypeCohere:
		return true
	}
	return false
}

// Integration is a configured external LLM endpoint: {id, type, data}.
type Integration struct {
	ID        uuid.UUID       `json:"id"`
	Type      Type            `json:"type"`
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// CreateParams are the fields accepted when registering a new integration.
type CreateParams struct {
	Type Type
	Name string
	Data json.RawMessage
}

// CompletionRequest is the provider-agnostic chat/completion call.
type CompletionRequest struct {
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float64
}

// CompletionResult is the provider-agnostic response.
type CompletionResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}
