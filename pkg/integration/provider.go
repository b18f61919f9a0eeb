package integration

import "context"

// Provider is the interface every LLM backend implements, grounded on the
// teacher's messaging.Provider shape: one small interface, one concrete type
// per external platform, selected by name out of a Registry.
type Provider interface {
	// Type returns the provider identifier ("openai", "anthropic", ...).
	Type() Type

	// Complete sends a single prompt and returns the generated text.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// Factory builds a Provider from a stored integration's opaque config.
type Factory func(cfg Integration) (Provider, error)
