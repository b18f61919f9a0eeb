package integration

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
)

func TestRegistry_BuildUnknownType(t *testing.T) {
	r := &Registry{factories: map[Type]Factory{}}
	_, err := r.Build(Integration{ID: uuid.New(), Type: "unknown"})
	if err == nil {
		t.Fatal("expected error for unregistered type")
	}
}

func TestNewOpenAIProvider_MissingAPIKey(t *testing.T) {
	_, err := newOpenAIProvider(Integration{Type: TypeOpenAI, Data: json.RawMessage(`{"model":"gpt-4o"}`)})
	if err == nil {
		t.Fatal("expected error for missing api_key")
	}
}

func TestNewSelfHostedProvider_MissingBaseURL(t *testing.T) {
	_, err := newSelfHostedProvider(Integration{Type: TypeSelfHosted, Data: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected error for missing base_url")
	}
}
