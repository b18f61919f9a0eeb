package guardrail

import (
	"context"
	"testing"
)

func TestLocalClassifier_Classify(t *testing.T) {
	c := NewLocalClassifier(map[string]string{"ssn": "pii", "password": "secret"})

	spans, err := c.Classify(context.Background(), "what is my SSN and password")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}
	if spans[0].Tag != "pii" {
		t.Errorf("spans[0].Tag = %q, want pii", spans[0].Tag)
	}
	if spans[1].Tag != "secret" {
		t.Errorf("spans[1].Tag = %q, want secret", spans[1].Tag)
	}

	redacted := Redact("what is my SSN and password", spans)
	if redacted != "what is my *** and ********" {
		t.Errorf("Redact = %q, want %q", redacted, "what is my *** and ********")
	}
}

func TestLocalClassifier_NoMatches(t *testing.T) {
	c := NewLocalClassifier(map[string]string{"ssn": "pii"})
	spans, err := c.Classify(context.Background(), "what is the capital of france")
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if len(spans) != 0 {
		t.Errorf("spans = %d, want 0", len(spans))
	}
}
