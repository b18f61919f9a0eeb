package guardrail

import (
	"context"
	"strings"
)

// LocalClassifier is a reference implementation for tests and local
// development: it flags any occurrence of a configured disallowed word,
// case-insensitively, tagging it with the word's configured category. There
// is no third-party token-classification library in reach of this module;
// production deployments compose guardrail via RemoteClassifier against an
// actually trained token-classifier model instead.
type LocalClassifier struct {
	disallowed map[string]string // lowercase word -> tag
}

// NewLocalClassifier builds a LocalClassifier from a word->tag map, e.g.
// {"ssn": "pii", "password": "secret"}.
func NewLocalClassifier(disallowed map[string]string) *LocalClassifier {
	lower := make(map[string]string, len(disallowed))
	for word, tag := range disallowed {
		lower[strings.ToLower(word)] = tag
	}
	return &LocalClassifier{disallowed: lower}
}

// Classify scans text word by word and returns a Span for every disallowed
// token, measured in rune offsets so Redact can operate on the same string.
func (c *LocalClassifier) Classify(ctx context.Context, text string) ([]Span, error) {
	var spans []Span
	runes := []rune(text)
	start := 0
	for start < len(runes) {
		for start < len(runes) && isSpace(runes[start]) {
			start++
		}
		end := start
		for end < len(runes) && !isSpace(runes[end]) {
			end++
		}
		if end > start {
			word := strings.ToLower(string(runes[start:end]))
			if tag, ok := c.disallowed[word]; ok {
				spans = append(spans, Span{Start: start, End: end, Tag: tag})
			}
		}
		start = end
	}
	return spans, nil
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
