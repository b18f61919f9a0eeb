package guardrail

import "testing"

func TestRedact(t *testing.T) {
	cases := []struct {
		name  string
		text  string
		spans []Span
		want  string
	}{
		{
			name:  "no spans",
			text:  "what is my ssn",
			spans: nil,
			want:  "what is my ssn",
		},
		{
			name:  "single span",
			text:  "my ssn is 123",
			spans: []Span{{Start: 3, End: 6, Tag: "pii"}},
			want:  "my *** is 123",
		},
		{
			name:  "out of range span is ignored",
			text:  "short",
			spans: []Span{{Start: 10, End: 20, Tag: "pii"}},
			want:  "short",
		},
		{
			name:  "inverted span is ignored",
			text:  "short",
			spans: []Span{{Start: 3, End: 1, Tag: "pii"}},
			want:  "short",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Redact(tc.text, tc.spans)
			if got != tc.want {
				t.Errorf("Redact(%q, %v) = %q, want %q", tc.text, tc.spans, got, tc.want)
			}
		})
	}
}
