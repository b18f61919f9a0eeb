package bazaar

import (
	"testing"

	"github.com/modelbazaar/controlplane/pkg/scheduler"
)

func TestNameRE(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"valid-name_1", true},
		{"Valid123", true},
		{"has space", false},
		{"has/slash", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := nameRE.MatchString(tt.name); got != tt.want {
			t.Errorf("nameRE.MatchString(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsValidType(t *testing.T) {
	tests := []struct {
		typ  ModelType
		want bool
	}{
		{TypeNDB, true},
		{TypeUDT, true},
		{TypeEnterpriseSearch, true},
		{TypeKnowledgeExtraction, true},
		{ModelType("bogus"), false},
		{ModelType(""), false},
	}
	for _, tt := range tests {
		if got := isValidType(tt.typ); got != tt.want {
			t.Errorf("isValidType(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestCanAdvance(t *testing.T) {
	tests := []struct {
		cur, next string
		want      bool
	}{
		{scheduler.StatusNotStarted, scheduler.StatusStarting, true},
		{scheduler.StatusNotStarted, scheduler.StatusInProgress, false},
		{scheduler.StatusStarting, scheduler.StatusInProgress, true},
		{scheduler.StatusStarting, scheduler.StatusFailed, true},
		{scheduler.StatusStarting, scheduler.StatusComplete, false},
		{scheduler.StatusInProgress, scheduler.StatusComplete, true},
		{scheduler.StatusInProgress, scheduler.StatusFailed, true},
		{scheduler.StatusComplete, scheduler.StatusStopped, true},
		{scheduler.StatusComplete, scheduler.StatusStarting, false},
		{scheduler.StatusFailed, scheduler.StatusStarting, false},
		{scheduler.StatusStopped, scheduler.StatusStarting, false},
		{scheduler.StatusComplete, scheduler.StatusComplete, true},
	}
	for _, tt := range tests {
		if got := canAdvance(tt.cur, tt.next); got != tt.want {
			t.Errorf("canAdvance(%q, %q) = %v, want %v", tt.cur, tt.next, got, tt.want)
		}
	}
}
