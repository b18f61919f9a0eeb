package updatelog

import (
	"bufio"
	"os"
	"path/filepath"
	"testing"
)

func TestAppender_WritesToPerKindFile(t *testing.T) {
	dir := t.TempDir()
	a := NewAppender(dir, "replica-7")
	defer a.Close()

	if err := a.Append(Record{Kind: KindUpvote, Upvote: &UpvotePayload{ChunkIDs: []string{"c1"}, Queries: []string{"q1"}}}); err != nil {
		t.Fatalf("Append upvote: %v", err)
	}
	if err := a.Append(Record{Kind: KindDelete, Delete: &DeletePayload{DocIDs: []string{"d1"}}}); err != nil {
		t.Fatalf("Append delete: %v", err)
	}

	upvotePath := filepath.Join(dir, "upvote", "replica-7.jsonl")
	deletePath := filepath.Join(dir, "delete", "replica-7.jsonl")

	for _, path := range []string{upvotePath, deletePath} {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("expected file at %s: %v", path, err)
		}
	}

	f, err := os.Open(upvotePath)
	if err != nil {
		t.Fatalf("open %s: %v", upvotePath, err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		lines++
		rec, err := Decode(scanner.Bytes())
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if rec.Kind != KindUpvote {
			t.Errorf("Kind = %q, want %q", rec.Kind, KindUpvote)
		}
	}
	if lines != 1 {
		t.Errorf("lines in %s = %d, want 1", upvotePath, lines)
	}
}

func TestAppender_AppendsAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	a := NewAppender(dir, "replica-1")
	defer a.Close()

	for i := 0; i < 3; i++ {
		if err := a.Append(Record{Kind: KindDelete, Delete: &DeletePayload{DocIDs: []string{"d"}}}); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}

	path := filepath.Join(dir, "delete", "replica-1.jsonl")
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	var lines int
	for scanner.Scan() {
		lines++
	}
	if lines != 3 {
		t.Errorf("lines = %d, want 3", lines)
	}
}
