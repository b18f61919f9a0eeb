package cache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestLocalIndex_InsertSearchInvalidate(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.jsonl")
	idx, err := NewLocalIndex(path)
	if err != nil {
		t.Fatalf("NewLocalIndex: %v", err)
	}

	model1 := uuid.New()
	model2 := uuid.New()

	if err := idx.Insert(ctx, Entry{ModelID: model1, QueryText: "what is the capital of france", LLMResponse: "paris"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Insert(ctx, Entry{ModelID: model2, QueryText: "what is the capital of france", LLMResponse: "paris"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	results, err := idx.Search(ctx, model1, "capital of france", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Search scoped to model1 returned %d entries, want 1", len(results))
	}

	if err := idx.Invalidate(ctx, model1); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	results, err = idx.Search(ctx, model1, "capital of france", 5)
	if err != nil {
		t.Fatalf("Search after invalidate: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Search after invalidate returned %d entries, want 0", len(results))
	}

	results, err = idx.Search(ctx, model2, "capital of france", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("invalidating model1 should not affect model2, got %d entries", len(results))
	}
}

func TestLocalIndex_PersistAndReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.jsonl")
	idx, err := NewLocalIndex(path)
	if err != nil {
		t.Fatalf("NewLocalIndex: %v", err)
	}

	modelID := uuid.New()
	if err := idx.Insert(ctx, Entry{ModelID: modelID, QueryText: "hello world", LLMResponse: "hi"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := idx.Persist(ctx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	reloaded, err := NewLocalIndex(path)
	if err != nil {
		t.Fatalf("NewLocalIndex reload: %v", err)
	}
	results, err := reloaded.Search(ctx, modelID, "hello world", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].LLMResponse != "hi" {
		t.Errorf("reloaded index missing persisted entry, got %+v", results)
	}
}

func TestLocalIndex_PersistNoOpWhenClean(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "index.jsonl")
	idx, err := NewLocalIndex(path)
	if err != nil {
		t.Fatalf("NewLocalIndex: %v", err)
	}
	if err := idx.Persist(ctx); err != nil {
		t.Fatalf("Persist on empty index: %v", err)
	}
}
