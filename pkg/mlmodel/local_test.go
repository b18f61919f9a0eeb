package mlmodel

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalModel_InsertPredictDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc1.txt")
	if err := os.WriteFile(docPath, []byte("paris is the capital of france"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewLocalModel()
	if err := m.Insert(ctx, []FileInfo{{Path: docPath}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	result, err := m.Predict(ctx, PredictRequest{Query: "capital france", TopK: 5})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.References) != 1 {
		t.Fatalf("References = %d, want 1", len(result.References))
	}

	if err := m.Delete(ctx, []string{docPath}); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	result, err = m.Predict(ctx, PredictRequest{Query: "capital france", TopK: 5})
	if err != nil {
		t.Fatalf("Predict after delete: %v", err)
	}
	if len(result.References) != 0 {
		t.Errorf("References after delete = %d, want 0", len(result.References))
	}
}

func TestLocalModel_SaveLoadRoundtrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	docPath := filepath.Join(dir, "doc1.txt")
	if err := os.WriteFile(docPath, []byte("hello world"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := NewLocalModel()
	if err := m.Insert(ctx, []FileInfo{{Path: docPath}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	snapshotPath := filepath.Join(dir, "snapshot.json")
	if err := m.Save(ctx, snapshotPath); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded := NewLocalModel()
	if err := reloaded.Load(ctx, snapshotPath); err != nil {
		t.Fatalf("Load: %v", err)
	}
	result, err := reloaded.Predict(ctx, PredictRequest{Query: "hello", TopK: 5})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(result.References) != 1 {
		t.Errorf("References after reload = %d, want 1", len(result.References))
	}
}

func TestLocalModel_LoadMissingFileIsNoOp(t *testing.T) {
	ctx := context.Background()
	m := NewLocalModel()
	if err := m.Load(ctx, filepath.Join(t.TempDir(), "missing.json")); err != nil {
		t.Errorf("Load of missing file: %v, want nil", err)
	}
}
