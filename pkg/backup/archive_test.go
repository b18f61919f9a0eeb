package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func withFakeDump(t *testing.T, data string) {
	t.Helper()
	original := dumpDatabase
	dumpDatabase = func(ctx context.Context, databaseURL string) ([]byte, error) {
		return []byte(data), nil
	}
	t.Cleanup(func() { dumpDatabase = original })
}

func TestBuildAndExtractArchive(t *testing.T) {
	withFakeDump(t, "-- fake dump --")

	bazaarDir := t.TempDir()
	modelID := uuid.New()
	modelDir := filepath.Join(bazaarDir, "models", modelID.String())
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(modelDir, "artifact.json"), []byte(`{"k":"v"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Config{ModelBazaarDir: bazaarDir, DatabaseURL: "postgres://unused"}
	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	if err := buildArchive(context.Background(), cfg, modelID, archivePath); err != nil {
		t.Fatalf("buildArchive: %v", err)
	}

	destDir := t.TempDir()
	if err := extractArchive(archivePath, destDir); err != nil {
		t.Fatalf("extractArchive: %v", err)
	}

	artifact, err := os.ReadFile(filepath.Join(destDir, "model", "artifact.json"))
	if err != nil {
		t.Fatalf("reading extracted artifact: %v", err)
	}
	if string(artifact) != `{"k":"v"}` {
		t.Errorf("artifact content = %q, want %q", artifact, `{"k":"v"}`)
	}

	dump, err := os.ReadFile(filepath.Join(destDir, "metadata.sql"))
	if err != nil {
		t.Fatalf("reading extracted dump: %v", err)
	}
	if string(dump) != "-- fake dump --" {
		t.Errorf("dump content = %q, want %q", dump, "-- fake dump --")
	}
}

func TestBuildArchive_MissingModelDirIsNotFatal(t *testing.T) {
	withFakeDump(t, "dump")

	bazaarDir := t.TempDir()
	cfg := Config{ModelBazaarDir: bazaarDir, DatabaseURL: "postgres://unused"}
	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	if err := buildArchive(context.Background(), cfg, uuid.New(), archivePath); err != nil {
		t.Fatalf("buildArchive with no model directory: %v", err)
	}
}
