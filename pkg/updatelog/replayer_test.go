package updatelog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/modelbazaar/controlplane/pkg/mlmodel"
)

// fakeModel records every mutation call and can be made to fail on demand.
type fakeModel struct {
	inserts    [][]mlmodel.FileInfo
	deletes    [][]string
	upvotes    [][]string
	associates [][]string
	saves      []string

	failNextUpvote int
}

func (f *fakeModel) Train(ctx context.Context, dataRefs []string, hp map[string]string) error {
	return nil
}

func (f *fakeModel) Predict(ctx context.Context, req mlmodel.PredictRequest) (*mlmodel.PredictResult, error) {
	return &mlmodel.PredictResult{}, nil
}

func (f *fakeModel) Insert(ctx context.Context, files []mlmodel.FileInfo) error {
	f.inserts = append(f.inserts, files)
	return nil
}

func (f *fakeModel) Delete(ctx context.Context, docIDs []string) error {
	f.deletes = append(f.deletes, docIDs)
	return nil
}

func (f *fakeModel) Upvote(ctx context.Context, chunkIDs []string, queries []string) error {
	if f.failNextUpvote > 0 {
		f.failNextUpvote--
		return errors.New("injected failure")
	}
	f.upvotes = append(f.upvotes, chunkIDs)
	return nil
}

func (f *fakeModel) Associate(ctx context.Context, sources []string, targets []string) error {
	f.associates = append(f.associates, sources)
	return nil
}

func (f *fakeModel) Save(ctx context.Context, artifactPath string) error {
	f.saves = append(f.saves, artifactPath)
	return os.WriteFile(artifactPath, []byte("snapshot"), 0o644)
}

func (f *fakeModel) Load(ctx context.Context, artifactPath string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeLine(t *testing.T, path string, rec Record) {
	t.Helper()
	b, err := rec.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReplayer_AppliesAndRotates(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	insertDir := filepath.Join(dir, "insert")
	if err := os.MkdirAll(insertDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(insertDir, "replica-1.jsonl")
	writeLine(t, logPath, Record{Kind: KindInsert, Insert: &InsertPayload{Files: []FileRef{{Path: "/data/a.txt"}}}})

	model := &fakeModel{}
	r, err := NewReplayer(dir, model, testLogger())
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}

	artifact := filepath.Join(dir, "snapshot.json")
	if err := r.RunOnce(ctx, artifact); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if len(model.inserts) != 1 {
		t.Fatalf("inserts = %d, want 1", len(model.inserts))
	}
	if len(model.saves) != 1 {
		t.Fatalf("saves = %d, want 1", len(model.saves))
	}
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Errorf("expected %s to be rotated away, stat err = %v", logPath, err)
	}
}

func TestReplayer_NoDoubleApplyAcrossRuns(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	deleteDir := filepath.Join(dir, "delete")
	if err := os.MkdirAll(deleteDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(deleteDir, "replica-1.jsonl")
	writeLine(t, logPath, Record{Kind: KindDelete, Delete: &DeletePayload{DocIDs: []string{"d1"}}})

	model := &fakeModel{}
	artifact := filepath.Join(dir, "snapshot.json")

	r1, err := NewReplayer(dir, model, testLogger())
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	if err := r1.RunOnce(ctx, artifact); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	if len(model.deletes) != 1 {
		t.Fatalf("deletes after first run = %d, want 1", len(model.deletes))
	}
	// the file was rotated away after the first run, so a second replayer
	// instance loading the same state should have nothing left to apply.
	r2, err := NewReplayer(dir, model, testLogger())
	if err != nil {
		t.Fatalf("second NewReplayer: %v", err)
	}
	if err := r2.RunOnce(ctx, artifact); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if len(model.deletes) != 1 {
		t.Errorf("deletes after second run = %d, want still 1 (no double-apply)", len(model.deletes))
	}
}

func TestReplayer_RetriesBelowPoisonThreshold(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	upvoteDir := filepath.Join(dir, "upvote")
	if err := os.MkdirAll(upvoteDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(upvoteDir, "replica-1.jsonl")
	writeLine(t, logPath, Record{Kind: KindUpvote, Upvote: &UpvotePayload{ChunkIDs: []string{"c1"}, Queries: []string{"q1"}}})

	model := &fakeModel{failNextUpvote: 1}
	r, err := NewReplayer(dir, model, testLogger())
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	artifact := filepath.Join(dir, "snapshot.json")

	if err := r.RunOnce(ctx, artifact); err != nil {
		t.Fatalf("first RunOnce: %v", err)
	}
	if len(model.upvotes) != 0 {
		t.Fatalf("upvotes after failed attempt = %d, want 0", len(model.upvotes))
	}
	if off := r.state.Offsets[logPath]; off != 0 {
		t.Errorf("offset after failed attempt = %d, want 0 (not advanced, so it retries)", off)
	}

	// second attempt succeeds since failNextUpvote is now exhausted.
	if err := r.RunOnce(ctx, artifact); err != nil {
		t.Fatalf("second RunOnce: %v", err)
	}
	if len(model.upvotes) != 1 {
		t.Errorf("upvotes after retry = %d, want 1", len(model.upvotes))
	}
}

func TestReplayer_PoisonsAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	upvoteDir := filepath.Join(dir, "upvote")
	if err := os.MkdirAll(upvoteDir, 0o755); err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(upvoteDir, "replica-1.jsonl")
	writeLine(t, logPath, Record{Kind: KindUpvote, Upvote: &UpvotePayload{ChunkIDs: []string{"c1"}, Queries: []string{"q1"}}})

	model := &fakeModel{failNextUpvote: maxConsecutiveFailures}
	r, err := NewReplayer(dir, model, testLogger())
	if err != nil {
		t.Fatalf("NewReplayer: %v", err)
	}
	artifact := filepath.Join(dir, "snapshot.json")

	for i := 0; i < maxConsecutiveFailures; i++ {
		if err := r.RunOnce(ctx, artifact); err != nil {
			t.Fatalf("RunOnce attempt %d: %v", i, err)
		}
	}

	poisonPath := logPath + ".poison"
	if _, err := os.Stat(poisonPath); err != nil {
		t.Fatalf("expected poison file at %s: %v", poisonPath, err)
	}
}

func TestReplayer_DiscoverFilesOrdering(t *testing.T) {
	dir := t.TempDir()
	for _, kind := range []Kind{KindInsert, KindDelete} {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	insertPath := filepath.Join(dir, "insert", "r1.jsonl")
	deletePath := filepath.Join(dir, "delete", "r1.jsonl")
	writeLine(t, insertPath, Record{Kind: KindInsert, Insert: &InsertPayload{}})
	writeLine(t, deletePath, Record{Kind: KindDelete, Delete: &DeletePayload{}})

	// force a distinguishable mtime ordering: insert file is older.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(insertPath, past, past); err != nil {
		t.Fatal(err)
	}

	r := &Replayer{deploymentDir: dir}
	files, err := r.discoverFiles()
	if err != nil {
		t.Fatalf("discoverFiles: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("discoverFiles returned %d files, want 2", len(files))
	}
	if files[0].path != insertPath {
		t.Errorf("files[0] = %s, want %s (older mtime first)", files[0].path, insertPath)
	}
}
