package deployworker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelbazaar/controlplane/pkg/guardrail"
	"github.com/modelbazaar/controlplane/pkg/mlmodel"
	"github.com/modelbazaar/controlplane/pkg/updatelog"
)

type stubModel struct {
	predictResult *mlmodel.PredictResult
	savedPath     string
	lastQuery     string
}

func (s *stubModel) Train(ctx context.Context, dataRefs []string, hp map[string]string) error {
	return nil
}

func (s *stubModel) Predict(ctx context.Context, req mlmodel.PredictRequest) (*mlmodel.PredictResult, error) {
	s.lastQuery = req.Query
	return s.predictResult, nil
}
func (s *stubModel) Insert(ctx context.Context, files []mlmodel.FileInfo) error { return nil }
func (s *stubModel) Delete(ctx context.Context, docIDs []string) error         { return nil }
func (s *stubModel) Upvote(ctx context.Context, chunkIDs, queries []string) error {
	return nil
}
func (s *stubModel) Associate(ctx context.Context, sources, targets []string) error {
	return nil
}
func (s *stubModel) Save(ctx context.Context, artifactPath string) error {
	s.savedPath = artifactPath
	return nil
}
func (s *stubModel) Load(ctx context.Context, artifactPath string) error { return nil }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_Predict_GuardrailRedacts(t *testing.T) {
	model := &stubModel{predictResult: &mlmodel.PredictResult{GeneratedAnswer: "ok"}}
	classifier := guardrail.NewLocalClassifier(map[string]string{"ssn": "pii"})
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()

	w := NewWorker(model, classifier, appender, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(mustJSON(predictRequest{Query: "what is my ssn", TopK: 3})))
	rec := httptest.NewRecorder()
	w.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if model.lastQuery != "what is my ***" {
		t.Errorf("query forwarded to model = %q, want %q", model.lastQuery, "what is my ***")
	}
}

func TestWorker_Predict_TouchesActivity(t *testing.T) {
	model := &stubModel{predictResult: &mlmodel.PredictResult{}}
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()

	w := NewWorker(model, nil, appender, testLogger())
	before := w.IdleSince()

	req := httptest.NewRequest(http.MethodPost, "/predict", bytes.NewReader(mustJSON(predictRequest{Query: "hi"})))
	rec := httptest.NewRecorder()
	w.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if w.IdleSince() > before {
		t.Errorf("IdleSince after request = %v, want <= %v (activity touched)", w.IdleSince(), before)
	}
}

func TestWorker_Insert_AppendsToLog(t *testing.T) {
	model := &stubModel{}
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()
	w := NewWorker(model, nil, appender, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/insert", bytes.NewReader(mustJSON(insertRequest{
		Files: []updatelog.FileRef{{Path: "/data/a.txt", SourceType: "local"}},
	})))
	rec := httptest.NewRecorder()
	w.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", rec.Code, rec.Body.String())
	}

	logPath := filepath.Join(dir, "insert", "replica-1.jsonl")
	if _, err := os.Stat(logPath); err != nil {
		t.Errorf("expected log file at %s: %v", logPath, err)
	}
}

func TestWorker_Insert_RejectsEmptyFiles(t *testing.T) {
	model := &stubModel{}
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()
	w := NewWorker(model, nil, appender, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/insert", bytes.NewReader(mustJSON(insertRequest{})))
	rec := httptest.NewRecorder()
	w.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWorker_Save(t *testing.T) {
	model := &stubModel{}
	dir := t.TempDir()
	appender := updatelog.NewAppender(dir, "replica-1")
	defer appender.Close()
	w := NewWorker(model, nil, appender, testLogger())

	artifact := filepath.Join(dir, "snapshot.json")
	req := httptest.NewRequest(http.MethodPost, "/save", bytes.NewReader(mustJSON(saveRequest{ArtifactPath: artifact})))
	rec := httptest.NewRecorder()
	w.Routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}
	if model.savedPath != artifact {
		t.Errorf("savedPath = %q, want %q", model.savedPath, artifact)
	}
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
