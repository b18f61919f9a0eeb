package deployworker

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/modelbazaar/controlplane/internal/httpserver"
	"github.com/modelbazaar/controlplane/pkg/guardrail"
	"github.com/modelbazaar/controlplane/pkg/mlmodel"
	"github.com/modelbazaar/controlplane/pkg/updatelog"
)

// Worker serves predict/update traffic for one deployed model replica.
// Update endpoints never touch model directly — they append to the
// replica-local log via appender and let the elected writer apply them.
type Worker struct {
	model      mlmodel.Model
	classifier guardrail.Classifier
	appender   *updatelog.Appender
	logger     *slog.Logger

	lastActivity atomic.Int64
}

// NewWorker wires a Worker. classifier may be nil when no guardrail is
// composed in front of this deployment.
func NewWorker(model mlmodel.Model, classifier guardrail.Classifier, appender *updatelog.Appender, logger *slog.Logger) *Worker {
	w := &Worker{model: model, classifier: classifier, appender: appender, logger: logger}
	w.touch()
	return w
}

func (w *Worker) touch() {
	w.lastActivity.Store(time.Now().Unix())
}

// IdleSince reports how long it has been since the last authenticated
// endpoint call.
func (w *Worker) IdleSince() time.Duration {
	last := w.lastActivity.Load()
	return time.Since(time.Unix(last, 0))
}

func (w *Worker) touchMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		w.touch()
		next.ServeHTTP(rw, r)
	})
}

// Routes returns the replica's chi.Router: one read path, four update
// paths, and save. The caller is responsible for applying job/model-scope auth in
// front of this router.
func (w *Worker) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(w.touchMiddleware)
	r.Post("/predict", w.handlePredict)
	r.Post("/insert", w.handleInsert)
	r.Post("/delete", w.handleDelete)
	r.Post("/upvote", w.handleUpvote)
	r.Post("/associate", w.handleAssociate)
	r.Post("/save", w.handleSave)
	return r
}

type predictRequest struct {
	Query       string            `json:"query"`
	TopK        int               `json:"top_k"`
	Constraints map[string]string `json:"constraints"`
}

func (w *Worker) handlePredict(rw http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(rw, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}

	query := req.Query
	if w.classifier != nil {
		spans, err := w.classifier.Classify(r.Context(), query)
		if err != nil {
			w.logger.Warn("guardrail classify failed, forwarding query unredacted", "error", err)
		} else if len(spans) > 0 {
			query = guardrail.Redact(query, spans)
		}
	}

	result, err := w.model.Predict(r.Context(), mlmodel.PredictRequest{Query: query, TopK: req.TopK, Constraints: req.Constraints})
	if err != nil {
		httpserver.RespondError(rw, http.StatusInternalServerError, "internal", "predict failed")
		return
	}
	httpserver.Respond(rw, http.StatusOK, result)
}

type insertRequest struct {
	Files []updatelog.FileRef `json:"files"`
}

func (w *Worker) handleInsert(rw http.ResponseWriter, r *http.Request) {
	var req insertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Files) == 0 {
		httpserver.RespondError(rw, http.StatusBadRequest, "invalid_argument", "at least one file is required")
		return
	}
	rec := updatelog.Record{Kind: updatelog.KindInsert, Insert: &updatelog.InsertPayload{Files: req.Files}}
	if err := w.appender.Append(rec); err != nil {
		httpserver.RespondError(rw, http.StatusInternalServerError, "internal", "failed to record insert")
		return
	}
	httpserver.Respond(rw, http.StatusAccepted, nil)
}

type deleteRequest struct {
	DocIDs []string `json:"doc_ids"`
}

func (w *Worker) handleDelete(rw http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.DocIDs) == 0 {
		httpserver.RespondError(rw, http.StatusBadRequest, "invalid_argument", "at least one doc_id is required")
		return
	}
	rec := updatelog.Record{Kind: updatelog.KindDelete, Delete: &updatelog.DeletePayload{DocIDs: req.DocIDs}}
	if err := w.appender.Append(rec); err != nil {
		httpserver.RespondError(rw, http.StatusInternalServerError, "internal", "failed to record delete")
		return
	}
	httpserver.Respond(rw, http.StatusAccepted, nil)
}

type upvoteRequest struct {
	ChunkIDs []string `json:"chunk_ids"`
	Queries  []string `json:"queries"`
}

func (w *Worker) handleUpvote(rw http.ResponseWriter, r *http.Request) {
	var req upvoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ChunkIDs) == 0 {
		httpserver.RespondError(rw, http.StatusBadRequest, "invalid_argument", "at least one chunk_id is required")
		return
	}
	rec := updatelog.Record{Kind: updatelog.KindUpvote, Upvote: &updatelog.UpvotePayload{ChunkIDs: req.ChunkIDs, Queries: req.Queries}}
	if err := w.appender.Append(rec); err != nil {
		httpserver.RespondError(rw, http.StatusInternalServerError, "internal", "failed to record upvote")
		return
	}
	httpserver.Respond(rw, http.StatusAccepted, nil)
}

type associateRequest struct {
	Sources []string `json:"sources"`
	Targets []string `json:"targets"`
}

func (w *Worker) handleAssociate(rw http.ResponseWriter, r *http.Request) {
	var req associateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Sources) == 0 || len(req.Targets) == 0 {
		httpserver.RespondError(rw, http.StatusBadRequest, "invalid_argument", "sources and targets are required")
		return
	}
	rec := updatelog.Record{Kind: updatelog.KindAssociate, Associate: &updatelog.AssociatePayload{Sources: req.Sources, Targets: req.Targets}}
	if err := w.appender.Append(rec); err != nil {
		httpserver.RespondError(rw, http.StatusInternalServerError, "internal", "failed to record associate")
		return
	}
	httpserver.Respond(rw, http.StatusAccepted, nil)
}

type saveRequest struct {
	ArtifactPath string `json:"artifact_path"`
	ModelName    string `json:"model_name"`
}

// handleSave persists the in-memory model to the given artifact path. It
// runs against whatever the writer has accumulated so far; ModelName is
// accepted but unused here, since registering a derived Model row is the
// control plane's job, not the worker's.
func (w *Worker) handleSave(rw http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ArtifactPath == "" {
		httpserver.RespondError(rw, http.StatusBadRequest, "invalid_argument", "artifact_path is required")
		return
	}
	if err := w.model.Save(r.Context(), req.ArtifactPath); err != nil {
		httpserver.RespondError(rw, http.StatusInternalServerError, "internal", "save failed")
		return
	}
	httpserver.Respond(rw, http.StatusOK, nil)
}
