package usage

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/internal/httpserver"
)

// Handler exposes read-only per-model usage counters.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

// NewHandler creates a usage Handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger) *Handler {
	return &Handler{dbtx: dbtx, logger: logger}
}

// Routes returns a chi.Router with usage routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{model_id}", h.handleGet)
	return r
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	modelID, err := uuid.Parse(chi.URLParam(r, "model_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model ID")
		return
	}
	counters, err := NewStore(h.dbtx).Get(r.Context(), modelID)
	if err != nil {
		h.logger.Error("getting usage counters", "error", err, "model_id", modelID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to get usage")
		return
	}
	httpserver.Respond(w, http.StatusOK, counters)
}
