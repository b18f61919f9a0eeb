package catalog

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/internal/httpserver"
)

// Handler provides the read-only catalog HTTP surface.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

// NewHandler creates a catalog Handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger) *Handler {
	return &Handler{dbtx: dbtx, logger: logger}
}

// Routes returns a chi.Router with catalog routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Get("/{id}", h.handleGet)
	return r
}

func (h *Handler) store() *Store {
	return NewStore(h.dbtx)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	task := r.URL.Query().Get("task")
	items, err := h.store().List(r.Context(), task)
	if err != nil {
		h.logger.Error("listing catalog entries", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list catalog entries")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"entries": items, "count": len(items)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid catalog entry ID")
		return
	}
	entry, err := h.store().Get(r.Context(), id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "catalog entry not found")
		return
	}
	httpserver.Respond(w, http.StatusOK, entry)
}
