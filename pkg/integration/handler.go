package integration

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/apierr"
	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/internal/httpserver"
)

var validate = validator.New()

// CreateIntegrationRequest is the JSON body for POST /integrations.
type CreateIntegrationRequest struct {
	Type Type            `json:"type" validate:"required,oneof=openai self_hosted anthropic cohere"`
	Name string          `json:"name" validate:"required,max=128"`
	Data json.RawMessage `json:"data" validate:"required"`
}

// Handler exposes admin-only CRUD for integration configuration. No
// provider credentials are ever echoed back in responses.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

// NewHandler creates an integration Handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger) *Handler {
	return &Handler{dbtx: dbtx, logger: logger}
}

// Routes returns a chi.Router with integration routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := NewStore(h.dbtx).List(r.Context())
	if err != nil {
		h.logger.Error("listing integrations", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list integrations")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"integrations": redactAll(items)})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, "invalid_argument", err.Error())
		return
	}
	created, err := NewStore(h.dbtx).Create(r.Context(), CreateParams{Type: req.Type, Name: req.Name, Data: req.Data})
	if err != nil {
		h.logger.Error("creating integration", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to create integration")
		return
	}
	httpserver.Respond(w, http.StatusCreated, redact(created))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid integration ID")
		return
	}
	if err := NewStore(h.dbtx).Delete(r.Context(), id); err != nil {
		httpserver.RespondAPIError(w, apierr.New(apierr.NotFound, "integration not found"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// redact clears the opaque config blob before a row is ever returned to a
// client; credentials live in the database only.
func redact(i Integration) Integration {
	i.Data = json.RawMessage(`{}`)
	return i
}

func redactAll(items []Integration) []Integration {
	out := make([]Integration, len(items))
	for i, it := range items {
		out[i] = redact(it)
	}
	return out
}
