package user

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/audit"
	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/internal/httpserver"
	"github.com/modelbazaar/controlplane/pkg/auth"
)

// Handler provides HTTP handlers for the users API.
type Handler struct {
	dbtx    db.DBTX
	backend auth.Backend
	logger  *slog.Logger
	audit   *audit.Writer
}

// NewHandler creates a user Handler.
func NewHandler(dbtx db.DBTX, backend auth.Backend, logger *slog.Logger, auditWriter *audit.Writer) *Handler {
	return &Handler{dbtx: dbtx, backend: backend, logger: logger, audit: auditWriter}
}

// Routes returns a chi.Router with all user routes mounted under /users.
// Signup is mounted separately since it precedes authentication.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)
	})
	return r
}

func (h *Handler) service() *Service {
	return NewService(h.dbtx, h.backend, h.logger)
}

// HandleSignup handles POST /api/v1/users/signup — no auth required.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service().Signup(r.Context(), req)
	if err != nil {
		h.logger.Error("signing up user", "error", err)
		httpserver.RespondError(w, http.StatusConflict, "already_exists", "username or email already registered")
		return
	}

	if h.audit != nil {
		detail, _ := json.Marshal(map[string]string{"username": resp.Username})
		h.audit.LogFromRequest(r, "create", "user", &resp.ID, detail)
	}

	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service().List(r.Context())
	if err != nil {
		h.logger.Error("listing users", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list users")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"users": items, "count": len(items)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid user ID")
		return
	}

	resp, err := h.service().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.logger.Error("getting user", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to get user")
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid user ID")
		return
	}

	identity := auth.FromContext(r.Context())
	if identity == nil || (identity.UserID != id && !identity.GlobalAdmin) {
		httpserver.RespondError(w, http.StatusForbidden, "forbidden", "cannot update another user's profile")
		return
	}

	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	resp, err := h.service().Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.logger.Error("updating user", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to update user")
		return
	}

	if h.audit != nil {
		detail, _ := json.Marshal(map[string]string{"email": resp.Email})
		h.audit.LogFromRequest(r, "update", "user", &resp.ID, detail)
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid user ID")
		return
	}

	identity := auth.FromContext(r.Context())
	if identity == nil || !identity.GlobalAdmin {
		httpserver.RespondError(w, http.StatusForbidden, "forbidden", "only a global admin may delete a user")
		return
	}

	if err := h.service().Delete(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "user not found")
			return
		}
		h.logger.Error("deleting user", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to delete user")
		return
	}

	if h.audit != nil {
		h.audit.LogFromRequest(r, "delete", "user", &id, nil)
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}
