package team

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

// Handler provides HTTP handlers for the teams API.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
	audit  *audit.Writer
}

// NewHandler creates a team Handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger, auditWriter *audit.Writer) *Handler {
	return &Handler{dbtx: dbtx, logger: logger, audit: auditWriter}
}

// Routes returns a chi.Router with all team routes mounted.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.handleGet)
		r.Put("/", h.handleUpdate)
		r.Delete("/", h.handleDelete)

		r.Get("/members", h.handleListMembers)
		r.Post("/members", h.handleAddMember)
		r.Put("/members/{userID}", h.handleUpdateMember)
		r.Delete("/members/{userID}", h.handleRemoveMember)
	})
	return r
}

func (h *Handler) service() *Service {
	return NewService(h.dbtx)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	resp, err := h.service().Create(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("creating team", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to create team")
		return
	}
	if h.audit != nil {
		detail, _ := json.Marshal(map[string]string{"name": resp.Name})
		h.audit.LogFromRequest(r, "create", "team", &resp.ID, detail)
	}
	httpserver.Respond(w, http.StatusCreated, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.service().List(r.Context())
	if err != nil {
		h.logger.Error("listing teams", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list teams")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"teams": items, "count": len(items)})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	resp, err := h.service().Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
		h.logger.Error("getting team", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to get team")
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	var req UpdateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	resp, err := h.service().Update(r.Context(), id, req.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
		h.logger.Error("updating team", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to update team")
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	identity := auth.FromContext(r.Context())
	if identity == nil || !identity.GlobalAdmin {
		httpserver.RespondError(w, http.StatusForbidden, "forbidden", "only a global admin may delete a team")
		return
	}
	if err := h.service().Delete(r.Context(), id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "team not found")
			return
		}
		h.logger.Error("deleting team", "error", err, "id", id)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to delete team")
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "delete", "team", &id, nil)
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) handleListMembers(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	items, err := h.service().ListMembers(r.Context(), teamID)
	if err != nil {
		h.logger.Error("listing team members", "error", err, "team_id", teamID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list members")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"members": items, "count": len(items)})
}

func (h *Handler) handleAddMember(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	var req AddMemberRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := h.service().AddMember(r.Context(), teamID, req.UserID, req.Role); err != nil {
		h.logger.Error("adding team member", "error", err, "team_id", teamID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to add member")
		return
	}
	if h.audit != nil {
		detail, _ := json.Marshal(map[string]string{"user_id": req.UserID.String(), "role": req.Role})
		h.audit.LogFromRequest(r, "add_member", "team", &teamID, detail)
	}
	httpserver.Respond(w, http.StatusCreated, nil)
}

func (h *Handler) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid user ID")
		return
	}
	var req UpdateMemberRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := h.service().UpdateMemberRole(r.Context(), teamID, userID, req.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "membership not found")
			return
		}
		h.logger.Error("updating team member", "error", err, "team_id", teamID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to update member")
		return
	}
	httpserver.Respond(w, http.StatusOK, nil)
}

func (h *Handler) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	teamID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid team ID")
		return
	}
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid user ID")
		return
	}
	if err := h.service().RemoveMember(r.Context(), teamID, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			httpserver.RespondError(w, http.StatusNotFound, "not_found", "membership not found")
			return
		}
		h.logger.Error("removing team member", "error", err, "team_id", teamID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to remove member")
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}
