package bazaar

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/apierr"
	"github.com/modelbazaar/controlplane/internal/audit"
	"github.com/modelbazaar/controlplane/internal/httpserver"
	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/cache"
)

// Handler provides HTTP handlers for the control-plane orchestration API.
type Handler struct {
	service *Service
	logger  *slog.Logger
	audit   *audit.Writer
	cache   *cache.Handler
}

// NewHandler creates a bazaar Handler. cache may be nil, in which case the
// /cache/* proxy routes are not mounted (used in tests that don't exercise
// the cache surface).
func NewHandler(service *Service, logger *slog.Logger, auditWriter *audit.Writer, cacheHandler *cache.Handler) *Handler {
	return &Handler{service: service, logger: logger, audit: auditWriter, cache: cacheHandler}
}

// Routes returns a chi.Router with the orchestration endpoints mounted,
// plus the /cache/* proxy surface spec.md §6 describes as delegating to (G)
// with model-scope bearer tokens. Like update-status, /cache/* authenticates
// differently from the rest of this router (cache-scope tokens rather than
// session tokens); the caller applies session auth to this router and must
// apply cache-token auth to the /cache prefix specifically before mounting
// it, the same way update-status is mounted outside this router entirely.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/train", h.handleTrain)
	r.Post("/deploy/{model_id}", h.handleDeploy)
	r.Post("/deploy/{model_id}/save", h.handleSave)
	r.Delete("/deploy/{model_id}", h.handleUndeploy)
	r.Post("/workflow/enterprise-search", h.handleEnterpriseSearch)
	r.Post("/backup", h.handleBackup)
	r.Get("/models/{model_id}", h.handleGet)
	if h.cache != nil {
		r.Mount("/cache", h.cache.Routes())
	}
	return r
}

// UpdateStatusRoute returns the standalone update-status handler, mounted
// by the caller behind job-token authentication instead of session auth.
func (h *Handler) UpdateStatusRoute() http.HandlerFunc {
	return h.handleUpdateStatus
}

func (h *Handler) respondAPIErr(w http.ResponseWriter, err error) {
	httpserver.RespondError(w, apierr.Status(err), string(apierr.KindOf(err)), apierr.MessageOf(err))
}

func identityOrForbidden(w http.ResponseWriter, r *http.Request) *auth.Identity {
	identity := auth.FromContext(r.Context())
	if identity == nil {
		httpserver.RespondError(w, http.StatusForbidden, "forbidden", "authentication required")
		return nil
	}
	return identity
}

func (h *Handler) handleTrain(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	var req TrainRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	resp, err := h.service.Train(r.Context(), identity, req)
	if err != nil {
		h.respondAPIErr(w, err)
		return
	}
	if h.audit != nil {
		detail, _ := json.Marshal(map[string]string{"name": resp.Name, "type": string(resp.Type)})
		h.audit.LogFromRequest(r, "train", "model", &resp.ID, detail)
	}
	httpserver.Respond(w, http.StatusCreated, map[string]any{"model_id": resp.ID})
}

func (h *Handler) handleDeploy(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	modelID, err := uuid.Parse(chi.URLParam(r, "model_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model ID")
		return
	}
	var req DeployRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // body is optional

	deploymentID, err := h.service.Deploy(r.Context(), identity, modelID, req)
	if err != nil {
		h.respondAPIErr(w, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "deploy", "model", &modelID, nil)
	}
	httpserver.Respond(w, http.StatusAccepted, map[string]any{"deployment_id": deploymentID})
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := h.service.UpdateDeployStatus(r.Context(), req); err != nil {
		h.respondAPIErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, nil)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	modelID, err := uuid.Parse(chi.URLParam(r, "model_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model ID")
		return
	}
	var req SaveRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	resp, err := h.service.Save(r.Context(), identity, modelID, req)
	if err != nil {
		h.respondAPIErr(w, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "save", "model", &modelID, nil)
	}
	if resp == nil {
		httpserver.Respond(w, http.StatusOK, nil)
		return
	}
	httpserver.Respond(w, http.StatusCreated, map[string]any{"model_id": resp.ID})
}

func (h *Handler) handleUndeploy(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	modelID, err := uuid.Parse(chi.URLParam(r, "model_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model ID")
		return
	}
	if err := h.service.Undeploy(r.Context(), identity, modelID); err != nil {
		h.respondAPIErr(w, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "undeploy", "model", &modelID, nil)
	}
	httpserver.Respond(w, http.StatusOK, nil)
}

func (h *Handler) handleEnterpriseSearch(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	var req EnterpriseSearchRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	resp, err := h.service.EnterpriseSearch(r.Context(), identity, req)
	if err != nil {
		h.respondAPIErr(w, err)
		return
	}
	if h.audit != nil {
		detail, _ := json.Marshal(map[string]string{"name": resp.Name})
		h.audit.LogFromRequest(r, "create_workflow", "model", &resp.ID, detail)
	}
	httpserver.Respond(w, http.StatusCreated, map[string]any{"model_id": resp.ID})
}

func (h *Handler) handleBackup(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	var req struct {
		ModelID uuid.UUID `json:"model_id" validate:"required"`
	}
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	backupID, err := h.service.Backup(r.Context(), identity, req.ModelID)
	if err != nil {
		h.respondAPIErr(w, err)
		return
	}
	if h.audit != nil {
		h.audit.LogFromRequest(r, "backup", "model", &req.ModelID, nil)
	}
	httpserver.Respond(w, http.StatusAccepted, map[string]any{"backup_id": backupID})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	identity := identityOrForbidden(w, r)
	if identity == nil {
		return
	}
	modelID, err := uuid.Parse(chi.URLParam(r, "model_id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model ID")
		return
	}
	resp, err := h.service.Get(r.Context(), identity, modelID)
	if err != nil {
		h.respondAPIErr(w, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, resp)
}
