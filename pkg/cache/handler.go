package cache

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/httpserver"
)

// TokenIssuer issues cache-scope bearer tokens, satisfied by
// pkg/auth.TokenManager.IssueCacheToken without pkg/cache importing pkg/auth
// directly.
type TokenIssuer interface {
	IssueCacheToken(modelID uuid.UUID) (string, error)
}

// Handler exposes the cache HTTP surface: insert/query/suggestions/
// invalidate/token, each scoped by model_id.
type Handler struct {
	service *Service
	tokens  TokenIssuer
	logger  *slog.Logger
}

// NewHandler creates a cache Handler.
func NewHandler(service *Service, tokens TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{service: service, tokens: tokens, logger: logger}
}

// Routes returns a chi.Router with cache routes mounted, matching the
// /cache/* surface pkg/bazaar proxies to.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/insert", h.handleInsert)
	r.Get("/query", h.handleQuery)
	r.Get("/suggestions", h.handleSuggestions)
	r.Post("/invalidate", h.handleInvalidate)
	r.Get("/token", h.handleToken)
	return r
}

func parseModelID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.URL.Query().Get("model_id"))
}

func (h *Handler) handleInsert(w http.ResponseWriter, r *http.Request) {
	modelID, err := parseModelID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model_id")
		return
	}
	query := r.URL.Query().Get("query")
	llmRes := r.URL.Query().Get("llm_res")
	if query == "" || llmRes == "" {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "query and llm_res are required")
		return
	}
	if err := h.service.Insert(r.Context(), modelID, query, llmRes); err != nil {
		h.logger.Error("cache insert", "error", err, "model_id", modelID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to insert cache entry")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"inserted": true})
}

func (h *Handler) handleQuery(w http.ResponseWriter, r *http.Request) {
	modelID, err := parseModelID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model_id")
		return
	}
	query := r.URL.Query().Get("query")

	entry, err := h.service.Query(r.Context(), modelID, query)
	if err != nil {
		h.logger.Error("cache query", "error", err, "model_id", modelID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to query cache")
		return
	}
	if entry == nil {
		httpserver.Respond(w, http.StatusOK, map[string]any{"cached_response": nil})
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"cached_response": map[string]any{"llm_res": entry.LLMResponse}})
}

func (h *Handler) handleSuggestions(w http.ResponseWriter, r *http.Request) {
	modelID, err := parseModelID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model_id")
		return
	}
	query := r.URL.Query().Get("query")

	suggestions, err := h.service.Suggestions(r.Context(), modelID, query)
	if err != nil {
		h.logger.Error("cache suggestions", "error", err, "model_id", modelID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list suggestions")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"suggestions": suggestions})
}

func (h *Handler) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	modelID, err := parseModelID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model_id")
		return
	}
	if err := h.service.Invalidate(r.Context(), modelID); err != nil {
		h.logger.Error("cache invalidate", "error", err, "model_id", modelID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to invalidate cache")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"invalidated": true})
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	modelID, err := parseModelID(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "invalid_argument", "invalid model_id")
		return
	}
	token, err := h.tokens.IssueCacheToken(modelID)
	if err != nil {
		h.logger.Error("issuing cache token", "error", err, "model_id", modelID)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to issue cache token")
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]any{"token": token})
}
