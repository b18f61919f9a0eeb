package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/httpserver"
)

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued session token.
type LoginResponse struct {
	Token string `json:"token"`
}

// PasswordResetRequest is the JSON body for POST /auth/password-reset.
type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// PasswordResetConfirmRequest is the JSON body for
// POST /auth/password-reset/confirm.
type PasswordResetConfirmRequest struct {
	Code        string `json:"code" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// PasswordResetCompleter is the optional capability PasswordBackend offers
// beyond the Backend interface: consuming a reset code. OIDCBackend does not
// implement it, so LoginHandler type-asserts rather than widening Backend.
type PasswordResetCompleter interface {
	CompletePasswordReset(ctx context.Context, code, newPassword string) error
}

// LoginHandler authenticates callers against a Backend and issues session
// tokens. Failed attempts are rate-limited per client IP.
type LoginHandler struct {
	tm          *TokenManager
	backend     Backend
	identities  IdentityLookup
	rateLimiter *RateLimiter
	logger      *slog.Logger
}

// NewLoginHandler creates a LoginHandler. rateLimiter may be nil to disable
// login throttling (used in tests).
func NewLoginHandler(tm *TokenManager, backend Backend, identities IdentityLookup, rateLimiter *RateLimiter, logger *slog.Logger) *LoginHandler {
	return &LoginHandler{tm: tm, backend: backend, identities: identities, rateLimiter: rateLimiter, logger: logger}
}

func clientIP(r *http.Request) string {
	if idx := strings.LastIndex(r.RemoteAddr, ":"); idx != -1 {
		return r.RemoteAddr[:idx]
	}
	return r.RemoteAddr
}

// HandleLogin authenticates a username/password pair and issues a session
// token — spec.md §4.A.
func (h *LoginHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)

	if h.rateLimiter != nil {
		result, err := h.rateLimiter.Check(r.Context(), ip)
		if err != nil {
			h.logger.Error("login: rate limit check failed", "error", err)
			httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to process login")
			return
		}
		if !result.Allowed {
			httpserver.RespondError(w, http.StatusTooManyRequests, "rate_limited", "too many failed login attempts, try again later")
			return
		}
	}

	var req LoginRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	userID, err := h.backend.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if h.rateLimiter != nil {
			_ = h.rateLimiter.Record(r.Context(), ip)
		}
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid username or password")
		return
	}

	if h.rateLimiter != nil {
		_ = h.rateLimiter.Reset(r.Context(), ip)
	}

	token, err := h.tm.IssueSession(userID)
	if err != nil {
		h.logger.Error("login: issuing session token", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	httpserver.Respond(w, http.StatusOK, LoginResponse{Token: token})
}

// HandleRefresh reissues a new session token for a caller presenting a
// still-valid one, so a client never has to fall back to a full re-login
// just because its token is nearing expiry — spec.md §4.A.
func (h *LoginHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(authHeader, "Bearer "), "bearer "))
	if raw == "" {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return
	}

	claims, err := h.tm.Verify(raw, TokenKindSession)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired token")
		return
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "malformed token subject")
		return
	}

	token, err := h.tm.IssueSession(userID)
	if err != nil {
		h.logger.Error("refresh: issuing session token", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}

	httpserver.Respond(w, http.StatusOK, LoginResponse{Token: token})
}

// HandleMe returns the caller's own Identity, resolved by RequireAuth.
func (h *LoginHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	identity := FromContext(r.Context())
	if identity == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "no authenticated user")
		return
	}
	httpserver.Respond(w, http.StatusOK, identity)
}

// HandlePasswordReset starts a password reset: POST /auth/password-reset.
// Always responds 202 regardless of whether the email is registered, to
// avoid leaking account existence.
func (h *LoginHandler) HandlePasswordReset(w http.ResponseWriter, r *http.Request) {
	var req PasswordResetRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := h.backend.ResetPassword(r.Context(), req.Email); err != nil {
		h.logger.Error("login: starting password reset", "error", err)
	}
	httpserver.RespondMessage(w, http.StatusAccepted, "if the email is registered, a reset code has been sent", nil)
}

// HandlePasswordResetConfirm completes a password reset with a reset code.
// Only available when the configured Backend is password-based.
func (h *LoginHandler) HandlePasswordResetConfirm(w http.ResponseWriter, r *http.Request) {
	completer, ok := h.backend.(PasswordResetCompleter)
	if !ok {
		httpserver.RespondError(w, http.StatusNotImplemented, "not_implemented", "password reset is not available for this identity backend")
		return
	}

	var req PasswordResetConfirmRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	if err := completer.CompletePasswordReset(r.Context(), req.Code, req.NewPassword); err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid or expired reset code")
		return
	}
	httpserver.RespondMessage(w, http.StatusOK, "password updated", nil)
}
