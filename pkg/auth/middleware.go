package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/httpserver"
)

// IdentityLookup resolves a session token's bare user id into a full
// Identity (global_admin flag, domain, display fields). Kept as an
// interface to avoid pkg/auth importing pkg/user.
type IdentityLookup interface {
	GetIdentity(ctx context.Context, userID uuid.UUID) (*Identity, error)
}

// PATVerifier authenticates a raw personal access token (bazaarctl CLI auth).
type PATVerifier interface {
	Authenticate(ctx context.Context, rawToken string) (*Identity, error)
}

// PATPrefix identifies tokens handled by PATVerifier rather than TokenManager.
const PATPrefix = "bzctl_pat_"

// RequireAuth authenticates the caller via personal access token or session
// bearer JWT and stores the resulting Identity in the request context.
// Unlike the teacher's middleware there is no dev-header fallback: every
// non-login endpoint requires a real credential (spec.md §6).
func RequireAuth(tm *TokenManager, identities IdentityLookup, patAuth PATVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") && !strings.HasPrefix(authHeader, "bearer ") {
				respondUnauthorized(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(authHeader, "Bearer "), "bearer "))
			if raw == "" {
				respondUnauthorized(w, "empty bearer token")
				return
			}

			var identity *Identity

			if strings.HasPrefix(raw, PATPrefix) && patAuth != nil {
				id, err := patAuth.Authenticate(r.Context(), raw)
				if err != nil {
					logger.Warn("PAT authentication failed", "error", err)
					respondUnauthorized(w, "invalid personal access token")
					return
				}
				identity = id
			}

			if identity == nil {
				claims, err := tm.Verify(raw, TokenKindSession)
				if err != nil {
					logger.Debug("session token verification failed", "error", err)
					respondUnauthorized(w, "invalid or expired token")
					return
				}
				userID, err := uuid.Parse(claims.UserID)
				if err != nil {
					respondUnauthorized(w, "malformed token subject")
					return
				}
				resolved, err := identities.GetIdentity(r.Context(), userID)
				if err != nil {
					logger.Warn("identity lookup failed", "user_id", userID, "error", err)
					respondUnauthorized(w, "user not found")
					return
				}
				resolved.Method = MethodPassword
				identity = resolved
			}

			ctx := NewContext(r.Context(), identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireGlobalAdmin wraps a handler so only global-admin identities reach it.
func RequireGlobalAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity := FromContext(r.Context())
		if identity == nil || !identity.GlobalAdmin {
			respondForbidden(w, "global admin privileges required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// VerifyJobToken validates a job token presented by a deployment worker
// against the model/deployment pair encoded in the request, returning the
// claims for the caller to compare. Used directly by the handler for
// POST /deploy/update-status rather than through generic middleware, since
// the credential scopes a job rather than a user.
func VerifyJobToken(tm *TokenManager, raw string) (*Claims, error) {
	return tm.Verify(raw, TokenKindJob)
}

// VerifyCacheToken validates a cache-scope token presented to the /cache/*
// proxy endpoints.
func VerifyCacheToken(tm *TokenManager, raw string) (*Claims, error) {
	return tm.Verify(raw, TokenKindCache)
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", message)
}

func respondForbidden(w http.ResponseWriter, message string) {
	httpserver.RespondError(w, http.StatusForbidden, "forbidden", message)
}
