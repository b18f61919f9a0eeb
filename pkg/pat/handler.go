package pat

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/internal/httpserver"
	"github.com/modelbazaar/controlplane/pkg/auth"
)

// Handler provides HTTP handlers for personal access token management.
type Handler struct {
	dbtx   db.DBTX
	logger *slog.Logger
}

// NewHandler creates a PAT handler.
func NewHandler(dbtx db.DBTX, logger *slog.Logger) *Handler {
	return &Handler{dbtx: dbtx, logger: logger}
}

// Routes returns a chi.Router with PAT routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Get("/", h.handleList)
	r.Delete("/{id}", h.handleDelete)
	return r
}

func (h *Handler) store() *Store {
	return NewStore(h.dbtx)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if identity == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "user identity required")
		return
	}

	var req CreateRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	rawToken, prefix, tokenHash, err := GenerateToken()
	if err != nil {
		h.logger.Error("generating token", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to generate token")
		return
	}

	var expiresAt *time.Time
	if req.ExpiresIn != nil && *req.ExpiresIn > 0 {
		t := time.Now().AddDate(0, 0, *req.ExpiresIn)
		expiresAt = &t
	}

	token, err := h.store().Create(r.Context(), identity.UserID, req.Name, tokenHash, prefix, expiresAt)
	if err != nil {
		h.logger.Error("creating token", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to create token")
		return
	}

	httpserver.Respond(w, http.StatusCreated, CreateResponse{
		Token:    *token,
		RawToken: rawToken,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if identity == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "user identity required")
		return
	}

	tokens, err := h.store().ListByUser(r.Context(), identity.UserID)
	if err != nil {
		h.logger.Error("listing tokens", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal", "failed to list tokens")
		return
	}
	if tokens == nil {
		tokens = []Token{}
	}

	httpserver.Respond(w, http.StatusOK, ListResponse{
		Tokens: tokens,
		Count:  len(tokens),
	})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	identity := auth.FromContext(r.Context())
	if identity == nil {
		httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "user identity required")
		return
	}

	tokenID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "invalid token ID")
		return
	}

	if err := h.store().Delete(r.Context(), tokenID, identity.UserID); err != nil {
		h.logger.Error("deleting token", "error", err)
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "token not found")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// HashToken computes the SHA-256 hex digest of a raw PAT string.
func HashToken(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(h[:])
}

// prefixLen is the length of the stored, queryable prefix: TokenPrefix plus
// the first 8 hex characters of the random suffix.
const prefixLen = len(TokenPrefix) + 8

// GenerateToken creates a new random PAT string and returns (rawToken, prefix, hash).
func GenerateToken() (raw, prefix, hash string, err error) {
	rawBytes := make([]byte, 16)
	if _, err := rand.Read(rawBytes); err != nil {
		return "", "", "", fmt.Errorf("generating random bytes: %w", err)
	}
	raw = TokenPrefix + hex.EncodeToString(rawBytes)
	prefix = raw[:prefixLen]
	hash = HashToken(raw)
	return raw, prefix, hash, nil
}

// Authenticator verifies raw personal access tokens presented as bearer
// credentials and resolves them to a full Identity. It satisfies
// auth.PATVerifier.
type Authenticator struct {
	store      *Store
	identities auth.IdentityLookup
}

// NewAuthenticator wires a PAT Authenticator.
func NewAuthenticator(dbtx db.DBTX, identities auth.IdentityLookup) *Authenticator {
	return &Authenticator{store: NewStore(dbtx), identities: identities}
}

// Authenticate looks up rawToken by its prefix, verifies its hash and
// expiry, and resolves the owning user to a full Identity.
func (a *Authenticator) Authenticate(ctx context.Context, rawToken string) (*auth.Identity, error) {
	if len(rawToken) < prefixLen {
		return nil, fmt.Errorf("malformed personal access token")
	}
	prefix := rawToken[:prefixLen]

	storedHash, userID, expiresAt, err := a.store.FindByPrefix(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("unknown personal access token")
	}
	if expiresAt != nil && time.Now().After(*expiresAt) {
		return nil, fmt.Errorf("personal access token expired")
	}
	if subtle.ConstantTimeCompare([]byte(HashToken(rawToken)), []byte(storedHash)) != 1 {
		return nil, fmt.Errorf("personal access token mismatch")
	}

	identity, err := a.identities.GetIdentity(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolving token owner: %w", err)
	}
	identity.Method = auth.MethodPAT

	a.store.UpdateLastUsed(ctx, prefix)
	return identity, nil
}
