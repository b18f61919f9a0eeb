package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
)

// OIDCClaims are the claims extracted from a verified OIDC ID token.
type OIDCClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
}

// OIDCBackend delegates login to an external identity provider and maps the
// returned subject claim to a local User row, creating it on first sight —
// spec.md §4.A's external OIDC backend.
type OIDCBackend struct {
	verifier *oidc.IDTokenVerifier
	repo     UserRepo
}

// NewOIDCBackend performs OIDC discovery against issuerURL and returns a
// backend that can verify bearer ID tokens issued by that provider.
func NewOIDCBackend(ctx context.Context, issuerURL, clientID string, repo UserRepo) (*OIDCBackend, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("discovering OIDC provider %s: %w", issuerURL, err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &OIDCBackend{verifier: verifier, repo: repo}, nil
}

// VerifyIDToken validates a raw OIDC ID token and returns its claims.
func (b *OIDCBackend) VerifyIDToken(ctx context.Context, rawIDToken string) (*OIDCClaims, error) {
	rawIDToken = strings.TrimPrefix(rawIDToken, "Bearer ")
	rawIDToken = strings.TrimSpace(rawIDToken)
	if rawIDToken == "" {
		return nil, fmt.Errorf("empty ID token")
	}

	idToken, err := b.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying ID token: %w", err)
	}

	var claims OIDCClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("extracting claims: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("token missing sub claim")
	}
	return &claims, nil
}

// Authenticate verifies an ID token and resolves (or creates) the local user
// mapped to its subject claim. identifier is the raw ID token; secret is
// unused but kept to satisfy the Backend interface.
func (b *OIDCBackend) Authenticate(ctx context.Context, rawIDToken, _ string) (uuid.UUID, error) {
	claims, err := b.VerifyIDToken(ctx, rawIDToken)
	if err != nil {
		return uuid.Nil, err
	}

	if rec, err := b.repo.GetByUsername(ctx, claims.Subject); err == nil {
		return rec.ID, nil
	}

	return b.repo.Create(ctx, claims.Subject, claims.Email, "", "")
}

// CreateUser creates the local user row for an OIDC identity directly;
// Authenticate also provisions a row on a subject's first login.
func (b *OIDCBackend) CreateUser(ctx context.Context, username, email, _ string) (uuid.UUID, error) {
	return b.repo.Create(ctx, username, email, "", "")
}

// DeleteUser removes the local mapping for an OIDC-authenticated user.
func (b *OIDCBackend) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	return b.repo.Delete(ctx, userID)
}

// ResetPassword is not applicable to OIDC-delegated identities.
func (b *OIDCBackend) ResetPassword(ctx context.Context, email string) error {
	return fmt.Errorf("password reset is not supported for OIDC-backed users")
}
