// Package auth implements the identity and permission resolver (component A):
// bearer token issuance/verification, pluggable password/OIDC backends, the
// model access-control rule, and a Redis-backed permission cache.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Authentication methods recorded on an Identity for audit purposes.
const (
	MethodPassword = "password"
	MethodOIDC     = "oidc"
	MethodAPIKey   = "apikey"
	MethodPAT      = "pat"
	MethodJobToken = "job_token"
	MethodCache    = "cache_token"
)

// Identity is the authenticated caller attached to every request context.
type Identity struct {
	UserID      uuid.UUID  `json:"user_id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	GlobalAdmin bool       `json:"global_admin"`
	Domain      string     `json:"domain"`
	APIKeyID    *uuid.UUID `json:"api_key_id,omitempty"`
	Method      string     `json:"method"`
}

type contextKey string

const identityKey contextKey = "auth_identity"

// NewContext returns a copy of ctx carrying id.
func NewContext(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext extracts the Identity stored by the auth middleware, or nil.
func FromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}
