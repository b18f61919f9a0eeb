package auth

import (
	"context"

	"github.com/google/uuid"
)

// Backend is the pluggable identity-provider capability set spec.md §9
// describes: authenticate, create_user, delete_user, reset_password. Two
// implementations exist: PasswordBackend and OIDCBackend.
type Backend interface {
	// Authenticate verifies credentials and returns the local user id.
	Authenticate(ctx context.Context, identifier, secret string) (uuid.UUID, error)
	CreateUser(ctx context.Context, username, email, secret string) (uuid.UUID, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ResetPassword(ctx context.Context, email string) error
}
