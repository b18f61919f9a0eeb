package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/pkg/auth"
)

// Service encapsulates user business logic.
type Service struct {
	store   *Store
	backend auth.Backend
	logger  *slog.Logger
}

// NewService creates a user Service. backend is the pluggable identity
// backend (password or OIDC) used for signup and credential deletion.
func NewService(dbtx db.DBTX, backend auth.Backend, logger *slog.Logger) *Service {
	return &Service{
		store:   NewStore(dbtx),
		backend: backend,
		logger:  logger,
	}
}

// List returns all users.
func (s *Service) List(ctx context.Context) ([]Response, error) {
	rows, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	items := make([]Response, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].ToResponse())
	}
	return items, nil
}

// Get returns a single user by ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	row, err := s.store.Get(ctx, id)
	if err != nil {
		return Response{}, fmt.Errorf("getting user: %w", err)
	}
	return row.ToResponse(), nil
}

// Signup creates a new user through the configured identity backend and
// returns its row.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (Response, error) {
	userID, err := s.backend.CreateUser(ctx, req.Username, req.Email, req.Password)
	if err != nil {
		return Response{}, fmt.Errorf("creating user: %w", err)
	}
	if req.Domain != "" {
		if _, err := s.store.Update(ctx, userID, req.Email, req.Domain); err != nil {
			return Response{}, fmt.Errorf("setting domain: %w", err)
		}
	}
	row, err := s.store.Get(ctx, userID)
	if err != nil {
		return Response{}, fmt.Errorf("reloading created user: %w", err)
	}
	return row.ToResponse(), nil
}

// Update updates a user's editable profile fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (Response, error) {
	row, err := s.store.Update(ctx, id, req.Email, req.Domain)
	if err != nil {
		return Response{}, fmt.Errorf("updating user: %w", err)
	}
	return row.ToResponse(), nil
}

// Delete removes a user — admin only, per spec.md §3 — reassigning their
// owned models before the row is removed.
func (s *Service) Delete(ctx context.Context, id, reassignAdminID uuid.UUID) error {
	if err := s.store.Delete(ctx, id, reassignAdminID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if err := s.backend.DeleteUser(ctx, id); err != nil {
		s.logger.Warn("backend delete-user failed after row removal", "user_id", id, "error", err)
	}
	return nil
}
