package team

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/modelbazaar/controlplane/internal/db"
)

// Service encapsulates team business logic.
type Service struct {
	store *Store
}

// NewService creates a team Service.
func NewService(dbtx db.DBTX) *Service {
	return &Service{store: NewStore(dbtx)}
}

func (s *Service) Create(ctx context.Context, name string) (Response, error) {
	r, err := s.store.Create(ctx, name)
	if err != nil {
		return Response{}, fmt.Errorf("creating team: %w", err)
	}
	return r, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]Response, error) {
	return s.store.List(ctx)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, name string) (Response, error) {
	return s.store.Update(ctx, id, name)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

func (s *Service) ListMembers(ctx context.Context, teamID uuid.UUID) ([]MemberResponse, error) {
	return s.store.ListMembers(ctx, teamID)
}

func (s *Service) AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	if !isValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	return s.store.AddMember(ctx, teamID, userID, role)
}

func (s *Service) UpdateMemberRole(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	if !isValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}
	return s.store.UpdateMemberRole(ctx, teamID, userID, role)
}

func (s *Service) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	return s.store.RemoveMember(ctx, teamID, userID)
}
