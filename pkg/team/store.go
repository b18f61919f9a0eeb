package team

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/db"
)

// Store provides database operations for teams and their memberships.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a team Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

func (s *Store) scanTeam(row pgx.Row) (Response, error) {
	var r Response
	err := row.Scan(&r.ID, &r.Name, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// Create inserts a new team.
func (s *Store) Create(ctx context.Context, name string) (Response, error) {
	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO teams (name) VALUES ($1) RETURNING id, name, created_at, updated_at`,
		name,
	)
	return s.scanTeam(row)
}

// Get returns a single team by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Response, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT id, name, created_at, updated_at FROM teams WHERE id = $1`, id)
	return s.scanTeam(row)
}

// List returns all teams ordered by name.
func (s *Store) List(ctx context.Context) ([]Response, error) {
	rows, err := s.dbtx.Query(ctx, `SELECT id, name, created_at, updated_at FROM teams ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var items []Response
	for rows.Next() {
		r, err := s.scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

// Update renames a team.
func (s *Store) Update(ctx context.Context, id uuid.UUID, name string) (Response, error) {
	row := s.dbtx.QueryRow(ctx,
		`UPDATE teams SET name = $2, updated_at = now() WHERE id = $1 RETURNING id, name, created_at, updated_at`,
		id, name,
	)
	return s.scanTeam(row)
}

// Delete removes a team and its memberships.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.dbtx.Exec(ctx, `DELETE FROM user_teams WHERE team_id = $1`, id); err != nil {
		return fmt.Errorf("removing team memberships: %w", err)
	}
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddMember inserts or updates a membership row.
func (s *Store) AddMember(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO user_teams (team_id, user_id, role) VALUES ($1, $2, $3)
		 ON CONFLICT (team_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		teamID, userID, role,
	)
	if err != nil {
		return fmt.Errorf("adding team member: %w", err)
	}
	return nil
}

// UpdateMemberRole changes an existing member's role.
func (s *Store) UpdateMemberRole(ctx context.Context, teamID, userID uuid.UUID, role string) error {
	tag, err := s.dbtx.Exec(ctx,
		`UPDATE user_teams SET role = $3 WHERE team_id = $1 AND user_id = $2`,
		teamID, userID, role,
	)
	if err != nil {
		return fmt.Errorf("updating member role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RemoveMember deletes a membership row.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM user_teams WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return fmt.Errorf("removing team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListMembers returns every member of a team, joined with username.
func (s *Store) ListMembers(ctx context.Context, teamID uuid.UUID) ([]MemberResponse, error) {
	rows, err := s.dbtx.Query(ctx, `
		SELECT ut.team_id, ut.user_id, u.username, ut.role, ut.joined_at
		FROM user_teams ut
		JOIN users u ON u.id = ut.user_id
		WHERE ut.team_id = $1
		ORDER BY u.username`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	var items []MemberResponse
	for rows.Next() {
		var m MemberResponse
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning team member row: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// IsTeamAdmin reports whether userID is the team_admin for the given team —
// used by pkg/auth's authorization rule on write operations against a
// protected model owned by teamID.
func (s *Store) IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := s.dbtx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM user_teams WHERE team_id = $1 AND user_id = $2 AND role = $3)`,
		teamID, userID, RoleTeamAdmin,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking team admin: %w", err)
	}
	return exists, nil
}
