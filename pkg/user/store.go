package user

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/pkg/auth"
)

// Store provides database operations for users, satisfying both
// auth.UserRepo (password backend) and auth.IdentityLookup (session
// middleware) so the control-plane wiring needs no adapter shims.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a user Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const userColumns = `id, username, email, password_hash, global_admin, domain, created_at, updated_at`

// Row represents a row returned from the users table.
type Row struct {
	ID           uuid.UUID
	Username     string
	Email        string
	PasswordHash string
	GlobalAdmin  bool
	Domain       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ToResponse converts a Row to a Response DTO.
func (u *Row) ToResponse() Response {
	return Response{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		GlobalAdmin: u.GlobalAdmin,
		Domain:      u.Domain,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

func scanRow(row pgx.Row) (Row, error) {
	var u Row
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.GlobalAdmin, &u.Domain, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// List returns all users ordered by username.
func (s *Store) List(ctx context.Context) ([]Row, error) {
	rows, err := s.dbtx.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var items []Row
	for rows.Next() {
		u, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user row: %w", err)
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

// Get returns a single user by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Row, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanRow(row)
}

// GetByUsername satisfies auth.UserRepo.
func (s *Store) GetByUsername(ctx context.Context, username string) (*auth.UserRecord, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT id, password_hash, email FROM users WHERE username = $1`, username)
	var rec auth.UserRecord
	if err := row.Scan(&rec.ID, &rec.PasswordHash, &rec.Email); err != nil {
		return nil, fmt.Errorf("looking up user %q: %w", username, err)
	}
	return &rec, nil
}

// GetByEmail satisfies auth.UserRepo.
func (s *Store) GetByEmail(ctx context.Context, email string) (*auth.UserRecord, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT id, password_hash, email FROM users WHERE email = $1`, email)
	var rec auth.UserRecord
	if err := row.Scan(&rec.ID, &rec.PasswordHash, &rec.Email); err != nil {
		return nil, fmt.Errorf("looking up user by email: %w", err)
	}
	return &rec, nil
}

// Create satisfies auth.UserRepo; signup reaches it through the identity
// backend's CreateUser.
func (s *Store) Create(ctx context.Context, username, email, passwordHash, domain string) (uuid.UUID, error) {
	var id uuid.UUID
	row := s.dbtx.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, domain) VALUES ($1, $2, $3, $4) RETURNING id`,
		username, nullIfEmpty(email), passwordHash, domain,
	)
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("creating user: %w", err)
	}
	return id, nil
}

// GetIdentity satisfies auth.IdentityLookup, resolving a bare user id into
// the full Identity the authorization rule needs.
func (s *Store) GetIdentity(ctx context.Context, userID uuid.UUID) (*auth.Identity, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT username, email, global_admin, domain FROM users WHERE id = $1`, userID)
	var id auth.Identity
	id.UserID = userID
	if err := row.Scan(&id.Username, &id.Email, &id.GlobalAdmin, &id.Domain); err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}
	return &id, nil
}

// Update updates editable fields and returns the updated row.
func (s *Store) Update(ctx context.Context, id uuid.UUID, email, domain string) (Row, error) {
	row := s.dbtx.QueryRow(ctx,
		`UPDATE users SET email = $2, domain = $3, updated_at = now() WHERE id = $1 RETURNING `+userColumns,
		id, nullIfEmpty(email), domain,
	)
	return scanRow(row)
}

// SetPasswordHash satisfies auth.UserRepo.
func (s *Store) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("setting password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SaveResetCode satisfies auth.UserRepo.
func (s *Store) SaveResetCode(ctx context.Context, userID uuid.UUID, code string, expiresAt time.Time) error {
	_, err := s.dbtx.Exec(ctx,
		`INSERT INTO password_reset_codes (user_id, code, expires_at) VALUES ($1, $2, $3)`,
		userID, code, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("saving reset code: %w", err)
	}
	return nil
}

// ConsumeResetCode satisfies auth.UserRepo: looks up an unexpired code and
// deletes it atomically so it cannot be replayed.
func (s *Store) ConsumeResetCode(ctx context.Context, code string) (uuid.UUID, error) {
	row := s.dbtx.QueryRow(ctx,
		`DELETE FROM password_reset_codes WHERE code = $1 AND expires_at > now() RETURNING user_id`,
		code,
	)
	var userID uuid.UUID
	if err := row.Scan(&userID); err != nil {
		return uuid.Nil, fmt.Errorf("consuming reset code: %w", err)
	}
	return userID, nil
}

// Delete removes a user per spec.md §3's lifecycle rule: models they own are
// reassigned to the team_admin of the model's team if the model is
// protected, else to a global admin, before the user row itself is removed.
// reassignAdminID is the global admin to fall back to.
func (s *Store) Delete(ctx context.Context, id, reassignAdminID uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `
		UPDATE models m
		SET user_id = COALESCE(CASE WHEN m.access_level = 'protected' THEN (
			SELECT ut.user_id FROM user_teams ut
			WHERE ut.team_id = m.team_id AND ut.role = 'team_admin'
			ORDER BY ut.user_id
			LIMIT 1
		) END, $2)
		WHERE m.user_id = $1`,
		id, reassignAdminID,
	)
	if err != nil {
		return fmt.Errorf("reassigning owned models: %w", err)
	}

	tag, err := s.dbtx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetGlobalAdmin promotes or demotes a user's global-admin flag. Used by
// cmd/bazaarctl and the seed bootstrap, never exposed over HTTP.
func (s *Store) SetGlobalAdmin(ctx context.Context, id uuid.UUID, globalAdmin bool) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE users SET global_admin = $2, updated_at = now() WHERE id = $1`, id, globalAdmin)
	if err != nil {
		return fmt.Errorf("setting global_admin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ExistsGlobalAdmin reports whether any global-admin user already exists,
// used by the seed bootstrap to stay idempotent.
func (s *Store) ExistsGlobalAdmin(ctx context.Context) (bool, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE global_admin)`)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("checking for existing global admin: %w", err)
	}
	return exists, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
