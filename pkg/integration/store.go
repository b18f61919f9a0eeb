package integration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/db"
)

// Store provides database operations for integration rows.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates an integration Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const integrationColumns = `id, type, name, data, created_at, updated_at`

func scanIntegration(row pgx.Row) (Integration, error) {
	var i Integration
	err := row.Scan(&i.ID, &i.Type, &i.Name, &i.Data, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

// Create registers a new integration.
func (s *Store) Create(ctx context.Context, p CreateParams) (Integration, error) {
	query := `INSERT INTO integrations (type, name, data) VALUES ($1, $2, $3) RETURNING ` + integrationColumns
	row := s.dbtx.QueryRow(ctx, query, p.Type, p.Name, p.Data)
	return scanIntegration(row)
}

// Get returns a single integration by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Integration, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE id = $1`, id)
	return scanIntegration(row)
}

// GetByType returns the oldest integration configured for a provider type.
func (s *Store) GetByType(ctx context.Context, t Type) (Integration, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE type = $1 ORDER BY created_at LIMIT 1`, t)
	return scanIntegration(row)
}

// List returns all configured integrations.
func (s *Store) List(ctx context.Context) ([]Integration, error) {
	rows, err := s.dbtx.Query(ctx, `SELECT `+integrationColumns+` FROM integrations ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing integrations: %w", err)
	}
	defer rows.Close()

	var items []Integration
	for rows.Next() {
		i, err := scanIntegration(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning integration: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// Delete removes an integration.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `DELETE FROM integrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting integration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
