package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/db"
)

// Store provides database operations for catalog entries.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a catalog Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const entryColumns = `id, name, task, target_labels, num_generated_samples, created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.Name, &e.Task, &e.TargetLabels, &e.NumGeneratedSamples, &e.CreatedAt)
	return e, err
}

// Create records a finished dataset generation run.
func (s *Store) Create(ctx context.Context, p CreateParams) (Entry, error) {
	query := `INSERT INTO catalog_entries (name, task, target_labels, num_generated_samples)
		VALUES ($1, $2, $3, $4) RETURNING ` + entryColumns
	row := s.dbtx.QueryRow(ctx, query, p.Name, p.Task, p.TargetLabels, p.NumGeneratedSamples)
	return scanEntry(row)
}

// Get returns a single catalog entry by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+entryColumns+` FROM catalog_entries WHERE id = $1`, id)
	return scanEntry(row)
}

// List returns catalog entries, optionally filtered by task, newest first.
func (s *Store) List(ctx context.Context, task string) ([]Entry, error) {
	var rows pgx.Rows
	var err error
	if task != "" {
		rows, err = s.dbtx.Query(ctx, `SELECT `+entryColumns+` FROM catalog_entries WHERE task = $1 ORDER BY created_at DESC`, task)
	} else {
		rows, err = s.dbtx.Query(ctx, `SELECT `+entryColumns+` FROM catalog_entries ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing catalog entries: %w", err)
	}
	defer rows.Close()

	var items []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning catalog entry: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
