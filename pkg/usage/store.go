package usage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/db"
)

// Store provides upsert-style counter increments for model usage.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a usage Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const counterColumns = `model_id, requests, bytes_stored, cpu_seconds, updated_at`

func scanCounters(row pgx.Row) (Counters, error) {
	var c Counters
	err := row.Scan(&c.ModelID, &c.Requests, &c.BytesStored, &c.CPUSeconds, &c.UpdatedAt)
	return c, err
}

// Get returns the usage row for a model, or zero counters if none exist yet.
func (s *Store) Get(ctx context.Context, modelID uuid.UUID) (Counters, error) {
	row := s.dbtx.QueryRow(ctx, `SELECT `+counterColumns+` FROM usage_counters WHERE model_id = $1`, modelID)
	c, err := scanCounters(row)
	if err == pgx.ErrNoRows {
		return Counters{ModelID: modelID}, nil
	}
	return c, err
}

// IncrementRequests records n additional requests served for a model.
func (s *Store) IncrementRequests(ctx context.Context, modelID uuid.UUID, n int64) error {
	_, err := s.dbtx.Exec(ctx, `
		INSERT INTO usage_counters (model_id, requests, bytes_stored, cpu_seconds, updated_at)
		VALUES ($1, $2, 0, 0, now())
		ON CONFLICT (model_id) DO UPDATE
		SET requests = usage_counters.requests + $2, updated_at = now()`,
		modelID, n)
	return err
}

// AddBytesStored records additional storage consumed by a model's artifacts.
func (s *Store) AddBytesStored(ctx context.Context, modelID uuid.UUID, n int64) error {
	_, err := s.dbtx.Exec(ctx, `
		INSERT INTO usage_counters (model_id, requests, bytes_stored, cpu_seconds, updated_at)
		VALUES ($1, 0, $2, 0, now())
		ON CONFLICT (model_id) DO UPDATE
		SET bytes_stored = usage_counters.bytes_stored + $2, updated_at = now()`,
		modelID, n)
	return err
}

// AddCPUSeconds records CPU time a training or predict job consumed.
func (s *Store) AddCPUSeconds(ctx context.Context, modelID uuid.UUID, seconds float64) error {
	_, err := s.dbtx.Exec(ctx, `
		INSERT INTO usage_counters (model_id, requests, bytes_stored, cpu_seconds, updated_at)
		VALUES ($1, 0, 0, $2, now())
		ON CONFLICT (model_id) DO UPDATE
		SET cpu_seconds = usage_counters.cpu_seconds + $2, updated_at = now()`,
		modelID, seconds)
	return err
}
