package bazaar

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/scheduler"
)

// Store provides database operations for models and their dependencies and
// attributes.
type Store struct {
	dbtx db.DBTX
}

// NewStore creates a Store backed by the given database connection.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{dbtx: dbtx}
}

const modelColumns = `id, user_id, name, type, sub_type, domain, access_level, parent_id,
	team_id, train_status, deploy_status, cache_refresh_status, train_job_id,
	deploy_job_id, cpu_mhz, deleted_at, created_at, updated_at`

func scanModel(row pgx.Row) (Model, error) {
	var m Model
	var accessLevel string
	err := row.Scan(
		&m.ID, &m.UserID, &m.Name, &m.Type, &m.SubType, &m.Domain, &accessLevel,
		&m.ParentID, &m.TeamID, &m.TrainStatus, &m.DeployStatus, &m.CacheRefreshStatus,
		&m.TrainJobID, &m.DeployJobID, &m.CPUMhz, &m.DeletedAt, &m.CreatedAt, &m.UpdatedAt,
	)
	m.AccessLevel = auth.AccessLevel(accessLevel)
	return m, err
}

type CreateParams struct {
	UserID      uuid.UUID
	Name        string
	Type        ModelType
	SubType     string
	Domain      string
	AccessLevel auth.AccessLevel
	ParentID    *uuid.UUID
	TeamID      *uuid.UUID
	CPUMhz      int64
}

// Create inserts a new model with train_status=starting.
func (s *Store) Create(ctx context.Context, p CreateParams) (Model, error) {
	query := `INSERT INTO models (
		user_id, name, type, sub_type, domain, access_level, parent_id, team_id,
		train_status, deploy_status, cache_refresh_status, cpu_mhz
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10, $11)
	RETURNING ` + modelColumns
	row := s.dbtx.QueryRow(ctx, query,
		p.UserID, p.Name, p.Type, p.SubType, p.Domain, p.AccessLevel, p.ParentID, p.TeamID,
		scheduler.StatusStarting, scheduler.StatusNotStarted, p.CPUMhz,
	)
	return scanModel(row)
}

// CreateComposed inserts a workflow model that never runs a training job:
// train_status and deploy_status both start at not_started.
func (s *Store) CreateComposed(ctx context.Context, p CreateParams) (Model, error) {
	query := `INSERT INTO models (
		user_id, name, type, sub_type, domain, access_level, parent_id, team_id,
		train_status, deploy_status, cache_refresh_status, cpu_mhz
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $9, $10)
	RETURNING ` + modelColumns
	row := s.dbtx.QueryRow(ctx, query,
		p.UserID, p.Name, p.Type, p.SubType, p.Domain, p.AccessLevel, p.ParentID, p.TeamID,
		scheduler.StatusNotStarted, p.CPUMhz,
	)
	return scanModel(row)
}

// Get returns a single non-deleted model by ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE id = $1 AND deleted_at IS NULL`
	return scanModel(s.dbtx.QueryRow(ctx, query, id))
}

// GetByOwnerName returns a non-deleted model by (owner, name), the unique
// key spec.md §3 defines.
func (s *Store) GetByOwnerName(ctx context.Context, ownerID uuid.UUID, name string) (Model, error) {
	query := `SELECT ` + modelColumns + ` FROM models WHERE user_id = $1 AND name = $2 AND deleted_at IS NULL`
	return scanModel(s.dbtx.QueryRow(ctx, query, ownerID, name))
}

// List returns non-deleted models, optionally filtered by owner.
func (s *Store) List(ctx context.Context, ownerID *uuid.UUID) ([]Model, error) {
	var rows pgx.Rows
	var err error
	if ownerID != nil {
		rows, err = s.dbtx.Query(ctx, `SELECT `+modelColumns+` FROM models WHERE user_id = $1 AND deleted_at IS NULL ORDER BY created_at DESC`, *ownerID)
	} else {
		rows, err = s.dbtx.Query(ctx, `SELECT `+modelColumns+` FROM models WHERE deleted_at IS NULL ORDER BY created_at DESC`)
	}
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}
	defer rows.Close()

	var items []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning model row: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// ListDeployed returns the IDs of every non-deleted model whose deploy
// status is currently active, satisfying pkg/backup.ModelLister for the
// periodic snapshot loop.
func (s *Store) ListDeployed(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.dbtx.Query(ctx,
		`SELECT id FROM models WHERE deploy_status IN ('in_progress', 'complete') AND deleted_at IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("listing deployed models: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning deployed model id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetTrainStatus updates train_status only if the transition is legal,
// returning pgx.ErrNoRows if the row was not found and an "illegal status
// transition" error if canAdvance rejects the move.
func (s *Store) SetTrainStatus(ctx context.Context, id uuid.UUID, status string) error {
	return s.setStatus(ctx, id, "train_status", status)
}

// SetDeployStatus updates deploy_status only if the transition is legal.
func (s *Store) SetDeployStatus(ctx context.Context, id uuid.UUID, status string) error {
	return s.setStatus(ctx, id, "deploy_status", status)
}

func (s *Store) setStatus(ctx context.Context, id uuid.UUID, column, status string) error {
	var current string
	err := s.dbtx.QueryRow(ctx, fmt.Sprintf(`SELECT %s FROM models WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, column), id).Scan(&current)
	if err != nil {
		return err
	}
	if !canAdvance(current, status) {
		return fmt.Errorf("illegal status transition: %s -> %s", current, status)
	}
	tag, err := s.dbtx.Exec(ctx, fmt.Sprintf(`UPDATE models SET %s = $2, updated_at = now() WHERE id = $1`, column), id, status)
	if err != nil {
		return fmt.Errorf("updating %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetTrainJobID records the scheduler job ID submitted for training.
func (s *Store) SetTrainJobID(ctx context.Context, id uuid.UUID, jobID string) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE models SET train_job_id = $2, updated_at = now() WHERE id = $1`, id, jobID)
	if err != nil {
		return fmt.Errorf("setting train job id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetDeployJobID records the scheduler job ID submitted for deployment.
func (s *Store) SetDeployJobID(ctx context.Context, id uuid.UUID, jobID string) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE models SET deploy_job_id = $2, updated_at = now() WHERE id = $1`, id, jobID)
	if err != nil {
		return fmt.Errorf("setting deploy job id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SoftDelete marks a model as deleted without removing the row, so update
// logs and audit history retain their foreign key.
func (s *Store) SoftDelete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.dbtx.Exec(ctx, `UPDATE models SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("soft deleting model: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ReassignOwner moves every model owned by fromUserID to toUserID, whatever
// its access level or team. Unlike pkg/user.Store.Delete, it does not route
// protected team models to the team's admin.
func (s *Store) ReassignOwner(ctx context.Context, fromUserID, toUserID uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `UPDATE models SET user_id = $2, updated_at = now() WHERE user_id = $1`, fromUserID, toUserID)
	if err != nil {
		return fmt.Errorf("reassigning model ownership: %w", err)
	}
	return nil
}

// AddDependency links dependencyID as a leaf model of a workflow model.
func (s *Store) AddDependency(ctx context.Context, modelID, dependencyID uuid.UUID) error {
	_, err := s.dbtx.Exec(ctx, `INSERT INTO model_dependencies (model_id, dependency_id) VALUES ($1, $2)
		ON CONFLICT (model_id, dependency_id) DO NOTHING`, modelID, dependencyID)
	if err != nil {
		return fmt.Errorf("adding model dependency: %w", err)
	}
	return nil
}

// ListDependencies returns the dependency model IDs of a workflow model.
func (s *Store) ListDependencies(ctx context.Context, modelID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.dbtx.Query(ctx, `SELECT dependency_id FROM model_dependencies WHERE model_id = $1`, modelID)
	if err != nil {
		return nil, fmt.Errorf("listing model dependencies: %w", err)
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetAttribute upserts a free-form configuration entry on a workflow model.
func (s *Store) SetAttribute(ctx context.Context, modelID uuid.UUID, key, value string) error {
	_, err := s.dbtx.Exec(ctx, `INSERT INTO model_attributes (model_id, key, value) VALUES ($1, $2, $3)
		ON CONFLICT (model_id, key) DO UPDATE SET value = EXCLUDED.value`, modelID, key, value)
	if err != nil {
		return fmt.Errorf("setting model attribute: %w", err)
	}
	return nil
}

// ListAttributes returns every attribute of a model.
func (s *Store) ListAttributes(ctx context.Context, modelID uuid.UUID) ([]ModelAttribute, error) {
	rows, err := s.dbtx.Query(ctx, `SELECT model_id, key, value FROM model_attributes WHERE model_id = $1`, modelID)
	if err != nil {
		return nil, fmt.Errorf("listing model attributes: %w", err)
	}
	defer rows.Close()
	var items []ModelAttribute
	for rows.Next() {
		var a ModelAttribute
		if err := rows.Scan(&a.ModelID, &a.Key, &a.Value); err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ListNonTerminal satisfies scheduler.StatusStore: every train or deploy job
// still in flight, locked FOR UPDATE so the reconciler never races a
// concurrent request-handler write.
func (s *Store) ListNonTerminal(ctx context.Context) ([]scheduler.ModelJob, error) {
	rows, err := s.dbtx.Query(ctx, `
		SELECT id, train_job_id, train_status FROM models
		WHERE deleted_at IS NULL AND train_job_id != ''
		  AND train_status NOT IN ('complete', 'failed', 'stopped')
		FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("listing non-terminal train jobs: %w", err)
	}
	var jobs []scheduler.ModelJob
	for rows.Next() {
		var j scheduler.ModelJob
		if err := rows.Scan(&j.ModelID, &j.JobID, &j.Status); err != nil {
			rows.Close()
			return nil, err
		}
		j.Kind = "train"
		jobs = append(jobs, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	drows, err := s.dbtx.Query(ctx, `
		SELECT id, deploy_job_id, deploy_status FROM models
		WHERE deleted_at IS NULL AND deploy_job_id != ''
		  AND deploy_status NOT IN ('complete', 'failed', 'stopped')
		FOR UPDATE`)
	if err != nil {
		return nil, fmt.Errorf("listing non-terminal deploy jobs: %w", err)
	}
	defer drows.Close()
	for drows.Next() {
		var j scheduler.ModelJob
		if err := drows.Scan(&j.ModelID, &j.JobID, &j.Status); err != nil {
			return nil, err
		}
		j.Kind = "deploy"
		jobs = append(jobs, j)
	}
	return jobs, drows.Err()
}

// ApplyTransition satisfies scheduler.StatusStore.
func (s *Store) ApplyTransition(ctx context.Context, modelID uuid.UUID, kind, newStatus string) error {
	switch kind {
	case "train":
		_, err := s.dbtx.Exec(ctx, `UPDATE models SET train_status = $2, updated_at = now() WHERE id = $1`, modelID, newStatus)
		return err
	case "deploy":
		_, err := s.dbtx.Exec(ctx, `UPDATE models SET deploy_status = $2, updated_at = now() WHERE id = $1`, modelID, newStatus)
		return err
	default:
		return fmt.Errorf("unknown job kind %q", kind)
	}
}
