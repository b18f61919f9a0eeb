package bazaar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/modelbazaar/controlplane/internal/apierr"
	"github.com/modelbazaar/controlplane/internal/db"
	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/license"
	"github.com/modelbazaar/controlplane/pkg/scheduler"
)

// TeamAdminChecker resolves whether a user holds the team_admin role on a
// team, the one fact Authorize needs beyond what a Model row carries.
type TeamAdminChecker interface {
	IsTeamAdmin(ctx context.Context, teamID, userID uuid.UUID) (bool, error)
}

// Backupper is component H's entry point, called by POST /backup.
type Backupper interface {
	Backup(ctx context.Context, modelID uuid.UUID) (string, error)
}

// DeploymentWorker is the subset of component E's HTTP surface the control
// plane calls into directly (save-on-demand).
type DeploymentWorker interface {
	Save(ctx context.Context, modelID uuid.UUID, newModelName string) error
}

// Service implements the control-plane orchestration surface: validate,
// persist intent, submit job.
type Service struct {
	store     *Store
	scheduler *scheduler.Client
	license   *license.License
	teams     TeamAdminChecker
	permCache *auth.PermissionCache
	backup    Backupper
	worker    DeploymentWorker
	logger    *slog.Logger
}

// NewService wires a bazaar Service from its collaborators. teams, backup,
// and worker may be nil in deployments that don't need team-scoped models,
// backups, or worker save callbacks respectively.
func NewService(dbtx db.DBTX, sched *scheduler.Client, lic *license.License, teams TeamAdminChecker, permCache *auth.PermissionCache, backup Backupper, worker DeploymentWorker, logger *slog.Logger) *Service {
	return &Service{
		store:     NewStore(dbtx),
		scheduler: sched,
		license:   lic,
		teams:     teams,
		permCache: permCache,
		backup:    backup,
		worker:    worker,
		logger:    logger,
	}
}

// authorize resolves whether user may perform op on model, consulting the
// permission cache first and constructing the ModelACL pre-resolved view
// auth.Authorize expects only on a cache miss.
func (s *Service) authorize(ctx context.Context, user *auth.Identity, model *Model, op auth.Op) bool {
	if s.permCache != nil {
		if allowed, found := s.permCache.Get(ctx, user.UserID, model.ID, op); found {
			return allowed
		}
	}

	acl := auth.ModelACL{
		ID:          model.ID,
		OwnerID:     model.UserID,
		Domain:      model.Domain,
		AccessLevel: model.AccessLevel,
	}
	if model.TeamID != nil && s.teams != nil {
		if isAdmin, err := s.teams.IsTeamAdmin(ctx, *model.TeamID, user.UserID); err == nil && isAdmin {
			acl.TeamAdminID = &user.UserID
		}
	}

	allowed := auth.Authorize(user, acl, op)
	if s.permCache != nil {
		s.permCache.Set(ctx, user.UserID, model.ID, op, allowed)
	}
	return allowed
}

// Train validates and persists a new model, then submits a training job.
// Idempotent on (owner, name): a conflicting name fails with already_exists
// unless the prior attempt is failed and req.Overwrite is set.
func (s *Service) Train(ctx context.Context, user *auth.Identity, req TrainRequest) (Response, error) {
	if !nameRE.MatchString(req.Name) {
		return Response{}, apierr.New(apierr.InvalidArgument, "name must match ^[\\w-]+$")
	}
	if !isValidType(req.Type) {
		return Response{}, apierr.New(apierr.InvalidArgument, "unknown model type")
	}

	existing, err := s.store.GetByOwnerName(ctx, user.UserID, req.Name)
	switch {
	case err == nil:
		if existing.TrainStatus != scheduler.StatusFailed || !req.Overwrite {
			return Response{}, apierr.New(apierr.AlreadyExists, "a model with this name already exists")
		}
	case errors.Is(err, pgx.ErrNoRows):
		// no conflict
	default:
		return Response{}, apierr.Wrap(apierr.Internal, "checking for existing model", err)
	}

	if req.ParentID != nil {
		parent, err := s.store.Get(ctx, *req.ParentID)
		if err != nil {
			return Response{}, apierr.New(apierr.InvalidArgument, "base model not found")
		}
		if !s.authorize(ctx, user, &parent, auth.OpRead) {
			return Response{}, apierr.New(apierr.Forbidden, "no read access to base model")
		}
	}

	model, err := s.store.Create(ctx, CreateParams{
		UserID:      user.UserID,
		Name:        req.Name,
		Type:        req.Type,
		SubType:     req.SubType,
		Domain:      req.Domain,
		AccessLevel: req.AccessLevel,
		ParentID:    req.ParentID,
		TeamID:      req.TeamID,
		CPUMhz:      req.CPUMhz,
	})
	if err != nil {
		return Response{}, apierr.Wrap(apierr.Internal, "creating model", err)
	}

	jobID, err := s.submitJob(ctx, scheduler.JobSpec{
		JobID:  fmt.Sprintf("train-%s", model.ID),
		Image:  fmt.Sprintf("bazaar-train-%s", req.Type),
		CPUMhz: req.CPUMhz,
		Env: map[string]string{
			"MODEL_ID":     model.ID.String(),
			"MODEL_NAME":   model.Name,
			"LLM_PROVIDER": req.LLMProvider,
		},
	})
	if err != nil {
		_ = s.store.SetTrainStatus(ctx, model.ID, scheduler.StatusFailed)
		return Response{}, err
	}
	if err := s.store.SetTrainJobID(ctx, model.ID, jobID); err != nil {
		s.logger.Error("recording train job id", "model_id", model.ID, "error", err)
	}

	return model.ToResponse(), nil
}

// Deploy submits a deployment job for a fully trained model.
func (s *Service) Deploy(ctx context.Context, user *auth.Identity, modelID uuid.UUID, req DeployRequest) (string, error) {
	model, err := s.store.Get(ctx, modelID)
	if err != nil {
		return "", apierr.New(apierr.NotFound, "model not found")
	}
	if !s.authorize(ctx, user, &model, auth.OpWrite) {
		return "", apierr.New(apierr.Forbidden, "no write access to model")
	}
	if model.TrainStatus != scheduler.StatusComplete {
		return "", apierr.New(apierr.PreconditionFailed, "model is not fully trained")
	}
	if model.DeployStatus != scheduler.StatusNotStarted && model.DeployStatus != scheduler.StatusFailed && model.DeployStatus != scheduler.StatusStopped {
		return "", apierr.New(apierr.AlreadyExists, "a deployment is already live for this model")
	}

	if err := s.store.SetDeployStatus(ctx, modelID, scheduler.StatusStarting); err != nil {
		return "", apierr.Wrap(apierr.Internal, "setting deploy status", err)
	}

	cpuMhz := req.CPUMhz
	if cpuMhz == 0 {
		cpuMhz = model.CPUMhz
	}
	jobID, err := s.submitJob(ctx, scheduler.JobSpec{
		JobID:  fmt.Sprintf("deploy-%s", modelID),
		Image:  fmt.Sprintf("bazaar-deploy-%s", model.Type),
		CPUMhz: cpuMhz,
		Env: map[string]string{
			"MODEL_ID":      modelID.String(),
			"ARTIFACT_PATH": fmt.Sprintf("models/%s", modelID),
		},
	})
	if err != nil {
		_ = s.store.SetDeployStatus(ctx, modelID, scheduler.StatusFailed)
		return "", err
	}
	if err := s.store.SetDeployJobID(ctx, modelID, jobID); err != nil {
		s.logger.Error("recording deploy job id", "model_id", modelID, "error", err)
	}
	return jobID, nil
}

// UpdateDeployStatus applies a deploy_status transition reported by the
// deployment worker itself (authenticated out-of-band with a job token).
func (s *Service) UpdateDeployStatus(ctx context.Context, req UpdateStatusRequest) error {
	if err := s.store.SetDeployStatus(ctx, req.ModelID, req.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apierr.New(apierr.NotFound, "model not found")
		}
		return apierr.Wrap(apierr.PreconditionFailed, "illegal status transition", err)
	}
	return nil
}

// Save asks the deployment worker to persist its current state, optionally
// registering the result as a new derived model.
func (s *Service) Save(ctx context.Context, user *auth.Identity, modelID uuid.UUID, req SaveRequest) (*Response, error) {
	model, err := s.store.Get(ctx, modelID)
	if err != nil {
		return nil, apierr.New(apierr.NotFound, "model not found")
	}
	if !s.authorize(ctx, user, &model, auth.OpWrite) {
		return nil, apierr.New(apierr.Forbidden, "no write access to model")
	}
	if model.DeployStatus != scheduler.StatusComplete && model.DeployStatus != scheduler.StatusInProgress {
		return nil, apierr.New(apierr.PreconditionFailed, "model is not deployed")
	}

	if s.worker != nil {
		if err := s.worker.Save(ctx, modelID, req.ModelName); err != nil {
			return nil, apierr.Wrap(apierr.Internal, "requesting worker save", err)
		}
	}

	if req.ModelName == "" {
		return nil, nil
	}

	derived, err := s.store.Create(ctx, CreateParams{
		UserID:      user.UserID,
		Name:        req.ModelName,
		Type:        model.Type,
		SubType:     model.SubType,
		Domain:      model.Domain,
		AccessLevel: model.AccessLevel,
		ParentID:    &modelID,
		TeamID:      model.TeamID,
		CPUMhz:      model.CPUMhz,
	})
	if err != nil {
		return nil, apierr.Wrap(apierr.Internal, "registering derived model", err)
	}
	// A saved snapshot starts life already trained; there is no training job.
	if err := s.store.SetTrainStatus(ctx, derived.ID, scheduler.StatusComplete); err != nil {
		s.logger.Warn("marking derived model trained", "model_id", derived.ID, "error", err)
	}
	derived.TrainStatus = scheduler.StatusComplete
	resp := derived.ToResponse()
	return &resp, nil
}

// Undeploy asks the scheduler to delete the deployment job and marks the
// model stopped once confirmed.
func (s *Service) Undeploy(ctx context.Context, user *auth.Identity, modelID uuid.UUID) error {
	model, err := s.store.Get(ctx, modelID)
	if err != nil {
		return apierr.New(apierr.NotFound, "model not found")
	}
	if !s.authorize(ctx, user, &model, auth.OpWrite) {
		return apierr.New(apierr.Forbidden, "no write access to model")
	}
	if model.DeployJobID != "" {
		if err := s.scheduler.DeleteJob(ctx, model.DeployJobID); err != nil {
			return apierr.Wrap(apierr.SchedulerUnavailable, "deleting deployment job", err)
		}
	}
	if err := s.store.SetDeployStatus(ctx, modelID, scheduler.StatusStopped); err != nil {
		return apierr.Wrap(apierr.Internal, "marking deployment stopped", err)
	}
	return nil
}

// EnterpriseSearch composes a retrieval model and an optional guardrail
// model into a workflow model. It never submits a job: workflows are
// composition-only.
func (s *Service) EnterpriseSearch(ctx context.Context, user *auth.Identity, req EnterpriseSearchRequest) (Response, error) {
	if !nameRE.MatchString(req.Name) {
		return Response{}, apierr.New(apierr.InvalidArgument, "name must match ^[\\w-]+$")
	}

	retrieval, err := s.store.Get(ctx, req.RetrievalID)
	if err != nil {
		return Response{}, apierr.New(apierr.InvalidArgument, "retrieval model not found")
	}
	if retrieval.Type != TypeNDB {
		return Response{}, apierr.New(apierr.InvalidArgument, "retrieval_id must reference a retrieval model")
	}
	if !s.authorize(ctx, user, &retrieval, auth.OpRead) {
		return Response{}, apierr.New(apierr.Forbidden, "no read access to retrieval model")
	}

	if req.GuardrailID != nil {
		guardrail, err := s.store.Get(ctx, *req.GuardrailID)
		if err != nil {
			return Response{}, apierr.New(apierr.InvalidArgument, "guardrail model not found")
		}
		if guardrail.Type != TypeUDT || guardrail.SubType != "token_classifier" {
			return Response{}, apierr.New(apierr.InvalidArgument, "guardrail_id must reference a token-classifier model")
		}
		if !s.authorize(ctx, user, &guardrail, auth.OpRead) {
			return Response{}, apierr.New(apierr.Forbidden, "no read access to guardrail model")
		}
	}

	workflow, err := s.store.CreateComposed(ctx, CreateParams{
		UserID:      user.UserID,
		Name:        req.Name,
		Type:        TypeEnterpriseSearch,
		Domain:      req.Domain,
		AccessLevel: req.AccessLevel,
	})
	if err != nil {
		return Response{}, apierr.Wrap(apierr.Internal, "creating workflow model", err)
	}

	if err := s.store.AddDependency(ctx, workflow.ID, req.RetrievalID); err != nil {
		return Response{}, apierr.Wrap(apierr.Internal, "linking retrieval dependency", err)
	}
	if req.GuardrailID != nil {
		if err := s.store.AddDependency(ctx, workflow.ID, *req.GuardrailID); err != nil {
			return Response{}, apierr.Wrap(apierr.Internal, "linking guardrail dependency", err)
		}
	}

	return workflow.ToResponse(), nil
}

// Backup delegates to component H.
func (s *Service) Backup(ctx context.Context, user *auth.Identity, modelID uuid.UUID) (string, error) {
	model, err := s.store.Get(ctx, modelID)
	if err != nil {
		return "", apierr.New(apierr.NotFound, "model not found")
	}
	if !s.authorize(ctx, user, &model, auth.OpWrite) {
		return "", apierr.New(apierr.Forbidden, "no write access to model")
	}
	if s.backup == nil {
		return "", apierr.New(apierr.Internal, "backup service not configured")
	}
	backupID, err := s.backup.Backup(ctx, modelID)
	if err != nil {
		return "", apierr.Wrap(apierr.Internal, "running backup", err)
	}
	return backupID, nil
}

// Get returns a model after an authorization check.
func (s *Service) Get(ctx context.Context, user *auth.Identity, modelID uuid.UUID) (Response, error) {
	model, err := s.store.Get(ctx, modelID)
	if err != nil {
		return Response{}, apierr.New(apierr.NotFound, "model not found")
	}
	if !s.authorize(ctx, user, &model, auth.OpRead) {
		return Response{}, apierr.New(apierr.Forbidden, "no read access to model")
	}
	return model.ToResponse(), nil
}

// submitJob runs the license gate before every scheduler submission, as
// spec.md §4.C requires.
func (s *Service) submitJob(ctx context.Context, spec scheduler.JobSpec) (string, error) {
	if s.license == nil {
		return "", apierr.New(apierr.LicenseExhausted, "no license loaded")
	}
	jobID, err := s.scheduler.SubmitJobLicensed(ctx, spec, s.license)
	if err != nil {
		if errors.Is(err, license.ErrExhausted) {
			return "", apierr.Wrap(apierr.LicenseExhausted, "license capacity exceeded", err)
		}
		return "", apierr.Wrap(apierr.SchedulerUnavailable, "submitting job", err)
	}
	return jobID, nil
}
