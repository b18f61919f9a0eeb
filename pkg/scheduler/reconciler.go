package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Status values from the closed status enum. Reverse transitions are
// forbidden except via explicit admin reset, which does not go through the
// reconciler.
const (
	StatusNotStarted = "not_started"
	StatusStarting   = "starting"
	StatusInProgress = "in_progress"
	StatusStopped    = "stopped"
	StatusComplete   = "complete"
	StatusFailed     = "failed"
)

// ModelJob is one outstanding scheduler job the reconciler is tracking
// against a model's train or deploy status.
type ModelJob struct {
	ModelID uuid.UUID
	JobID   string
	Kind    string // "train" or "deploy"
	Status  string
}

// StatusStore is the narrow view of the model store the reconciler needs.
// It is satisfied by the control-plane model store; defined here to avoid
// an import cycle between scheduler and the store package.
type StatusStore interface {
	// ListNonTerminal returns every model job whose status is not complete,
	// failed, or stopped, locked FOR UPDATE within the caller's transaction.
	ListNonTerminal(ctx context.Context) ([]ModelJob, error)
	// ApplyTransition persists a status change for one model job.
	ApplyTransition(ctx context.Context, modelID uuid.UUID, kind, newStatus string) error
}

// Reconciler polls the external scheduler and folds observed job state back
// into model status rows. One instance runs as a singleton background loop,
// grounded on the same ticker/tick shape as the teacher's escalation engine.
type Reconciler struct {
	client   *Client
	store    StatusStore
	logger   *slog.Logger
	interval time.Duration
	metric   *prometheus.CounterVec // labelled {kind, to}; may be nil
	notifier Notifier
}

// NewReconciler creates a Reconciler that polls every 5 seconds. notifier
// may be nil, in which case forced demotions are only logged.
func NewReconciler(client *Client, store StatusStore, logger *slog.Logger, metric *prometheus.CounterVec, notifier Notifier) *Reconciler {
	return &Reconciler{
		client:   client,
		store:    store,
		logger:   logger,
		interval: 5 * time.Second,
		metric:   metric,
		notifier: notifier,
	}
}

// Run blocks, reconciling on every tick until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("scheduler reconciler started", "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("scheduler reconciler stopped")
			return nil
		case <-ticker.C:
			if err := r.tick(ctx); err != nil {
				r.logger.Error("reconciler tick", "error", err)
			}
		}
	}
}

func (r *Reconciler) tick(ctx context.Context) error {
	jobs, err := r.store.ListNonTerminal(ctx)
	if err != nil {
		return fmt.Errorf("listing non-terminal model jobs: %w", err)
	}
	for _, j := range jobs {
		if err := r.reconcileOne(ctx, j); err != nil {
			r.logger.Error("reconciling model job",
				"model_id", j.ModelID, "job_id", j.JobID, "error", err)
		}
	}
	return nil
}

func (r *Reconciler) reconcileOne(ctx context.Context, j ModelJob) error {
	job, err := r.client.GetJob(ctx, j.JobID)
	notFound := IsNotFound(err)
	if err != nil && !notFound {
		return fmt.Errorf("fetching scheduler job: %w", err)
	}

	next, forced := transition(j.Status, job, notFound)
	if next == j.Status {
		return nil
	}

	if forced {
		r.logger.Warn("forced status demotion",
			"model_id", j.ModelID, "kind", j.Kind, "from", j.Status, "to", next)
		if r.notifier != nil {
			if err := r.notifier.NotifyForcedDemotion(ctx, j.ModelID, j.Kind, j.Status, next); err != nil {
				r.logger.Error("posting forced-demotion alert", "error", err)
			}
		}
	}

	if err := r.store.ApplyTransition(ctx, j.ModelID, j.Kind, next); err != nil {
		return fmt.Errorf("applying transition: %w", err)
	}
	if r.metric != nil {
		r.metric.WithLabelValues(j.Kind, next).Inc()
	}
	return nil
}

// transition derives the next status for a tracked job given the
// scheduler's reported state, implementing the advance-only rule of
// not_started -> starting -> in_progress -> (complete|failed), with forced
// demotions when the scheduler no longer knows about the job (complete ->
// stopped; starting or in_progress -> failed) or reports it dead (complete ->
// stopped; any other status except failed and stopped -> failed).
func transition(current string, job *Job, notFound bool) (next string, forced bool) {
	if notFound {
		switch current {
		case StatusComplete:
			return StatusStopped, true
		case StatusStarting, StatusInProgress:
			return StatusFailed, true
		default:
			return current, false
		}
	}

	switch job.Status {
	case "running":
		if current == StatusStarting {
			return StatusInProgress, false
		}
	case "complete":
		if current == StatusInProgress {
			return StatusComplete, false
		}
	case "failed":
		if current == StatusStarting || current == StatusInProgress {
			return StatusFailed, false
		}
	case "dead":
		if current == StatusComplete {
			return StatusStopped, true
		}
		if current != StatusFailed && current != StatusStopped {
			return StatusFailed, true
		}
	}
	return current, false
}
