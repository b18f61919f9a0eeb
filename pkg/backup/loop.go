package backup

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ModelLister is the narrow view of the model store the periodic backup
// loop needs, kept as an interface to avoid importing pkg/bazaar (which
// already depends on this package as its Backupper).
type ModelLister interface {
	ListDeployed(ctx context.Context) ([]uuid.UUID, error)
}

// RunPeriodicBackupLoop snapshots every currently deployed model on a fixed
// interval, the standalone counterpart to the on-demand POST /backup
// endpoint. Grounded on the teacher's schedule top-up loop shape: run once
// at start, then on every tick until ctx is cancelled.
func RunPeriodicBackupLoop(ctx context.Context, svc *Service, models ModelLister, logger *slog.Logger, interval time.Duration) {
	logger.Info("periodic backup loop started", "interval", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runOnce(ctx, svc, models, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic backup loop stopped")
			return
		case <-ticker.C:
			runOnce(ctx, svc, models, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *Service, models ModelLister, logger *slog.Logger) {
	ids, err := models.ListDeployed(ctx)
	if err != nil {
		logger.Error("listing deployed models for backup", "error", err)
		return
	}
	for _, id := range ids {
		uri, err := svc.Backup(ctx, id)
		if err != nil {
			logger.Error("periodic backup failed", "model_id", id, "error", err)
			continue
		}
		logger.Info("periodic backup complete", "model_id", id, "destination", uri)
	}
}
