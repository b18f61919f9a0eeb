package deployworker

import (
	"context"
	"log/slog"
	"time"

	"github.com/modelbazaar/controlplane/pkg/mlmodel"
	"github.com/modelbazaar/controlplane/pkg/updatelog"
)

// RunWriterElection attempts to become the single writer for deploymentDir;
// if it wins the election it runs the replay loop until ctx is cancelled,
// releasing the lock on return. If it loses, it returns immediately — the
// caller keeps serving reads without ever constructing a Replayer.
func RunWriterElection(ctx context.Context, deploymentDir, artifactPath string, model mlmodel.Model, logger *slog.Logger, interval time.Duration) error {
	lock, err := updatelog.ElectWriter(deploymentDir)
	if err != nil {
		return err
	}
	if lock == nil {
		logger.Info("another replica is already the writer", "deployment_dir", deploymentDir)
		return nil
	}
	defer lock.Release()

	logger.Info("elected writer for deployment", "deployment_dir", deploymentDir)

	replayer, err := updatelog.NewReplayer(deploymentDir, model, logger)
	if err != nil {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := replayer.RunOnce(ctx, artifactPath); err != nil {
				logger.Error("update-log replay failed", "error", err)
			}
		}
	}
}
