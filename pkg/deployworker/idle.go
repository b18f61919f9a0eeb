package deployworker

import (
	"context"
	"log/slog"
	"time"
)

// RunIdleTimerLoop watches w's last-activity timestamp and invokes onIdle
// once it has exceeded timeout, then stops — mirroring roster's
// ticker-driven background loop shape but polling a liveness signal instead
// of doing work on every tick.
func RunIdleTimerLoop(ctx context.Context, w *Worker, timeout time.Duration, logger *slog.Logger, onIdle func(ctx context.Context) error) {
	checkInterval := timeout / 10
	if checkInterval < time.Second {
		checkInterval = time.Second
	}
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if w.IdleSince() < timeout {
				continue
			}
			logger.Info("deployment worker idle, requesting teardown", "idle_for", w.IdleSince())
			if err := onIdle(ctx); err != nil {
				logger.Error("idle teardown request failed", "error", err)
				continue
			}
			return
		}
	}
}
