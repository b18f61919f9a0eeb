package main

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelbazaar/controlplane/internal/config"
	"github.com/modelbazaar/controlplane/internal/telemetry"
	"github.com/modelbazaar/controlplane/pkg/deployworker"
	"github.com/modelbazaar/controlplane/pkg/guardrail"
	"github.com/modelbazaar/controlplane/pkg/mlmodel"
	"github.com/modelbazaar/controlplane/pkg/scheduler"
	"github.com/modelbazaar/controlplane/pkg/updatelog"
)

// cmd/deployworker is the per-deployment process the scheduler launches for
// every Deploy call: one replica serving predict/update traffic for a
// single model, electing a writer among its peers, and tearing itself down
// once idle.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.ModelID == "" || cfg.DeploymentDir == "" || cfg.JobToken == "" {
		logger.Error("missing required deployment worker configuration", "model_id", cfg.ModelID, "deployment_dir", cfg.DeploymentDir)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter := &statusReporter{
		endpoint: cfg.ModelBazaarEndpoint,
		modelID:  cfg.ModelID,
		token:    cfg.JobToken,
		logger:   logger,
	}

	model := mlmodel.NewLocalModel()

	var classifier guardrail.Classifier
	if cfg.GuardrailBaseURL != "" {
		classifier = guardrail.NewRemoteClassifier(cfg.GuardrailBaseURL, cfg.GuardrailToken)
	}

	replicaID := cfg.DeploymentID
	if replicaID == "" {
		if host, err := os.Hostname(); err == nil {
			replicaID = host
		}
	}
	appender := updatelog.NewAppender(cfg.DeploymentDir, replicaID)

	worker := deployworker.NewWorker(model, classifier, appender, logger)

	if cfg.WriterReplica {
		go func() {
			artifactPath := fmt.Sprintf("%s/models/%s", cfg.ModelBazaarDir, cfg.ModelID)
			interval := deployworker.DefaultWriterSaveInterval
			if err := deployworker.RunWriterElection(ctx, cfg.DeploymentDir, artifactPath, model, logger, interval); err != nil {
				logger.Error("writer election failed", "error", err)
			}
		}()
	}

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      jobTokenAuth(cfg.JobToken, worker.Routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	idleTimeout := time.Duration(cfg.AutoIdleMinutes) * time.Minute
	go deployworker.RunIdleTimerLoop(ctx, worker, idleTimeout, logger, func(ctx context.Context) error {
		telemetry.AutoIdleShutdownsTotal.Inc()
		if err := reporter.report(ctx, scheduler.StatusStopped); err != nil {
			logger.Error("reporting idle shutdown", "error", err)
		}
		cancel()
		return nil
	})

	if err := reporter.report(ctx, scheduler.StatusInProgress); err != nil {
		logger.Warn("reporting deploy status in_progress", "error", err)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("deployment worker listening", "addr", cfg.ListenAddr(), "model_id", cfg.ModelID)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error("deployment worker http server failed", "error", err)
			_ = reporter.report(context.Background(), scheduler.StatusFailed)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutting down deployment worker", "error", err)
	}
}

// jobTokenAuth rejects any request not bearing the exact job token this
// worker was launched with — the control plane and cache proxy are the only
// expected callers, each holding the same pre-issued per-deployment token.
func jobTokenAuth(wantToken string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		h := r.Header.Get("Authorization")
		if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(h[len(prefix):]), []byte(wantToken)) != 1 {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusReporter calls back into the control plane's job-token-authenticated
// update-status route so the reconciler and bazaar API see this replica's
// own view of its deploy_status.
type statusReporter struct {
	endpoint string
	modelID  string
	token    string
	logger   *slog.Logger
}

func (r *statusReporter) report(ctx context.Context, status string) error {
	body, err := json.Marshal(map[string]string{
		"model_id": r.modelID,
		"status":   status,
	})
	if err != nil {
		return err
	}
	url := r.endpoint + "/api/v1/bazaar/deploy/update-status"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("update-status returned %d", resp.StatusCode)
	}
	r.logger.Info("reported deploy status", "status", status)
	return nil
}
