// Package app wires together every component into the running binary,
// selecting its behavior by CONTROLPLANE_MODE.
package app

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/modelbazaar/controlplane/internal/audit"
	"github.com/modelbazaar/controlplane/internal/config"
	"github.com/modelbazaar/controlplane/internal/httpserver"
	"github.com/modelbazaar/controlplane/internal/platform"
	"github.com/modelbazaar/controlplane/internal/seed"
	"github.com/modelbazaar/controlplane/internal/telemetry"
	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/backup"
	"github.com/modelbazaar/controlplane/pkg/bazaar"
	"github.com/modelbazaar/controlplane/pkg/cache"
	"github.com/modelbazaar/controlplane/pkg/catalog"
	"github.com/modelbazaar/controlplane/pkg/cloudstorage"
	"github.com/modelbazaar/controlplane/pkg/deployworker"
	"github.com/modelbazaar/controlplane/pkg/integration"
	"github.com/modelbazaar/controlplane/pkg/license"
	"github.com/modelbazaar/controlplane/pkg/pat"
	"github.com/modelbazaar/controlplane/pkg/scheduler"
	"github.com/modelbazaar/controlplane/pkg/team"
	"github.com/modelbazaar/controlplane/pkg/usage"
	"github.com/modelbazaar/controlplane/pkg/user"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the mode CONTROLPLANE_MODE selects.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting modelbazaar control plane",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunGlobalMigrations(cfg.DatabaseURL, cfg.MigrationsGlobalDir); err != nil {
		return fmt.Errorf("running global migrations: %w", err)
	}
	logger.Info("global migrations applied")

	metricsReg := prometheus.NewRegistry()
	metricsReg.MustRegister(telemetry.All()...)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg)
	case "reconciler":
		return runReconciler(ctx, cfg, logger, db)
	case "cache":
		return runCache(ctx, cfg, logger, db, rdb, metricsReg)
	case "backup":
		return runBackup(ctx, cfg, logger, db)
	case "seed":
		return seed.Run(ctx, db, cfg, logger)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// buildCollaborators wires the database-backed components shared by every
// mode that talks to the control-plane schema: identity backend, license,
// scheduler client, permission cache, team/backup/deployworker
// collaborators bazaar.Service needs.
type collaborators struct {
	tm         *auth.TokenManager
	backend    auth.Backend
	identities auth.IdentityLookup
	permCache  *auth.PermissionCache
	patAuth    *pat.Authenticator
	sched      *scheduler.Client
	lic        *license.License
	teams      *team.Store
	backupSvc  *backup.Service
	deployer   *deployworker.Client
}

func buildCollaborators(cfg *config.Config, db *pgxpool.Pool, rdb *redis.Client, logger *slog.Logger) (*collaborators, error) {
	userStore := user.NewStore(db)

	tm, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("creating token manager: %w", err)
	}

	var backend auth.Backend
	if cfg.OIDCIssuerURL != "" && cfg.OIDCClientID != "" {
		oidcBackend, err := auth.NewOIDCBackend(context.Background(), cfg.OIDCIssuerURL, cfg.OIDCClientID, userStore)
		if err != nil {
			return nil, fmt.Errorf("initializing OIDC backend: %w", err)
		}
		backend = oidcBackend
		logger.Info("identity backend: OIDC", "issuer", cfg.OIDCIssuerURL)
	} else {
		backend = auth.NewPasswordBackend(userStore, nil)
		logger.Info("identity backend: password")
	}

	lic, err := loadLicense(cfg.LicensePath)
	if err != nil {
		logger.Warn("license not loaded, job submission will be rejected", "error", err)
	}

	bazaarStore := bazaar.NewStore(db)
	teamStore := team.NewStore(db)
	storage := buildCloudStorage(cfg)
	backupSvc := backup.NewService(backup.Config{
		ModelBazaarDir: cfg.ModelBazaarDir,
		DestinationURI: cfg.BackupDest,
		DatabaseURL:    cfg.DatabaseURL,
		RetentionLimit: cfg.BackupLimit,
	}, storage, logger)

	schedClient := scheduler.NewClient(cfg.SchedulerEndpoint, cfg.TaskRunnerToken)
	resolver := newDeployResolver(bazaarStore, schedClient)
	deployClient := deployworker.NewClient(resolver, tm)

	return &collaborators{
		tm:         tm,
		backend:    backend,
		identities: userStore,
		permCache:  auth.NewPermissionCache(rdb),
		patAuth:    pat.NewAuthenticator(db, userStore),
		sched:      schedClient,
		lic:        lic,
		teams:      teamStore,
		backupSvc:  backupSvc,
		deployer:   deployClient,
	}, nil
}

func loadLicense(path string) (*license.License, error) {
	raw, err := os.ReadFile(publicKeyPath(path))
	if err != nil {
		return nil, fmt.Errorf("reading license public key: %w", err)
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("decoding license public key PEM")
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("parsing license public key: %w", err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("license public key is not RSA")
	}
	return license.Load(path, rsaPub)
}

// publicKeyPath derives the public key file sitting alongside the license
// file itself (license.json -> license.pub).
func publicKeyPath(licensePath string) string {
	return licensePath[:len(licensePath)-len(".json")] + ".pub"
}

// buildCloudStorage registers the local filesystem provider only. The s3,
// azure and gcs providers are not registered here, so a backup destination
// using one of those schemes does not resolve to a provider.
func buildCloudStorage(cfg *config.Config) *cloudstorage.Registry {
	reg := cloudstorage.NewRegistry()
	reg.Register(cloudstorage.NewLocalProvider())
	return reg
}

// deployResolver maps a model ID to its running deployment worker's base
// URL using the Consul DNS naming convention Nomad services register
// under: "<job-id>.service.consul". The scheduler's Service type carries no
// address field, so this convention — not a scheduler API call — is how the
// control plane finds a worker to call back into.
type deployResolver struct {
	models *bazaar.Store
}

func newDeployResolver(models *bazaar.Store, _ *scheduler.Client) *deployResolver {
	return &deployResolver{models: models}
}

const deployWorkerPort = 8090

func (r *deployResolver) ResolveDeploymentURL(ctx context.Context, modelID uuid.UUID) (string, error) {
	m, err := r.models.Get(ctx, modelID)
	if err != nil {
		return "", fmt.Errorf("resolving deployment for model %s: %w", modelID, err)
	}
	if m.DeployJobID == "" {
		return "", fmt.Errorf("model %s has no active deployment job", modelID)
	}
	return fmt.Sprintf("http://%s.service.consul:%d", m.DeployJobID, deployWorkerPort), nil
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	c, err := buildCollaborators(cfg, db, rdb, logger)
	if err != nil {
		return err
	}

	auditWriter := audit.NewWriter(db, logger)
	auditWriter.Start(ctx)
	defer auditWriter.Close()

	srv := httpserver.NewServer(httpserver.ServerConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger, db, rdb, metricsReg, nil, nil)

	rateLimiter := auth.NewRateLimiter(rdb, 10, 15*time.Minute)
	loginHandler := auth.NewLoginHandler(c.tm, c.backend, c.identities, rateLimiter, logger)
	requireAuth := auth.RequireAuth(c.tm, c.identities, c.patAuth, logger)

	// httpserver.NewServer mounted APIRouter at /api/v1 with no auth
	// middleware attached (authMW/requireAuthMW were passed nil above), so
	// every route below lives on that one sub-router and chooses its own
	// auth via an explicit Group, rather than inheriting a blanket
	// session-auth requirement that would also cover login and signup.
	api := srv.APIRouter

	// Public: login, signup, and password reset precede authentication.
	api.Route("/auth", func(r chi.Router) {
		r.Post("/login", loginHandler.HandleLogin)
		r.Post("/refresh", loginHandler.HandleRefresh)
		r.Post("/password-reset", loginHandler.HandlePasswordReset)
		r.Post("/password-reset/confirm", loginHandler.HandlePasswordResetConfirm)
	})

	userHandler := user.NewHandler(db, c.backend, logger, auditWriter)
	api.Post("/users/signup", userHandler.HandleSignup)

	// Cache-token-authenticated surface: the semantic cache proxy uses a
	// model-scoped bearer token issued by bazaar, not a user session.
	cacheHandler := buildCacheHandler(cfg, rdb, c.tm, logger)
	api.Route("/bazaar/cache", func(r chi.Router) {
		r.Use(cacheTokenMiddleware(c.tm, logger))
		r.Mount("/", cacheHandler.Routes())
	})

	// Job-token-authenticated surface: a deployment worker reports its own
	// status transitions, scoped to the job token it was launched with
	// rather than a user session.
	bazaarSvc := bazaar.NewService(db, c.sched, c.lic, c.teams, c.permCache, c.backupSvc, c.deployer, logger)
	bazaarHandler := bazaar.NewHandler(bazaarSvc, logger, auditWriter, nil)
	api.Route("/bazaar/deploy/update-status", func(r chi.Router) {
		r.Use(jobTokenMiddleware(c.tm, logger))
		r.Post("/", bazaarHandler.UpdateStatusRoute())
	})

	// Session-authenticated surface.
	api.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/auth/me", loginHandler.HandleMe)
		r.Mount("/users", userHandler.Routes())
		r.Mount("/teams", team.NewHandler(db, logger, auditWriter).Routes())
		r.Mount("/tokens", pat.NewHandler(db, logger).Routes())
		r.Mount("/bazaar", bazaarHandler.Routes())
		r.Mount("/catalog", catalog.NewHandler(db, logger).Routes())
		r.Mount("/usage", usage.NewHandler(db, logger).Routes())
		r.Route("/integrations", func(r chi.Router) {
			r.Use(auth.RequireGlobalAdmin)
			r.Mount("/", integration.NewHandler(db, logger).Routes())
		})
		r.Route("/audit", func(r chi.Router) {
			r.Use(auth.RequireGlobalAdmin)
			r.Mount("/", audit.NewHandler(db, logger).Routes())
		})
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runReconciler(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool) error {
	schedClient := scheduler.NewClient(cfg.SchedulerEndpoint, cfg.TaskRunnerToken)
	store := bazaar.NewStore(db)
	notifier := scheduler.NewSlackNotifier(cfg.SlackBotToken, cfg.SlackChannel, logger)
	reconciler := scheduler.NewReconciler(schedClient, store, logger, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "controlplane",
			Subsystem: "reconciler",
			Name:      "transitions_applied_total",
			Help:      "Model job status transitions the reconciler applied.",
		},
		[]string{"kind", "to"},
	), notifier)
	return reconciler.Run(ctx)
}

func runCache(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry) error {
	tm, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token manager: %w", err)
	}

	srv := httpserver.NewServer(httpserver.ServerConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	}, logger, db, rdb, metricsReg, nil, nil)

	cacheHandler := buildCacheHandler(cfg, rdb, tm, logger)
	srv.Router.Route("/api/v1/cache", func(r chi.Router) {
		r.Use(cacheTokenMiddleware(tm, logger))
		r.Mount("/", cacheHandler.Routes())
	})

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("cache server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildCacheHandler(cfg *config.Config, rdb *redis.Client, tm *auth.TokenManager, logger *slog.Logger) *cache.Handler {
	var index cache.VectorIndex
	if cfg.MilvusAddr != "" {
		idx, err := cache.NewMilvusIndex(context.Background(), cfg.MilvusAddr)
		if err != nil {
			logger.Error("connecting to milvus, falling back to local index", "error", err)
		} else {
			index = idx
		}
	}
	if index == nil {
		idx, err := cache.NewLocalIndex(cfg.ModelBazaarDir + "/cache_index")
		if err != nil {
			logger.Error("opening local cache index", "error", err)
		}
		index = idx
	}
	svc := cache.NewService(index, rdb, logger, cfg.LLMCacheThreshold)
	return cache.NewHandler(svc, tm, logger)
}

// cacheTokenMiddleware enforces a cache-scope bearer token whose model_id
// claim matches the model_id query parameter of the request it accompanies.
func cacheTokenMiddleware(tm *auth.TokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			claims, err := auth.VerifyCacheToken(tm, raw)
			if err != nil {
				logger.Debug("cache token verification failed", "error", err)
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired cache token")
				return
			}
			if modelID := r.URL.Query().Get("model_id"); modelID != "" && modelID != claims.ModelID {
				httpserver.RespondError(w, http.StatusForbidden, "forbidden", "cache token does not match model_id")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// jobTokenMiddleware enforces a job-scope bearer token presented by a
// deployment worker reporting its own status transition.
func jobTokenMiddleware(tm *auth.TokenManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
				return
			}
			if _, err := auth.VerifyJobToken(tm, raw); err != nil {
				logger.Debug("job token verification failed", "error", err)
				httpserver.RespondError(w, http.StatusUnauthorized, "unauthorized", "invalid or expired job token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}

// runBackup snapshots every deployed model on a fixed interval, the
// standalone counterpart to the on-demand POST /bazaar/backup endpoint.
func runBackup(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool) error {
	storage := buildCloudStorage(cfg)
	svc := backup.NewService(backup.Config{
		ModelBazaarDir: cfg.ModelBazaarDir,
		DestinationURI: cfg.BackupDest,
		DatabaseURL:    cfg.DatabaseURL,
		RetentionLimit: cfg.BackupLimit,
	}, storage, logger)

	backup.RunPeriodicBackupLoop(ctx, svc, bazaar.NewStore(db), logger, time.Hour)
	return nil
}
