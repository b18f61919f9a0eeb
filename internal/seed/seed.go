// Package seed bootstraps a fresh control-plane database with its first
// global-admin user. It is idempotent: if a global admin already exists it
// logs and returns nil.
package seed

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/modelbazaar/controlplane/internal/config"
	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/user"
)

// Run creates the first global-admin user from cfg.SeedAdmin* if no
// global admin exists yet.
func Run(ctx context.Context, pool *pgxpool.Pool, cfg *config.Config, logger *slog.Logger) error {
	store := user.NewStore(pool)

	exists, err := store.ExistsGlobalAdmin(ctx)
	if err != nil {
		return fmt.Errorf("checking for existing global admin: %w", err)
	}
	if exists {
		logger.Info("seed: a global admin already exists, skipping")
		return nil
	}

	password := cfg.SeedAdminPassword
	if password == "" {
		password, err = generatePassword()
		if err != nil {
			return fmt.Errorf("generating seed admin password: %w", err)
		}
	}

	backend := auth.NewPasswordBackend(store, nil)
	userID, err := backend.CreateUser(ctx, cfg.SeedAdminUsername, cfg.SeedAdminEmail, password)
	if err != nil {
		return fmt.Errorf("creating seed admin user: %w", err)
	}
	if err := store.SetGlobalAdmin(ctx, userID, true); err != nil {
		return fmt.Errorf("promoting seed admin to global admin: %w", err)
	}

	logger.Info("seed: created initial global admin",
		"username", cfg.SeedAdminUsername,
		"email", cfg.SeedAdminEmail,
		"user_id", userID,
	)
	if cfg.SeedAdminPassword == "" {
		logger.Warn("seed: generated a random admin password, it will not be shown again", "password", password)
	}
	return nil
}

func generatePassword() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
