package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

// dbURL resolves the database connection string: the --database-url flag
// wins, else DATABASE_URI, matching internal/config's own env tag so a
// single .env works for both the server and this CLI.
func dbURL(flagVal string) (string, error) {
	if flagVal != "" {
		return flagVal, nil
	}
	if v := os.Getenv("DATABASE_URI"); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("no database URL: pass --database-url or set DATABASE_URI")
}

func connectPool(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
