package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modelbazaar/controlplane/pkg/backup"
)

func newRestoreCmd() *cobra.Command {
	var databaseURL, destDir string
	var applyMetadata bool

	cmd := &cobra.Command{
		Use:   "restore <archive-uri>",
		Short: "Restore a backup archive's artifacts, optionally applying its metadata dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dbURL(databaseURL)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			svc := backup.NewService(backup.Config{DatabaseURL: url}, localStorage(), logger)

			if err := svc.Restore(cmd.Context(), args[0], destDir); err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintln(os.Stderr, "restored artifacts to", destDir)

			if !applyMetadata {
				return nil
			}
			dumpPath := filepath.Join(destDir, "metadata.sql")
			if _, err := os.Stat(dumpPath); err != nil {
				return fmt.Errorf("no metadata.sql found in archive: %w", err)
			}
			psql := exec.CommandContext(cmd.Context(), "psql", url, "-f", dumpPath)
			psql.Stdout = os.Stdout
			psql.Stderr = os.Stderr
			if err := psql.Run(); err != nil {
				return fmt.Errorf("applying metadata dump: %w", err)
			}
			fmt.Fprintln(os.Stderr, "applied metadata dump")
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default $DATABASE_URI)")
	cmd.Flags().StringVar(&destDir, "dest-dir", ".", "directory to extract the archive's artifacts into")
	cmd.Flags().BoolVar(&applyMetadata, "apply-metadata", false, "apply metadata.sql to the database with psql after extracting")
	return cmd
}
