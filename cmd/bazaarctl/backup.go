package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/modelbazaar/controlplane/pkg/backup"
	"github.com/modelbazaar/controlplane/pkg/cloudstorage"
)

func newBackupCmd() *cobra.Command {
	var databaseURL, modelBazaarDir, destination string
	var retentionLimit int

	cmd := &cobra.Command{
		Use:   "backup <model-id>",
		Short: "Snapshot a deployed model's artifacts and metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			modelID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid model id: %w", err)
			}
			url, err := dbURL(databaseURL)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			svc := backup.NewService(backup.Config{
				ModelBazaarDir: modelBazaarDir,
				DestinationURI: destination,
				DatabaseURL:    url,
				RetentionLimit: retentionLimit,
			}, localStorage(), logger)

			uri, err := svc.Backup(cmd.Context(), modelID)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Println(uri)
			return nil
		},
	}

	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default $DATABASE_URI)")
	cmd.Flags().StringVar(&modelBazaarDir, "model-bazaar-dir", "/opt/model_bazaar", "shared artifact directory")
	cmd.Flags().StringVar(&destination, "destination", "local:///opt/model_bazaar/backups", "backup destination URI")
	cmd.Flags().IntVar(&retentionLimit, "retention", backup.DefaultRetentionLimit, "number of archives to retain per model")
	return cmd
}

func localStorage() *cloudstorage.Registry {
	reg := cloudstorage.NewRegistry()
	reg.Register(cloudstorage.NewLocalProvider())
	return reg
}
