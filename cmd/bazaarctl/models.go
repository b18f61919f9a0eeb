package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/modelbazaar/controlplane/pkg/bazaar"
)

func newModelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Inspect models known to the control plane",
	}
	cmd.AddCommand(newModelsListCmd())
	return cmd
}

func newModelsListCmd() *cobra.Command {
	var databaseURL, owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List models, optionally filtered by owner",
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := dbURL(databaseURL)
			if err != nil {
				return err
			}
			pool, err := connectPool(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer pool.Close()

			var ownerID *uuid.UUID
			if owner != "" {
				id, err := uuid.Parse(owner)
				if err != nil {
					return fmt.Errorf("invalid --owner: %w", err)
				}
				ownerID = &id
			}

			models, err := bazaar.NewStore(pool).List(cmd.Context(), ownerID)
			if err != nil {
				return fmt.Errorf("listing models: %w", err)
			}
			for _, m := range models {
				fmt.Printf("%s\t%s\t%s\ttrain=%s\tdeploy=%s\n", m.ID, m.Name, m.Type, m.TrainStatus, m.DeployStatus)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default $DATABASE_URI)")
	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner user id")
	return cmd
}
