package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modelbazaar/controlplane/pkg/auth"
	"github.com/modelbazaar/controlplane/pkg/user"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Administer control-plane users",
	}
	cmd.AddCommand(newUsersListCmd(), newUsersCreateAdminCmd())
	return cmd
}

func newUsersListCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all users",
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

			rows, err := user.NewStore(pool).List(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing users: %w", err)
			}
			for _, u := range rows {
				fmt.Printf("%s\t%s\t%s\tglobal_admin=%t\tdomain=%s\n", u.ID, u.Username, u.Email, u.GlobalAdmin, u.Domain)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default $DATABASE_URI)")
	return cmd
}

func newUsersCreateAdminCmd() *cobra.Command {
	var databaseURL, username, email, password string
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create a new global-admin user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if username == "" || password == "" {
				return fmt.Errorf("--username and --password are required")
			}
			url, err := dbURL(databaseURL)
			if err != nil {
				return err
			}
			pool, err := connectPool(cmd.Context(), url)
			if err != nil {
				return err
			}
			defer pool.Close()

			store := user.NewStore(pool)
			backend := auth.NewPasswordBackend(store, nil)
			userID, err := backend.CreateUser(cmd.Context(), username, email, password)
			if err != nil {
				return fmt.Errorf("creating user: %w", err)
			}
			if err := store.SetGlobalAdmin(cmd.Context(), userID, true); err != nil {
				return fmt.Errorf("promoting to global admin: %w", err)
			}
			fmt.Println(userID)
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "Postgres connection string (default $DATABASE_URI)")
	cmd.Flags().StringVar(&username, "username", "", "username (required)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (required)")
	return cmd
}
