// Command bazaarctl is the operator CLI for the control plane: on-demand
// backup/restore and direct user/model administration against the
// database, bypassing the HTTP API for operations the API itself never
// exposes (promoting a global admin, applying a restored metadata dump).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "bazaarctl",
		Short: "Operate a modelbazaar control-plane deployment",
	}

	root.AddCommand(
		newBackupCmd(),
		newRestoreCmd(),
		newUsersCmd(),
		newModelsCmd(),
	)

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
