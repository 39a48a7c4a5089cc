package main

import (
	"fmt"

	"github.com/anandavicky123/syncertica/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pool, err := backends.postgresPool(cmd.Context())
		if err != nil {
			return err
		}
		if err := postgres.RunMigrationsWithLock(cmd.Context(), pool); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
		}
		return nil
	},
}
