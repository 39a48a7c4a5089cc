package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var managerCmd = &cobra.Command{
	Use:   "manager",
	Short: "Manage manager records",
}

var managerEnsureCmd = &cobra.Command{
	Use:   "ensure <manager-id>",
	Short: "Create the manager row if it does not exist",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		managers, err := backends.managerRepo(cmd.Context())
		if err != nil {
			return err
		}
		m, err := managers.EnsureManager(cmd.Context(), args[0], name)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, m)
		}
		fmt.Fprintf(out, "ID:           %s\n", m.ID)
		fmt.Fprintf(out, "Name:         %s\n", m.Name)
		fmt.Fprintf(out, "Installation: %s\n", orDash(m.InstallationID))
		fmt.Fprintf(out, "Created:      %s\n", formatTime(m.CreatedAt))
		return nil
	},
}

func init() {
	managerEnsureCmd.Flags().String("name", "", "display name for a new manager")
	managerCmd.AddCommand(managerEnsureCmd)
}
