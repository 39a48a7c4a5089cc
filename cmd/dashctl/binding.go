package main

import (
	"fmt"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/spf13/cobra"
)

var bindingCmd = &cobra.Command{
	Use:   "binding",
	Short: "Inspect and change manager installation bindings",
}

type bindingOutput struct {
	ManagerID      string `json:"managerId"`
	InstallationID string `json:"installationId,omitempty"`
}

var bindingShowCmd = &cobra.Command{
	Use:   "show <manager-id>",
	Short: "Show the stored binding without contacting GitHub",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		managers, err := backends.managerRepo(cmd.Context())
		if err != nil {
			return err
		}
		b, err := managers.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, bindingOutput{ManagerID: b.ManagerID, InstallationID: b.InstallationID})
		}
		if !b.Bound() {
			fmt.Fprintf(out, "Manager %s is not linked to an installation\n", b.ManagerID)
			return nil
		}
		fmt.Fprintf(out, "Manager %s -> installation %s\n", b.ManagerID, b.InstallationID)
		return nil
	},
}

var bindingResolveCmd = &cobra.Command{
	Use:   "resolve <manager-id>",
	Short: "Resolve the manager's installation, claiming a free one if needed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := backends.coordinator(cmd.Context())
		if err != nil {
			return err
		}
		inst, err := coord.ResolveInstallation(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printInstallation(cmd, inst)
	},
}

var bindingReleaseCmd = &cobra.Command{
	Use:   "release <manager-id>",
	Short: "Unlink the manager and uninstall the app from its installation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := backends.coordinator(cmd.Context())
		if err != nil {
			return err
		}
		result, err := coord.Release(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, result)
		}
		switch {
		case result.InstallationID == "":
			fmt.Fprintf(out, "Manager %s was not linked\n", args[0])
		case result.Uninstalled:
			fmt.Fprintf(out, "Released installation %s and uninstalled the app\n", result.InstallationID)
		default:
			fmt.Fprintf(out, "Released installation %s; uninstall failed, remove the app manually\n", result.InstallationID)
		}
		return nil
	},
}

var bindingTokenCmd = &cobra.Command{
	Use:   "token <manager-id>",
	Short: "Mint an installation access token for the manager",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := backends.coordinator(cmd.Context())
		if err != nil {
			return err
		}
		token, err := coord.InstallationToken(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, token)
		}
		fmt.Fprintf(out, "Token:    %s\n", token.Token)
		fmt.Fprintf(out, "Expires:  %s\n", formatTime(token.ExpiresAt))
		return nil
	},
}

func printInstallation(cmd *cobra.Command, inst *domain.Installation) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		return printJSON(out, inst)
	}
	fmt.Fprintf(out, "Installation: %d\n", inst.ID)
	fmt.Fprintf(out, "Account:      %s (%s)\n", inst.Account.Login, inst.Account.Type)
	fmt.Fprintf(out, "Created:      %s\n", formatTime(inst.CreatedAt))
	return nil
}

func init() {
	bindingCmd.AddCommand(bindingShowCmd)
	bindingCmd.AddCommand(bindingResolveCmd)
	bindingCmd.AddCommand(bindingReleaseCmd)
	bindingCmd.AddCommand(bindingTokenCmd)
}
