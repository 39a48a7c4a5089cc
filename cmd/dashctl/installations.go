package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var installationsCmd = &cobra.Command{
	Use:   "installations",
	Short: "Inspect GitHub App installations",
}

var installationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live installations with their owning manager",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coord, err := backends.coordinator(cmd.Context())
		if err != nil {
			return err
		}
		owned, err := coord.Installations(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return printJSON(out, owned)
		}

		w := newTable(out)
		fmt.Fprintln(w, "ID\tACCOUNT\tTYPE\tMANAGER\tCREATED")
		for _, o := range owned {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				o.Installation.ID,
				o.Installation.Account.Login,
				o.Installation.Account.Type,
				orDash(o.ManagerID),
				formatTime(o.Installation.CreatedAt),
			)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%d installations\n", len(owned))
		return nil
	},
}

func init() {
	installationsCmd.AddCommand(installationsListCmd)
}
