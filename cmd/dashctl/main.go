package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/anandavicky123/syncertica/internal/platform/config"
	"github.com/anandavicky123/syncertica/internal/platform/logging"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	logLevel   string

	backends *deps
)

var rootCmd = &cobra.Command{
	Use:           "dashctl",
	Short:         "Operator CLI for sessions, installation bindings and notifications",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		slog.SetDefault(logging.New(os.Stderr, logLevel, "text"))

		cfg, err := config.LoadPartial()
		if err != nil {
			return err
		}
		backends = newDeps(cfg)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if backends != nil {
			backends.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(managerCmd)
	rootCmd.AddCommand(installationsCmd)
	rootCmd.AddCommand(bindingCmd)
	rootCmd.AddCommand(notifyCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
