package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var buildVersion = "v1.0.0"

// rootFlags are shared by every subcommand.
var rootFlags struct {
	config string
}

var rootCmd = &cobra.Command{
	Use:           "fe-release",
	Short:         "fe-release builds, publishes and cleans up Nx workspace artifacts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Interrupts cancel the command context so
// the running subprocess is stopped.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = buildVersion
	rootCmd.PersistentFlags().StringVar(&rootFlags.config, "config", "", "path to artifacts.yaml (default: <workspace root>/artifacts.yaml)")
	rootCmd.AddCommand(releaseCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(affectedCmd)
	rootCmd.AddCommand(distTagCmd)
	rootCmd.AddCommand(initCmd)
}
