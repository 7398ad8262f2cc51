package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/collaborationFactory/github-actions/internal/cleanup"
	"github.com/collaborationFactory/github-actions/internal/registry"
	"github.com/collaborationFactory/github-actions/internal/release"
	"github.com/collaborationFactory/github-actions/internal/summary"
)

var cleanupFlags struct {
	retentionMonths int
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired main snapshots from the registry",
	Long:  "Delete main snapshot versions of every package in the workspace scope that are older than the retention window.",
	RunE:  runCleanup,
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupFlags.retentionMonths, "retention-months", 0, "override retention_months from artifacts.yaml")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	env, err := loadWorkspaceEnv(cmd.Context(), dir, rootFlags.config, os.LookupEnv)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("retention-months") {
		env.settings.RetentionMonths = cleanupFlags.retentionMonths
		if err := env.settings.Validate(); err != nil {
			return err
		}
	}
	return cleanupWorkspace(cmd.Context(), env, cmd.OutOrStdout())
}

func cleanupWorkspace(ctx context.Context, env *workspaceEnv, out io.Writer) error {
	start := time.Now()
	if err := env.resolveScope(); err != nil {
		return err
	}
	npm := registry.NewNpmCLI(env.root)
	if err := release.CheckDependencies(npm.Binary()); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}
	ws, err := env.workspace()
	if err != nil {
		return err
	}

	client := env.registryClient(npm)
	report := summary.New("Snapshot cleanup", start)
	report.Field("Scope", env.scope)
	report.Field("Retention", fmt.Sprintf("%d months", env.settings.RetentionMonths))

	res, err := cleanup.NewSweeper(ws, client, client, report).DeleteSuperfluousArtifacts(ctx)
	report.Field("Packages", fmt.Sprint(res.Packages))
	report.Field("Expired", fmt.Sprint(res.Expired))
	if res.Failed > 0 {
		report.Field("Unlisted", fmt.Sprint(res.Failed))
	}
	report.Print(out, time.Now())
	return err
}
