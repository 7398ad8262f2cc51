package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/collaborationFactory/github-actions/internal/affected"
	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/git"
	"github.com/collaborationFactory/github-actions/internal/nx"
	"github.com/collaborationFactory/github-actions/internal/registry"
	"github.com/collaborationFactory/github-actions/internal/release"
	"github.com/collaborationFactory/github-actions/internal/summary"
)

// releaseFlags override the CI environment. Only flags explicitly changed by
// the user are applied (checked via cmd.Flags().Changed).
var releaseFlags struct {
	base       string
	tag        string
	pr         string
	onlyDelete bool
	onlyBump   bool
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Build and publish workspace artifacts",
	Long: `Build and publish the affected projects of the workspace.

The run is derived from the CI environment: a version/ tag releases every
project, a release/ branch bumps or releases its patch version, a pull
request publishes a PR snapshot and everything else publishes a main
snapshot.`,
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVar(&releaseFlags.base, "base", "", "override BASE, the ref affected projects are computed against")
	releaseCmd.Flags().StringVar(&releaseFlags.tag, "tag", "", "override TAG")
	releaseCmd.Flags().StringVar(&releaseFlags.pr, "pr", "", "override PR_NUMBER")
	releaseCmd.Flags().BoolVar(&releaseFlags.onlyDelete, "only-delete", false, "override ONLY_DELETE_ARTIFACTS")
	releaseCmd.Flags().BoolVar(&releaseFlags.onlyBump, "only-bump", false, "override ONLY_BUMP_VERSION")
}

func runRelease(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	env, err := loadWorkspaceEnv(cmd.Context(), dir, rootFlags.config, os.LookupEnv)
	if err != nil {
		return err
	}
	applyReleaseFlags(cmd.Flags().Changed, &env.run)
	return releaseWorkspace(cmd.Context(), env, cmd.OutOrStdout())
}

// applyReleaseFlags copies the changed flags into run.
func applyReleaseFlags(changed func(string) bool, run *config.RunConfig) {
	if changed("base") {
		run.Base = releaseFlags.base
	}
	if changed("tag") {
		run.Tag = releaseFlags.tag
	}
	if changed("pr") {
		run.PRNumber = releaseFlags.pr
	}
	if changed("only-delete") {
		run.OnlyDeleteArtifacts = releaseFlags.onlyDelete
	}
	if changed("only-bump") {
		run.OnlyBumpVersion = releaseFlags.onlyBump
	}
}

// releaseWorkspace is the testable core of the release command.
//
//  1. Read the npm scope and derive the run state.
//  2. CheckDependencies: git, npm and the nx launcher must be on PATH.
//  3. Scan the workspace and wire the handler.
//  4. Handle the run and print the summary, also on failure.
func releaseWorkspace(ctx context.Context, env *workspaceEnv, out io.Writer) error {
	start := time.Now()
	if err := env.resolveScope(); err != nil {
		return err
	}
	state := release.DeriveState(env.run, env.scope, start)
	state.Log()

	nxCLI, err := nx.New(env.root, env.settings.NxCommand)
	if err != nil {
		return err
	}
	npm := registry.NewNpmCLI(env.root)
	if err := release.CheckDependencies("git", npm.Binary(), nxCLI.Executable()); err != nil {
		return fmt.Errorf("dependency check failed: %w", err)
	}

	ws, err := env.workspace()
	if err != nil {
		return err
	}
	report := summary.New("Release run", start)
	report.Field("Task", string(state.Task))
	report.Field("Version", state.CurrentVersion.String())
	report.Field("Scope", env.scope)
	report.Field("Registry", env.run.RegistryRepo)

	resolver := affected.NewResolver(nxCLI, ws, state.Task, state.CurrentVersion)
	h := release.NewHandler(state, ws, resolver, nxCLI, env.registryClient(npm), git.NewRepo(env.root), report)
	err = h.Handle(ctx)
	if v := h.State().CalculatedNewVersion; v.IsValid() {
		report.Field("New version", v.String())
	}
	report.Print(out, time.Now())
	return err
}
