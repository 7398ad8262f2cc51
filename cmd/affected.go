package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/collaborationFactory/github-actions/internal/affected"
	"github.com/collaborationFactory/github-actions/internal/git"
	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/nx"
)

var affectedFlags struct {
	target string
	index  int
	count  int
	base   string
	ref    string
}

var affectedCmd = &cobra.Command{
	Use:   "affected",
	Short: "Print the affected projects one CI job should run a target for",
	Long: `Print, comma separated, the affected projects that job --index (0-based)
of --count parallel jobs runs --target for. Logs go to stderr.`,
	RunE: runAffected,
}

func init() {
	affectedCmd.Flags().StringVar(&affectedFlags.target, "target", "", "Nx target, e.g. test, lint or e2e")
	affectedCmd.Flags().IntVar(&affectedFlags.index, "index", 0, "0-based index of this job")
	affectedCmd.Flags().IntVar(&affectedFlags.count, "count", 1, "number of parallel jobs")
	affectedCmd.Flags().StringVar(&affectedFlags.base, "base", "", "override BASE")
	affectedCmd.Flags().StringVar(&affectedFlags.ref, "ref", "", "git ref of the run; the e2e target runs every project when empty")
	_ = affectedCmd.MarkFlagRequired("target")
}

func runAffected(cmd *cobra.Command, args []string) error {
	log.SetOutput(cmd.ErrOrStderr())
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	env, err := loadWorkspaceEnv(cmd.Context(), dir, rootFlags.config, os.LookupEnv)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("base") {
		env.run.Base = affectedFlags.base
	}
	return printJobSlice(cmd.Context(), env, affectedFlags.target, affectedFlags.index, affectedFlags.count, affectedFlags.ref, cmd.OutOrStdout())
}

// printJobSlice resolves the base ref and prints the job's projects. The
// all-zero sha GitHub sends for a new branch has no history to diff
// against, so the remote default branch is used instead.
func printJobSlice(ctx context.Context, env *workspaceEnv, target string, index, count int, ref string, out io.Writer) error {
	base := env.run.Base
	if git.IsNullCommit(base) {
		def, err := git.NewRepo(env.root).DefaultBranch(ctx)
		if err != nil {
			return err
		}
		log.Warning(fmt.Sprintf("base %s is the null commit, using %s", base, def))
		base = def
	} else {
		base = git.QualifyBase(base)
	}

	nxCLI, err := nx.New(env.root, env.settings.NxCommand)
	if err != nil {
		return err
	}
	names, err := affected.JobSlice(ctx, nxCLI, target, index, count, base, ref)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(names, ","))
	return nil
}
