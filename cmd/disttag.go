package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/version"
)

var distTagCmd = &cobra.Command{
	Use:   "dist-tag [branch]",
	Short: "Print the npm dist-tag artifacts of a branch are published under",
	Long:  "Print the npm dist-tag for branch, or for the branch of the CI run when no branch is given.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDistTag,
}

func runDistTag(cmd *cobra.Command, args []string) error {
	branch, err := distTagBranch(args, os.LookupEnv)
	if err != nil {
		return err
	}
	tag, err := version.DistTagForBranch(branch)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tag)
	return nil
}

func distTagBranch(args []string, lookup config.LookupFunc) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	run, err := config.FromEnv(lookup)
	if err != nil {
		return "", err
	}
	return run.CurrentBranch(), nil
}
