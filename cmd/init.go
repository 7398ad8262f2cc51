package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/log"
)

var initFlags struct {
	force bool
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default artifacts.yaml",
	Long:  "Scaffold artifacts.yaml with the default workspace conventions in the current directory.",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.force, "force", false, "Overwrite an existing artifacts.yaml")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	return initWorkspace(dir, initFlags.force)
}

// initWorkspace is the testable core of the init command.
func initWorkspace(dir string, force bool) error {
	path := filepath.Join(dir, config.FileName)
	if !force {
		if _, statErr := os.Stat(path); statErr == nil {
			return fmt.Errorf("%s already exists; use --force to overwrite", config.FileName)
		}
	}

	body, err := config.Defaults().Marshal()
	if err != nil {
		return fmt.Errorf("render %s: %w", config.FileName, err)
	}
	content := settingsHeader + string(body)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", config.FileName, err)
	}
	log.Success(fmt.Sprintf("created %s", config.FileName))
	return nil
}

const settingsHeader = `# artifacts.yaml: workspace conventions for fe-release.
# nx_command        launcher for Nx, e.g. "npx nx" or ./node_modules/.bin/nx
# e2e_suffix        projects ending in this are end-to-end test projects
# internal_prefix   projects starting with this are never published
# public_api_file   e2e projects ship an artifact only if src/<file> exists
# license_list_file copied into every dist directory when present
# comments_file     PR comment listing the published snapshots
# retention_months  age at which the cleanup command deletes main snapshots
# registry_api      cli (npm view/search) or http (registry REST API)
`
