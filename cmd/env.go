package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/git"
	"github.com/collaborationFactory/github-actions/internal/project"
	"github.com/collaborationFactory/github-actions/internal/registry"
)

// workspaceEnv is what every subcommand knows about the workspace before it
// starts working.
type workspaceEnv struct {
	root     string
	scope    string
	settings *config.Settings
	run      config.RunConfig
}

// loadWorkspaceEnv locates the git root containing dir and loads the
// settings file and the CI environment. configPath overrides the default
// <root>/artifacts.yaml.
func loadWorkspaceEnv(ctx context.Context, dir, configPath string, lookup config.LookupFunc) (*workspaceEnv, error) {
	root, err := git.RootDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("locate workspace root: %w", err)
	}
	if configPath == "" {
		configPath = filepath.Join(root, config.FileName)
	}
	settings, err := config.LoadSettings(configPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	run, err := config.FromEnv(lookup)
	if err != nil {
		return nil, err
	}
	return &workspaceEnv{root: root, settings: settings, run: run}, nil
}

// resolveScope reads the npm scope from the root package.json.
func (e *workspaceEnv) resolveScope() error {
	scope, err := config.ParseScope(e.root)
	if err != nil {
		return err
	}
	e.scope = scope
	return nil
}

func (e *workspaceEnv) workspace() (*project.Workspace, error) {
	return project.NewWorkspace(e.root, e.scope, *e.settings, e.run.Credentials)
}

// registryClient publishes through npm and answers queries through the
// backend selected by registry_api.
func (e *workspaceEnv) registryClient(npm *registry.NpmCLI) *registry.Client {
	var index registry.Index
	if e.settings.RegistryAPI == config.RegistryAPIHTTP {
		index = registry.NewHTTPIndex(e.run.Credentials.URL, e.run.Credentials.Base64Token)
	}
	return registry.NewClient(npm, index)
}
