// Package project describes a single Nx project as a publishable npm
// artifact: where it lives in the source tree and in dist, whether it may be
// published, and how its dist manifest, .npmrc and licence list are written
// before npm publish runs.
package project

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// Workspace is the Nx monorepo the projects belong to.
type Workspace struct {
	Root        string
	Scope       string
	Settings    config.Settings
	Credentials config.Credentials

	// projectFiles are slash-separated paths of every project.json below
	// Root, relative to Root.
	projectFiles []string

	now func() time.Time
}

// NewWorkspace scans root for project.json files. dist output, node_modules
// and .git are skipped.
func NewWorkspace(root, scope string, settings config.Settings, creds config.Credentials) (*Workspace, error) {
	files, err := findProjectFiles(root)
	if err != nil {
		return nil, err
	}
	return &Workspace{
		Root:         root,
		Scope:        scope,
		Settings:     settings,
		Credentials:  creds,
		projectFiles: files,
		now:          time.Now,
	}, nil
}

func findProjectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel == "dist" || d.Name() == "node_modules" || d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == "project.json" && rel != "project.json" {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s for project.json: %w", root, err)
	}
	return files, nil
}

// ProjectFiles returns the project.json locations found at construction.
func (w *Workspace) ProjectFiles() []string {
	return append([]string(nil), w.projectFiles...)
}

// CommentsPath is the PR-comment file in the workspace root.
func (w *Workspace) CommentsPath() string {
	return filepath.Join(w.Root, w.Settings.CommentsFile)
}

// RegistryURL is the npm registry URL without a trailing slash.
func (w *Workspace) RegistryURL() string {
	return strings.TrimRight(w.Credentials.URL, "/")
}

// Describe creates the descriptor of an Nx project. The source path is
// resolved and publishability is decided before it returns.
func (w *Workspace) Describe(name string, kind types.ProjectKind, task types.Task, v version.Version) (*Project, error) {
	p := &Project{
		Name:    name,
		Kind:    kind,
		Task:    task,
		Version: v,
		Scope:   w.Scope,
		ws:      w,
	}
	p.Resolve()
	if err := p.loadSourceManifest(); err != nil {
		return nil, err
	}
	p.Publishable = p.decidePublishable()
	return p, nil
}
