// Package affected turns the build tool's project lists into release
// candidates and splits affected projects across parallel CI jobs.
package affected

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/project"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// Lister lists Nx project names.
type Lister interface {
	ShowProjects(ctx context.Context, affected bool, base, target string) ([]string, error)
}

// Resolver builds project descriptors for one run.
type Resolver struct {
	lister  Lister
	ws      *project.Workspace
	task    types.Task
	version version.Version
}

// NewResolver creates a Resolver whose descriptors carry task and v.
func NewResolver(lister Lister, ws *project.Workspace, task types.Task, v version.Version) *Resolver {
	return &Resolver{lister: lister, ws: ws, task: task, version: v}
}

// Affected returns the descriptors of projects of kind affected relative to
// base, sorted by name. e2e and internal API projects are excluded.
func (r *Resolver) Affected(ctx context.Context, base string, kind types.ProjectKind) ([]*project.Project, error) {
	names, err := r.AffectedNames(ctx, base, kind)
	if err != nil {
		return nil, err
	}
	projects := make([]*project.Project, 0, len(names))
	for _, name := range names {
		p, err := r.ws.Describe(name, kind, r.task, r.version)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, nil
}

// AffectedNames is Affected without building descriptors.
func (r *Resolver) AffectedNames(ctx context.Context, base string, kind types.ProjectKind) ([]string, error) {
	all, err := r.lister.ShowProjects(ctx, true, base, "")
	if err != nil {
		return nil, fmt.Errorf("list affected projects: %w", err)
	}
	listing, err := r.categoryListing(kind)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, name := range all {
		if listing[name] && r.eligible(name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	log.Info(fmt.Sprintf("Affected %s: %s", kind.Category(), strings.Join(names, ",")))
	return names, nil
}

// All returns descriptors for every eligible project regardless of what
// changed: libraries first, then applications. A project listed under libs/
// is a library; everything else is an application.
func (r *Resolver) All(ctx context.Context) ([]*project.Project, error) {
	names, err := r.lister.ShowProjects(ctx, false, "", "")
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	libs, err := r.categoryListing(types.KindLibrary)
	if err != nil {
		return nil, err
	}
	apps, err := r.categoryListing(types.KindApplication)
	if err != nil {
		return nil, err
	}

	var libNames, appNames []string
	for _, name := range names {
		switch {
		case !r.eligible(name):
		case libs[name]:
			libNames = append(libNames, name)
		case apps[name]:
			appNames = append(appNames, name)
		}
	}

	var projects []*project.Project
	for _, group := range []struct {
		names []string
		kind  types.ProjectKind
	}{
		{libNames, types.KindLibrary},
		{appNames, types.KindApplication},
	} {
		for _, name := range group.names {
			p, err := r.ws.Describe(name, group.kind, r.task, r.version)
			if err != nil {
				return nil, err
			}
			projects = append(projects, p)
		}
	}
	log.Info("All projects: " + strings.Join(append(append([]string{}, libNames...), appNames...), ","))
	return projects, nil
}

// eligible drops e2e test projects and internal API projects.
func (r *Resolver) eligible(name string) bool {
	s := r.ws.Settings
	return !strings.HasSuffix(name, s.E2ESuffix) && !strings.HasPrefix(name, s.InternalPrefix)
}

// categoryListing returns the entry names of the apps/ or libs/ directory
// in the workspace root. A missing directory lists nothing.
func (r *Resolver) categoryListing(kind types.ProjectKind) (map[string]bool, error) {
	dir := filepath.Join(r.ws.Root, kind.Category())
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]bool{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	listing := make(map[string]bool, len(entries))
	for _, e := range entries {
		listing[e.Name()] = true
	}
	return listing, nil
}
