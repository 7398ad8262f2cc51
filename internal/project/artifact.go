package project

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/collaborationFactory/github-actions/internal/comments"
	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/registry"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// Builder builds a single Nx project.
type Builder interface {
	Build(ctx context.Context, name string, sourceMap bool) (string, error)
}

// Registry publishes, removes and looks up packages.
type Registry interface {
	Publish(ctx context.Context, distDir string) (string, error)
	Unpublish(ctx context.Context, spec, distDir string) (string, error)
	Lookup(ctx context.Context, name string) (registry.Lookup, error)
}

// Build runs the production build. Applications get source maps in snapshot
// runs.
func (p *Project) Build(ctx context.Context, b Builder) error {
	sourceMap := p.Kind == types.KindApplication && p.Task.IsSnapshot()
	out, err := b.Build(ctx, p.Name, sourceMap)
	if err != nil {
		return err
	}
	log.Block("nx build "+p.Name, out)
	return nil
}

// Publish runs npm publish in the dist directory and records the published
// artifact in the PR-comment file. Unpublishable projects are skipped.
func (p *Project) Publish(ctx context.Context, reg Registry) error {
	if !p.Publishable {
		return nil
	}
	out, err := reg.Publish(ctx, p.DistPath())
	if err != nil {
		return fmt.Errorf("publish %s: %w", p.InstallSpec(p.Version), err)
	}
	log.Block("npm publish "+p.PackageName(), out)
	log.Success(fmt.Sprintf("Published %s (%s)", p.InstallSpec(p.Version), p.PackageURL()))

	if err := comments.Append(p.ws.CommentsPath(), p.MarkdownLink(), p.ws.now()); err != nil {
		return fmt.Errorf("publish %s: %w", p.PackageName(), err)
	}
	return nil
}

// Exists reports whether v of the project is in the registry. A failed
// query counts as absent.
func (p *Project) Exists(ctx context.Context, reg Registry, v version.Version) bool {
	res, err := reg.Lookup(ctx, p.PackageName())
	if err != nil {
		log.Warning(fmt.Sprintf("could not query %s, assuming it is not published: %v", p.PackageName(), err))
		return false
	}
	return res.Has(v.String())
}

// DeleteArtifact unpublishes v of the project. A version that is not in the
// registry is skipped, so repeated calls are harmless. When the dist
// directory is missing it is recreated with .npmrc and package.json if
// credentials are configured; otherwise npm runs from the workspace root.
// It reports whether an unpublish happened.
func (p *Project) DeleteArtifact(ctx context.Context, reg Registry, v version.Version) (bool, error) {
	spec := p.InstallSpec(v)
	log.Info("Checking if package exists in registry")
	if !p.Exists(ctx, reg, v) {
		log.Info(fmt.Sprintf("Package %s does not exist in the registry. Skipping deletion.", spec))
		return false, nil
	}
	log.Info(fmt.Sprintf("Package %s exists in registry, deleting it", spec))

	dir := p.DistPath()
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		if p.ws.Credentials.URL != "" {
			log.Info("Path to project in dist does not exist, creating it: " + dir)
			if err := p.WriteNpmrc(); err != nil {
				return false, err
			}
			if err := p.SetVersion(v); err != nil {
				return false, err
			}
		} else {
			dir = p.ws.Root
		}
	}

	out, err := reg.Unpublish(ctx, spec, dir)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", spec, err)
	}
	log.Block("npm unpublish "+spec, out)
	log.Success("Deleted artifact " + spec)
	return true, nil
}
