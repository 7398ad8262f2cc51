package release

import (
	"context"
	"errors"
	"fmt"

	"github.com/collaborationFactory/github-actions/internal/comments"
	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/project"
	"github.com/collaborationFactory/github-actions/internal/summary"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// ErrNoVersion is returned when a run would publish or delete without a
// valid version, e.g. a main build with SNAPSHOT=false.
var ErrNoVersion = errors.New("no valid version for this run")

// Projects supplies the project descriptors of a run.
type Projects interface {
	Affected(ctx context.Context, base string, kind types.ProjectKind) ([]*project.Project, error)
	All(ctx context.Context) ([]*project.Project, error)
}

// Handler executes one release run.
type Handler struct {
	state    State
	ws       *project.Workspace
	projects Projects
	builder  project.Builder
	registry project.Registry
	git      Git
	report   *summary.Report
}

// NewHandler wires a Handler for state. report receives one entry per
// processed project and may be nil.
func NewHandler(state State, ws *project.Workspace, projects Projects, builder project.Builder, reg project.Registry, g Git, report *summary.Report) *Handler {
	return &Handler{
		state:    state,
		ws:       ws,
		projects: projects,
		builder:  builder,
		registry: reg,
		git:      g,
		report:   report,
	}
}

// State returns the run state, including the calculated version after a bump.
func (h *Handler) State() State {
	return h.state
}

// Handle runs the release: the PR-comment file is created first, then
// either the release branch version is bumped or the projects are built and
// published.
func (h *Handler) Handle(ctx context.Context) error {
	if err := comments.Init(h.ws.CommentsPath()); err != nil {
		return err
	}

	if h.state.OnlyBumpVersion && version.IsReleaseBranch(h.state.CurrentBranch) {
		log.Section("Bumping version for release branch " + h.state.CurrentBranch)
		return h.bumpVersion(ctx)
	}

	if !h.state.CurrentVersion.IsValid() {
		return fmt.Errorf("%s on %q: %w", h.state.Task, h.state.CurrentBranch, ErrNoVersion)
	}

	log.Section("Building and publishing projects")
	projects, err := h.initProjects(ctx)
	if err != nil {
		return err
	}
	return h.buildAndPublish(ctx, projects)
}

func (h *Handler) initProjects(ctx context.Context) ([]*project.Project, error) {
	if !h.state.OnlyAffected {
		return h.projects.All(ctx)
	}
	return h.affected(ctx)
}

// affected lists affected applications, then affected libraries.
func (h *Handler) affected(ctx context.Context) ([]*project.Project, error) {
	apps, err := h.projects.Affected(ctx, h.state.Base, types.KindApplication)
	if err != nil {
		return nil, err
	}
	libs, err := h.projects.Affected(ctx, h.state.Base, types.KindLibrary)
	if err != nil {
		return nil, err
	}
	return append(apps, libs...), nil
}

// bumpVersion tags the next patch release of the release branch. A tag is
// only pushed if something changed since the last one, or if it is the
// first release of the branch.
func (h *Handler) bumpVersion(ctx context.Context) error {
	projects, err := h.affected(ctx)
	if err != nil {
		return err
	}

	next, err := NextReleaseVersion(ctx, h.git, h.state.CurrentBranch)
	if err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	h.state.CalculatedNewVersion = next
	log.Info(fmt.Sprintf("The calculated new tag/version for branch %s is %s", h.state.CurrentBranch, next))

	if len(projects) == 0 && next.Patch != 1 {
		log.Info("No projects are affected and no new minor release branch was added, therefore no new version is needed")
		return nil
	}
	if err := h.git.CreateAndPushTag(ctx, next.GitTag()); err != nil {
		return fmt.Errorf("bump version: %w", err)
	}
	log.Success("Pushed tag " + next.GitTag())
	h.record(summary.Entry{Name: h.state.CurrentBranch, Version: next.String(), Outcome: summary.Tagged, Detail: next.GitTag()})
	return nil
}

// buildAndPublish handles each publishable project in order. The registry
// and the dist directories are shared, so projects are never processed
// concurrently.
func (h *Handler) buildAndPublish(ctx context.Context, projects []*project.Project) error {
	log.Info(fmt.Sprintf("Number of projects being processed: %d", len(projects)))
	for _, p := range projects {
		log.Info(fmt.Sprintf("Currently processing: %s (%s)", p.Name, p.Kind))
		if !p.Publishable {
			h.record(summary.Entry{Name: p.PackageName(), Version: h.state.CurrentVersion.String(), Outcome: summary.Skipped, Detail: "not publishable"})
			continue
		}

		if h.state.OnlyDeleteArtifacts {
			deleted, err := p.DeleteArtifact(ctx, h.registry, h.state.CurrentVersion)
			if err != nil {
				return err
			}
			if deleted {
				h.record(summary.Entry{Name: p.PackageName(), Version: h.state.CurrentVersion.String(), Outcome: summary.Deleted})
			}
			continue
		}

		if err := h.publish(ctx, p); err != nil {
			return err
		}
		h.record(summary.Entry{Name: p.PackageName(), Version: h.state.CurrentVersion.String(), Outcome: summary.Published, Detail: p.PackageURL()})
	}
	return nil
}

func (h *Handler) publish(ctx context.Context, p *project.Project) error {
	if err := p.Build(ctx, h.builder); err != nil {
		return err
	}
	if err := p.WriteNpmrc(); err != nil {
		return err
	}
	if err := p.CopyLicenseList(); err != nil {
		return err
	}
	if err := p.SetVersion(h.state.CurrentVersion); err != nil {
		return err
	}
	// PR snapshots reuse one version for every push to the PR and the
	// registry refuses to overwrite a published version.
	if h.state.Task == types.TaskPRSnapshot {
		if _, err := p.DeleteArtifact(ctx, h.registry, h.state.CurrentVersion); err != nil {
			return err
		}
	}
	return p.Publish(ctx, h.registry)
}

func (h *Handler) record(e summary.Entry) {
	if h.report != nil {
		h.report.Add(e)
	}
}
