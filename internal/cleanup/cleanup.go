// Package cleanup removes main snapshot artifacts from the registry once
// they are older than the retention window.
package cleanup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/project"
	"github.com/collaborationFactory/github-actions/internal/registry"
	"github.com/collaborationFactory/github-actions/internal/summary"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// Index lists the packages of a scope and their versions.
type Index interface {
	Search(ctx context.Context, scope string) ([]string, error)
	Lookup(ctx context.Context, name string) (registry.Lookup, error)
}

// Candidate is a snapshot version selected for deletion.
type Candidate struct {
	Package string
	Version string
	Date    time.Time
}

// Result counts what a sweep did. Failed counts packages whose versions
// could not be listed.
type Result struct {
	Packages int
	Expired  int
	Deleted  int
	Failed   int
}

// Sweeper deletes expired snapshots of every package under the workspace scope.
type Sweeper struct {
	ws       *project.Workspace
	index    Index
	registry project.Registry
	report   *summary.Report
	months   int
	now      func() time.Time
}

// NewSweeper creates a Sweeper that keeps snapshots for the workspace's
// retention period. report may be nil.
func NewSweeper(ws *project.Workspace, index Index, reg project.Registry, report *summary.Report) *Sweeper {
	return &Sweeper{
		ws:       ws,
		index:    index,
		registry: reg,
		report:   report,
		months:   ws.Settings.RetentionMonths,
		now:      time.Now,
	}
}

// Cutoff is the date a snapshot must not be newer than to be deleted.
func (s *Sweeper) Cutoff() time.Time {
	return s.now().AddDate(0, -s.months, 0)
}

// SelectExpired returns the snapshot versions of pkg dated on or before
// cutoff, newest first. Versions without an embedded date are never
// selected.
func SelectExpired(pkg string, versions []string, cutoff time.Time) []Candidate {
	var expired []Candidate
	for _, v := range versions {
		if !version.IsSnapshot(v) {
			continue
		}
		date, ok := version.SnapshotDate(v)
		if !ok || date.After(cutoff) {
			continue
		}
		expired = append(expired, Candidate{Package: pkg, Version: v, Date: date})
	}
	sort.SliceStable(expired, func(i, j int) bool {
		return expired[i].Date.After(expired[j].Date)
	})
	return expired
}

// DeleteSuperfluousArtifacts searches the registry for the workspace scope
// and unpublishes every expired snapshot it finds. A package whose versions
// cannot be listed is logged and skipped. A failed search or a failed
// unpublish aborts the sweep.
func (s *Sweeper) DeleteSuperfluousArtifacts(ctx context.Context) (Result, error) {
	var res Result
	cutoff := s.Cutoff()
	log.Section(fmt.Sprintf("Deleting snapshots of %s older than %s", s.ws.Scope, cutoff.Format(time.DateOnly)))

	packages, err := s.index.Search(ctx, s.ws.Scope)
	if err != nil {
		return res, fmt.Errorf("cleanup: %w", err)
	}
	res.Packages = len(packages)
	log.Info(fmt.Sprintf("Found %d packages in scope %s", len(packages), s.ws.Scope))

	for _, pkg := range packages {
		lookup, err := s.index.Lookup(ctx, pkg)
		if err != nil {
			log.Warning(fmt.Sprintf("skipping %s: %v", pkg, err))
			res.Failed++
			continue
		}
		expired := SelectExpired(pkg, lookup.Versions, cutoff)
		res.Expired += len(expired)
		if len(expired) == 0 {
			continue
		}
		log.Info(fmt.Sprintf("%s: %d expired snapshots", pkg, len(expired)))

		name := strings.TrimPrefix(pkg, s.ws.Scope+"/")
		for _, c := range expired {
			deleted, err := s.delete(ctx, name, c)
			if err != nil {
				return res, fmt.Errorf("cleanup: %w", err)
			}
			if deleted {
				res.Deleted++
				s.record(summary.Entry{Name: pkg, Version: c.Version, Outcome: summary.Deleted, Detail: c.Date.Format(time.DateOnly)})
			}
		}
	}
	return res, nil
}

func (s *Sweeper) delete(ctx context.Context, name string, c Candidate) (bool, error) {
	v := version.FromSnapshotString(c.Version)
	p, err := s.ws.Describe(name, types.KindApplication, types.TaskMainSnapshot, v)
	if err != nil {
		return false, err
	}
	return p.DeleteArtifact(ctx, s.registry, v)
}

func (s *Sweeper) record(e summary.Entry) {
	if s.report != nil {
		s.report.Add(e)
	}
}
