// Package release decides what a CI run does (release, main snapshot or PR
// snapshot), computes the version it publishes under and drives the build,
// publish and delete steps over the affected projects.
package release

import (
	"fmt"
	"strings"
	"time"

	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/git"
	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// State is the derived configuration of one run.
type State struct {
	Task                 types.Task
	Base                 string
	Tag                  string
	CurrentVersion       version.Version
	CalculatedNewVersion version.Version
	OnlyAffected         bool
	IsSnapshot           bool
	OnlyDeleteArtifacts  bool
	OnlyBumpVersion      bool
	PRNumber             string
	CurrentBranch        string
	Scope                string
}

// DeriveState computes the run state from cfg. The rules are applied in a
// fixed order and later rules override earlier ones:
//
//  1. main snapshot of affected projects by default
//  2. a version/ tag releases every project at the tagged version
//  3. a release/ branch releases at {branch}.0
//  4. a snapshot run gets a unique 0.0.0-SNAPSHOT-... version
//  5. a PR number turns the run into a PR snapshot 0.0.0-{branch}-{pr}
func DeriveState(cfg config.RunConfig, scope string, now time.Time) State {
	s := State{
		Task:                 types.TaskMainSnapshot,
		Base:                 git.QualifyBase(cfg.Base),
		Tag:                  cfg.Tag,
		CurrentVersion:       version.Invalid(),
		CalculatedNewVersion: version.Invalid(),
		OnlyAffected:         true,
		IsSnapshot:           cfg.Snapshot,
		OnlyDeleteArtifacts:  cfg.OnlyDeleteArtifacts,
		OnlyBumpVersion:      cfg.OnlyBumpVersion,
		PRNumber:             cfg.PRNumber,
		CurrentBranch:        cfg.CurrentBranch(),
		Scope:                scope,
	}

	releaseRun := false
	if version.IsReleaseTag(s.Tag) {
		s.OnlyAffected = false
		s.IsSnapshot = false
		s.CurrentVersion = version.Parse(strings.TrimPrefix(s.Tag, version.TagPrefix))
		s.Task = types.TaskRelease
		releaseRun = true
	}
	if version.IsReleaseBranch(s.CurrentBranch) {
		s.CurrentVersion = version.FromReleaseBranch(s.CurrentBranch)
		s.IsSnapshot = false
		s.Task = types.TaskRelease
		releaseRun = true
	}
	if s.IsSnapshot {
		s.CurrentVersion = version.Snapshot(version.SnapshotIdentifier(now))
		s.Tag = s.CurrentVersion.String()
	}
	if s.PRNumber != "" {
		if releaseRun {
			log.Warning(fmt.Sprintf("PR #%s overrides the release of %s; publishing a PR snapshot instead", s.PRNumber, s.CurrentVersion))
		}
		s.IsSnapshot = true
		s.CurrentVersion = version.New(version.SnapshotBase, version.PRIdentifier(s.CurrentBranch, s.PRNumber))
		s.Task = types.TaskPRSnapshot
	}
	return s
}

// Log prints the derived state.
func (s State) Log() {
	lines := []string{
		fmt.Sprintf("task:              %s", s.Task),
		fmt.Sprintf("version:           %s", s.CurrentVersion),
		fmt.Sprintf("base:              %s", s.Base),
		fmt.Sprintf("tag:               %s", s.Tag),
		fmt.Sprintf("branch:            %s", s.CurrentBranch),
		fmt.Sprintf("pr:                %s", s.PRNumber),
		fmt.Sprintf("scope:             %s", s.Scope),
		fmt.Sprintf("only affected:     %t", s.OnlyAffected),
		fmt.Sprintf("snapshot:          %t", s.IsSnapshot),
		fmt.Sprintf("only delete:       %t", s.OnlyDeleteArtifacts),
		fmt.Sprintf("only bump version: %t", s.OnlyBumpVersion),
	}
	log.Block("Configuration", strings.Join(lines, "\n"))
}
