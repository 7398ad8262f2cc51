package release

import (
	"context"
	"fmt"

	"github.com/collaborationFactory/github-actions/internal/git"
	"github.com/collaborationFactory/github-actions/internal/version"
)

// Git lists and pushes release tags.
type Git interface {
	ListRemoteTags(ctx context.Context) ([]git.Ref, error)
	CreateAndPushTag(ctx context.Context, tag string) error
}

// LatestReleaseTag returns the highest version/ tag among refs that belongs
// to the same major.minor as branchVersion, or an invalid version if there
// is none.
func LatestReleaseTag(refs []git.Ref, branchVersion version.Version) version.Version {
	latest := version.Invalid()
	for _, ref := range refs {
		name := ref.TagName()
		if !version.IsReleaseTag(name) {
			continue
		}
		v := version.Parse(name[len(version.TagPrefix):])
		if !v.IsValid() || v.Major != branchVersion.Major || v.Minor != branchVersion.Minor {
			continue
		}
		if !latest.IsValid() || v.Compare(latest) > 0 {
			latest = v
		}
	}
	return latest
}

// NextReleaseVersion computes the next patch release of a release branch:
// {major}.{minor}.1 when the branch has no release tag yet, otherwise the
// latest tag with its patch incremented.
func NextReleaseVersion(ctx context.Context, g Git, branch string) (version.Version, error) {
	branchVersion := version.FromReleaseBranch(branch)
	if !branchVersion.IsValid() {
		return version.Invalid(), fmt.Errorf("branch %q does not name a release version", branch)
	}
	refs, err := g.ListRemoteTags(ctx)
	if err != nil {
		return version.Invalid(), err
	}

	latest := LatestReleaseTag(refs, branchVersion)
	if !latest.IsValid() {
		branchVersion.Patch = 1
		return branchVersion, nil
	}
	return latest.Bumped(version.BumpPatch), nil
}
