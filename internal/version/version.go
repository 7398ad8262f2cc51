// Package version implements the semantic version value used for release
// tags, release branches and snapshot artifacts.
//
// Only major, minor and patch take part in ordering. The custom suffix and
// the unique identifier are carried verbatim into String so snapshot versions
// like 0.0.0-SNAPSHOT-lq2k1x9c-20240131 survive a round trip.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// TagPrefix prefixes every release tag, e.g. version/22.4.1.
	TagPrefix = "version/"

	// ReleaseBranchPrefix prefixes release branches, e.g. release/22.4.
	ReleaseBranchPrefix = "release/"

	// SnapshotBase is the major.minor.patch every snapshot is published under.
	SnapshotBase = "0.0.0"

	// SnapshotLabel marks snapshot versions in the registry.
	SnapshotLabel = "SNAPSHOT"
)

// semverPattern matches a semver-like string, optionally followed by a
// pre-release and build part. It is intentionally not anchored at the start.
var semverPattern = regexp.MustCompile(`([0-9]+)\.([0-9]+)\.([0-9]+)(?:-([0-9A-Za-z-]+(?:\.[0-9A-Za-z-]+)*))?(?:\+[0-9A-Za-z-]+)?$`)

// Version is a major.minor.patch triple plus free-form suffixes.
// An invalid version has all three numbers set to -1.
type Version struct {
	Major            int
	Minor            int
	Patch            int
	CustomSuffix     string
	UniqueIdentifier string
}

// Invalid returns the sentinel version with major, minor and patch set to -1.
func Invalid() Version {
	return Version{Major: -1, Minor: -1, Patch: -1}
}

// Parse reads major, minor and patch from s. Anything that does not look
// like a semantic version yields Invalid().
func Parse(s string) Version {
	return New(s, "")
}

// New parses s and attaches suffix as the custom suffix.
func New(s, suffix string) Version {
	v := Invalid()
	v.CustomSuffix = suffix

	m := semverPattern.FindStringSubmatch(s)
	if m == nil {
		return v
	}
	major, errMajor := strconv.Atoi(m[1])
	minor, errMinor := strconv.Atoi(m[2])
	patch, errPatch := strconv.Atoi(m[3])
	if errMajor != nil || errMinor != nil || errPatch != nil {
		return v
	}
	v.Major, v.Minor, v.Patch = major, minor, patch
	return v
}

// Snapshot returns SnapshotBase carrying identifier as its unique identifier.
func Snapshot(identifier string) Version {
	v := Parse(SnapshotBase)
	v.UniqueIdentifier = identifier
	return v
}

// FromReleaseBranch derives the x.y.0 version of a release branch such as
// "release/22.4".
func FromReleaseBranch(branch string) Version {
	trimmed := strings.TrimSpace(branch)
	trimmed = strings.Replace(trimmed, ReleaseBranchPrefix, "", 1)
	return Parse(trimmed + ".0")
}

// FromSnapshotString splits a registry snapshot version at its first dash:
// "0.0.0-SNAPSHOT-abc-20240101" becomes 0.0.0 with suffix
// "-SNAPSHOT-abc-20240101".
func FromSnapshotString(s string) Version {
	idx := strings.Index(s, "-")
	if idx < 0 {
		return Parse(s)
	}
	return New(s[:idx], s[idx:])
}

// IsValid reports whether major, minor and patch were parsed successfully.
func (v Version) IsValid() bool {
	return v.Major != -1 && v.Minor != -1 && v.Patch != -1
}

// Compare orders versions by major, then minor, then patch. It returns a
// negative number when v < o, zero when equal and a positive number when v > o.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return v.Major - o.Major
	case v.Minor != o.Minor:
		return v.Minor - o.Minor
	default:
		return v.Patch - o.Patch
	}
}

// Bump identifies the component incremented by Bumped.
type Bump int

const (
	BumpPatch Bump = iota
	BumpMinor
)

// Bumped returns a copy of v with the given component incremented.
func (v Version) Bumped(b Bump) Version {
	switch b {
	case BumpMinor:
		v.Minor++
	default:
		v.Patch++
	}
	return v
}

// String renders {major}.{minor}.{patch}{customSuffix}{uniqueIdentifier}.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d%s%s", v.Major, v.Minor, v.Patch, v.CustomSuffix, v.UniqueIdentifier)
}

// GitTag is the release tag name for v, e.g. "version/22.4.1".
func (v Version) GitTag() string {
	return TagPrefix + v.String()
}

// DistTag is the registry distribution tag of a release, e.g. "release-22.4".
func (v Version) DistTag() string {
	return fmt.Sprintf("release-%d.%d", v.Major, v.Minor)
}
