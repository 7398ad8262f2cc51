package version

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// maxBranchChars is how much of a branch name ends up in a PR snapshot version.
const maxBranchChars = 50

// dateLayout is the date token embedded at the end of main snapshot versions.
const dateLayout = "20060102"

var (
	disallowedChars = regexp.MustCompile(`[^0-9A-Za-z\-.@]`)
	trailingDate    = regexp.MustCompile(`-([0-9]{8})$`)
)

// ErrUnsupportedBranch is returned by DistTagForBranch for branches that have
// no distribution channel.
var ErrUnsupportedBranch = errors.New("unsupported branch pattern")

// SnapshotIdentifier builds the per-run identifier of a main snapshot:
// "-SNAPSHOT-{epoch millis in base36}-{YYYYMMDD}". Two runs never share the
// millisecond part, and the date part lets the cleanup sweeper age versions.
func SnapshotIdentifier(now time.Time) string {
	return fmt.Sprintf("-%s-%s-%s", SnapshotLabel, strconv.FormatInt(now.UnixMilli(), 36), now.Format(dateLayout))
}

// PRIdentifier builds the identifier of a pull-request snapshot: the first
// 50 characters of the branch with everything outside [0-9A-Za-z-.@]
// replaced by "-", followed by "-{prNumber}".
func PRIdentifier(branch, prNumber string) string {
	runes := []rune(branch)
	if len(runes) > maxBranchChars {
		runes = runes[:maxBranchChars]
	}
	return "-" + disallowedChars.ReplaceAllString(string(runes), "-") + "-" + prNumber
}

// SnapshotDate extracts the YYYYMMDD token that SnapshotIdentifier appends.
// It reports false for versions without a valid trailing date, such as PR
// snapshots.
func SnapshotDate(v string) (time.Time, bool) {
	m := trailingDate.FindStringSubmatch(v)
	if m == nil {
		return time.Time{}, false
	}
	d, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// IsSnapshot reports whether a registry version string carries the snapshot label.
func IsSnapshot(v string) bool {
	return strings.Contains(strings.ToLower(v), strings.ToLower(SnapshotLabel))
}

// IsReleaseBranch reports whether branch is a release branch.
func IsReleaseBranch(branch string) bool {
	return strings.HasPrefix(branch, ReleaseBranchPrefix)
}

// IsReleaseTag reports whether tag is a release tag.
func IsReleaseTag(tag string) bool {
	return strings.HasPrefix(tag, TagPrefix)
}

// DistTagForBranch maps a branch to the distribution tag its artifacts are
// published under: main and master publish "snapshot", release/X.Y publishes
// "release-X.Y".
func DistTagForBranch(branch string) (string, error) {
	switch {
	case branch == "main" || branch == "master":
		return "snapshot", nil
	case IsReleaseBranch(branch):
		return "release-" + strings.TrimPrefix(branch, ReleaseBranchPrefix), nil
	default:
		return "", fmt.Errorf("%w: %s (supported: main, master, %s*)", ErrUnsupportedBranch, branch, ReleaseBranchPrefix)
	}
}
