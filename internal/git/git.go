// Package git provides the git operations the release tooling needs:
// locating the repository root, listing remote tags and pushing release tags.
package git

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/collaborationFactory/github-actions/internal/log"
)

// DefaultRemote is the remote tags are listed from and pushed to.
const DefaultRemote = "origin"

// peeledSuffix marks the dereferenced commit line ls-remote prints for
// annotated tags.
const peeledSuffix = "^{}"

// Ref is one line of `git ls-remote` output.
type Ref struct {
	SHA  string
	Name string // full ref name, e.g. refs/tags/version/22.4.1
}

// TagName returns the ref name without its refs/tags/ prefix.
func (r Ref) TagName() string {
	return strings.TrimPrefix(r.Name, "refs/tags/")
}

// RootDir returns the top-level directory of the repository containing dir.
func RootDir(ctx context.Context, dir string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse --show-toplevel: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

var commitHashPattern = regexp.MustCompile(`\b[0-9a-f]{5,40}\b`)

// QualifyBase turns a branch name into its remote-tracking ref
// ("main" -> "origin/main"). Values that look like a commit hash are
// returned unchanged.
func QualifyBase(base string) string {
	if commitHashPattern.MatchString(base) {
		return base
	}
	return DefaultRemote + "/" + base
}

// IsNullCommit reports whether base is the all-zero sha GitHub sends as the
// "before" commit of a newly pushed branch.
func IsNullCommit(base string) bool {
	return strings.Contains(base, "0000000000000000")
}

// Repo runs git commands inside one working tree.
type Repo struct {
	root   string
	remote string
}

// NewRepo creates a Repo rooted at root using the default remote.
func NewRepo(root string) *Repo {
	return &Repo{root: root, remote: DefaultRemote}
}

// ListRemoteTags returns every tag on the remote. Peeled entries of
// annotated tags are folded into their tag so each tag appears once.
func (r *Repo) ListRemoteTags(ctx context.Context) ([]Ref, error) {
	log.Command(r.root, "git", "ls-remote", "--tags", r.remote)
	cmd := exec.CommandContext(ctx, "git", "ls-remote", "--tags", r.remote)
	cmd.Dir = r.root
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ListRemoteTags: git ls-remote: %w", err)
	}
	return ParseLsRemote(string(out)), nil
}

// ParseLsRemote parses `git ls-remote` output ("<sha>\t<ref>" per line).
// Blank and malformed lines are skipped.
func ParseLsRemote(output string) []Ref {
	var refs []Ref
	seen := make(map[string]bool)
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		name := strings.TrimSuffix(fields[1], peeledSuffix)
		if seen[name] {
			continue
		}
		seen[name] = true
		refs = append(refs, Ref{SHA: fields[0], Name: name})
	}
	return refs
}

// CreateAndPushTag creates an annotated tag at HEAD and pushes it to the
// remote. Both steps are fatal on failure.
func (r *Repo) CreateAndPushTag(ctx context.Context, tag string) error {
	if out, err := r.run(ctx, "tag", "-a", tag, "-m", "Release "+tag); err != nil {
		return fmt.Errorf("CreateAndPushTag: git tag %q: %w\n%s", tag, err, out)
	}
	if out, err := r.run(ctx, "push", r.remote, tag); err != nil {
		return fmt.Errorf("CreateAndPushTag: git push %s %q: %w\n%s", r.remote, tag, err, out)
	}
	return nil
}

// DefaultBranch returns the remote's default branch as a remote-tracking
// ref, e.g. "origin/main".
func (r *Repo) DefaultBranch(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--abbrev-ref", r.remote+"/HEAD")
	if err != nil {
		return "", fmt.Errorf("DefaultBranch: git rev-parse: %w\n%s", err, out)
	}
	return out, nil
}

func (r *Repo) run(ctx context.Context, args ...string) (string, error) {
	log.Command(r.root, "git", args...)
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = r.root
	out, err := cmd.CombinedOutput()
	trimmed := strings.TrimSpace(string(out))
	if err == nil {
		log.Block("git "+args[0], trimmed)
	}
	return trimmed, err
}
