package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/collaborationFactory/github-actions/internal/log"
)

// NpmCLI implements publishing and registry queries with the npm binary.
type NpmCLI struct {
	bin string
	dir string
}

// NewNpmCLI creates an NpmCLI whose queries run in dir, so the workspace
// .npmrc selects the registry.
func NewNpmCLI(dir string) *NpmCLI {
	return &NpmCLI{bin: "npm", dir: dir}
}

// Binary returns the executable name, for PATH checks.
func (n *NpmCLI) Binary() string {
	return n.bin
}

// Publish runs npm publish in distDir.
func (n *NpmCLI) Publish(ctx context.Context, distDir string) (string, error) {
	stdout, stderr, err := n.run(ctx, distDir, "publish")
	if err != nil {
		return "", fmt.Errorf("npm publish in %s: %w", distDir, wrapOutput(err, stdout+stderr))
	}
	return stdout, nil
}

// Unpublish runs npm unpublish spec --force in distDir.
func (n *NpmCLI) Unpublish(ctx context.Context, spec, distDir string) (string, error) {
	stdout, stderr, err := n.run(ctx, distDir, "unpublish", spec, "--force")
	if err != nil {
		return "", fmt.Errorf("npm unpublish %s: %w", spec, wrapOutput(err, stdout+stderr))
	}
	return stdout, nil
}

// Lookup lists the published versions of name with npm view. An E404 from
// the registry yields Lookup{Found: false} and no error.
func (n *NpmCLI) Lookup(ctx context.Context, name string) (Lookup, error) {
	versions, err := n.versions(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return Lookup{Name: name}, nil
	}
	if err != nil {
		return Lookup{}, err
	}
	return Lookup{Name: name, Found: true, Versions: versions}, nil
}

func (n *NpmCLI) versions(ctx context.Context, name string) ([]string, error) {
	stdout, stderr, err := n.run(ctx, n.dir, "view", name, "versions", "--json")
	if err != nil {
		if isNotFound(stdout + stderr) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("npm view %s: %w", name, wrapOutput(err, stdout+stderr))
	}
	return ParseViewVersions([]byte(stdout))
}

// Search lists the names of packages under scope with npm search.
func (n *NpmCLI) Search(ctx context.Context, scope string) ([]string, error) {
	stdout, stderr, err := n.run(ctx, n.dir, "search", scope, "--json")
	if err != nil {
		return nil, fmt.Errorf("npm search %s: %w", scope, wrapOutput(err, stdout+stderr))
	}
	return ParseSearch([]byte(stdout), scope)
}

func (n *NpmCLI) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	log.Command(dir, n.bin, args...)
	cmd := exec.CommandContext(ctx, n.bin, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func isNotFound(output string) bool {
	return strings.Contains(output, "E404") || strings.Contains(output, "404 Not Found")
}

// ParseViewVersions decodes `npm view <pkg> versions --json`, which prints
// an array, or a bare string when only one version exists.
func ParseViewVersions(data []byte) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err == nil {
		return many, nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, fmt.Errorf("parse npm view output: %w", err)
	}
	return []string{one}, nil
}

type searchEntry struct {
	Name string `json:"name"`
}

// ParseSearch decodes `npm search --json` output, either an array of entries
// or an object keyed by package name, and keeps the names under scope.
// The result is sorted.
func ParseSearch(data []byte, scope string) ([]string, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	var entries []searchEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		var byName map[string]searchEntry
		if err2 := json.Unmarshal(data, &byName); err2 != nil {
			return nil, fmt.Errorf("parse npm search output: %w", err)
		}
		for key, e := range byName {
			if e.Name == "" {
				e.Name = key
			}
			entries = append(entries, e)
		}
	}

	prefix := scope + "/"
	seen := make(map[string]bool)
	var names []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name, prefix) || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names, nil
}

// wrapOutput returns an error that includes the last 50 lines of command output.
func wrapOutput(err error, output string) error {
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) > 50 {
		lines = lines[len(lines)-50:]
	}
	return fmt.Errorf("%w\n%s", err, strings.Join(lines, "\n"))
}
