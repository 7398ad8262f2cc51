// Package nx wraps the Nx build tool: listing (affected) projects and
// building a single project. All commands use exec.CommandContext with an
// explicit args slice; no shell eval.
package nx

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/collaborationFactory/github-actions/internal/log"
)

// CLI runs nx through a configurable launcher such as "npx nx" or
// "./node_modules/.bin/nx".
type CLI struct {
	root string
	argv []string
}

// New creates a CLI rooted at the workspace root. command is tokenized like
// a POSIX shell would, so quoted arguments survive.
func New(root, command string) (*CLI, error) {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return nil, fmt.Errorf("nx command must not be empty or whitespace")
	}
	argv, err := splitShellArgs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse nx command: %w", err)
	}
	return &CLI{root: root, argv: argv}, nil
}

// Executable returns the program the launcher starts, for PATH checks.
func (c *CLI) Executable() string {
	return c.argv[0]
}

// ShowProjects lists project names. With affected set, only projects
// affected relative to base are listed. A non-empty target restricts the
// list to projects that define it.
func (c *CLI) ShowProjects(ctx context.Context, affected bool, base, target string) ([]string, error) {
	args := []string{"show", "projects", fmt.Sprintf("--affected=%t", affected)}
	if base != "" {
		args = append(args, "--base="+base)
	}
	if target != "" {
		args = append(args, "--withTarget="+target)
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, fmt.Errorf("ShowProjects: %w", err)
	}
	return ParseProjectList(out), nil
}

// Build runs a production build of one project. sourceMap adds
// --sourceMap=true for snapshot builds of applications.
func (c *CLI) Build(ctx context.Context, name string, sourceMap bool) (string, error) {
	args := []string{"build", name, "--prod"}
	if sourceMap {
		args = append(args, "--sourceMap=true")
	}
	out, err := c.run(ctx, args...)
	if err != nil {
		return "", fmt.Errorf("Build %s: %w", name, err)
	}
	return out, nil
}

func (c *CLI) run(ctx context.Context, args ...string) (string, error) {
	full := append(append([]string{}, c.argv[1:]...), args...)
	log.Command(c.root, c.argv[0], full...)
	cmd := exec.CommandContext(ctx, c.argv[0], full...)
	cmd.Dir = c.root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", wrapOutput(err, out)
	}
	return string(out), nil
}

// ParseProjectList splits `nx show projects` output into project names.
// Names are separated by newlines or spaces; blanks are dropped.
func ParseProjectList(output string) []string {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// wrapOutput returns an error that includes the last 50 lines of command output.
func wrapOutput(err error, output []byte) error {
	lines := strings.Split(strings.TrimRight(string(output), "\n"), "\n")
	if len(lines) > 50 {
		lines = lines[len(lines)-50:]
	}
	return fmt.Errorf("%w\n%s", err, strings.Join(lines, "\n"))
}
