// Package comments maintains the PR-comment file that the CI workflow posts
// to the pull request after a snapshot run. Pure Go file manipulation; no
// external commands are invoked.
package comments

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"
)

// Sentinel is the file content until the first artifact is published.
const Sentinel = "No snapshots of projects have been published (probably no project is affected)"

// Header replaces Sentinel once something has been published.
const Header = ":tada: Snapshots of the following projects have been published:"

// Init creates the comments file at path containing Sentinel. An existing
// file is left untouched.
func Init(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("comments: stat %q: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(Sentinel), 0o644); err != nil {
		return fmt.Errorf("comments: create %q: %w", path, err)
	}
	return nil
}

// Append adds line to the comments file. If the file still holds Sentinel,
// its content is first replaced by Header and a "Last updated" stamp taken
// from now. A missing file is created.
func Append(path, line string, now time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("comments: read %q: %w", path, err)
	}
	content := string(data)

	if strings.Contains(content, Sentinel) {
		content = Header + "\n" + "Last updated: " + now.Format("2006-01-02 15:04:05") + "\n"
	}
	content += line + "\n"

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("comments: write %q: %w", path, err)
	}
	return nil
}
