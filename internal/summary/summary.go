// Package summary collects per-project outcomes of a release or cleanup run
// and renders the end-of-run summary box.
package summary

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Outcome is what happened to one project or artifact.
type Outcome string

const (
	Published Outcome = "published"
	Deleted   Outcome = "deleted"
	Skipped   Outcome = "skipped"
	Tagged    Outcome = "tagged"
)

// Entry records one outcome.
type Entry struct {
	Name    string
	Version string
	Outcome Outcome
	// Detail is free text shown next to the entry, e.g. a purl.
	Detail string
}

// Report accumulates entries for one run. Not safe for concurrent use.
type Report struct {
	title   string
	fields  [][2]string
	entries []Entry
	started time.Time
}

// New starts a report titled title at start.
func New(title string, start time.Time) *Report {
	return &Report{title: title, started: start}
}

// Field adds a key/value line to the report header, e.g. the task.
func (r *Report) Field(key, value string) {
	r.fields = append(r.fields, [2]string{key, value})
}

// Add records an entry.
func (r *Report) Add(e Entry) {
	r.entries = append(r.entries, e)
}

// Count returns how many entries have outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, e := range r.entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Entries returns the recorded entries in insertion order.
func (r *Report) Entries() []Entry {
	return append([]Entry(nil), r.entries...)
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	keyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
	outcomeStyles = map[Outcome]lipgloss.Style{
		Published: lipgloss.NewStyle().Foreground(lipgloss.Color("#50C878")),
		Deleted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")),
		Tagged:    lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")),
		Skipped:   lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
	}
)

// Render draws the summary box. end is used for the elapsed time.
func (r *Report) Render(end time.Time) string {
	lines := []string{titleStyle.Render(strings.ToUpper(r.title)), ""}
	for _, f := range r.fields {
		lines = append(lines, fmt.Sprintf("%s %s", keyStyle.Render(fmt.Sprintf("%-14s", f[0]+":")), f[1]))
	}
	lines = append(lines,
		fmt.Sprintf("%s %d published, %d deleted, %d skipped",
			keyStyle.Render(fmt.Sprintf("%-14s", "Projects:")), r.Count(Published), r.Count(Deleted), r.Count(Skipped)),
		fmt.Sprintf("%s %s", keyStyle.Render(fmt.Sprintf("%-14s", "Total Time:")), formatDuration(int(end.Sub(r.started).Seconds()))),
	)

	if len(r.entries) > 0 {
		lines = append(lines, "")
		for _, e := range r.entries {
			line := fmt.Sprintf("%s %s@%s", outcomeStyles[e.Outcome].Render(fmt.Sprintf("%-10s", e.Outcome)), e.Name, e.Version)
			if e.Detail != "" {
				line += "  " + keyStyle.Render(e.Detail)
			}
			lines = append(lines, line)
		}
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// Print writes the rendered summary to w.
func (r *Report) Print(w io.Writer, end time.Time) {
	fmt.Fprintf(w, "\n%s\n\n", r.Render(end))
}

// formatDuration converts a duration in seconds to a human-readable string.
// Examples: "0s", "45s", "3m 15s", "1h 2m 30s".
func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "0s"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
