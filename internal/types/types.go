// Package types defines the shared typed constants used across the release
// tooling: the task a run performs and the kind of an Nx project.
package types

// ---------------------------------------------------------------------------
// Tasks
// ---------------------------------------------------------------------------

// Task classifies what a single release run does. Exactly one task is active
// per run.
type Task string

const (
	TaskMainSnapshot Task = "MAIN_SNAPSHOT"
	TaskPRSnapshot   Task = "PR_SNAPSHOT"
	TaskRelease      Task = "RELEASE"
)

// IsSnapshot reports whether the task publishes snapshot versions.
func (t Task) IsSnapshot() bool {
	return t == TaskMainSnapshot || t == TaskPRSnapshot
}

// ---------------------------------------------------------------------------
// Project kinds
// ---------------------------------------------------------------------------

// ProjectKind is the Nx project type of a buildable unit.
type ProjectKind string

const (
	KindApplication ProjectKind = "application"
	KindLibrary     ProjectKind = "library"
)

// Category returns the top-level workspace directory holding projects of
// this kind: "apps" for applications, "libs" for libraries.
func (k ProjectKind) Category() string {
	if k == KindApplication {
		return "apps"
	}
	return "libs"
}
