// Package integration contains the end-to-end smoke tests for fe-release.
//
// Mock tool design: the test binary itself doubles as nx and npm. The tests
// place symlinks named nx and npm that point at the test binary into a tools
// directory on PATH. When MOCK_TOOL_MODE=1 is set, TestMain dispatches on the
// name the binary was started under and acts as that tool before any tests
// run. Every mock invocation appends one line to MOCK_TOOL_LOG.
//
// Run with: go test ./integration/... -v -timeout 120s
package integration

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

const (
	mockToolEnvKey = "MOCK_TOOL_MODE"
	mockLogEnvKey  = "MOCK_TOOL_LOG"
)

// mockAffectedEnvKey lists, comma separated, what `nx show projects` prints.
const mockAffectedEnvKey = "MOCK_NX_PROJECTS"

// binaryPath holds the path to the fe-release binary built during TestMain.
var binaryPath string

func TestMain(m *testing.M) {
	if os.Getenv(mockToolEnvKey) == "1" {
		os.Exit(runAsMockTool())
	}
	// Delegate to a helper so that deferred cleanup runs before os.Exit.
	os.Exit(buildAndRun(m))
}

// buildAndRun builds the fe-release binary, stores its path in binaryPath,
// runs the test suite, and returns the exit code.
func buildAndRun(m *testing.M) int {
	binDir, err := os.MkdirTemp("", "fe-release-smoke-bin-*")
	if err != nil {
		fmt.Fprintf(os.Stderr, "TestMain: create bin dir: %v\n", err)
		return 1
	}
	defer os.RemoveAll(binDir)

	bin := filepath.Join(binDir, "fe-release")
	if runtime.GOOS == "windows" {
		bin += ".exe"
	}

	// go test runs in the package directory (integration/); the module root
	// is its parent.
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "TestMain: getwd: %v\n", err)
		return 1
	}
	buildCmd := exec.Command("go", "build", "-o", bin, ".")
	buildCmd.Dir = filepath.Dir(cwd)
	if out, err := buildCmd.CombinedOutput(); err != nil {
		fmt.Fprintf(os.Stderr, "TestMain: build fe-release: %v\n%s\n", err, out)
		return 1
	}

	binaryPath = bin
	return m.Run()
}

// ---------------------------------------------------------------------------
// Mock tools
// ---------------------------------------------------------------------------

func runAsMockTool() int {
	args := os.Args[1:]
	appendLog(filepath.Base(os.Args[0]) + " " + strings.Join(args, " "))

	switch filepath.Base(os.Args[0]) {
	case "nx":
		return mockNx(args)
	case "npm":
		return mockNpm(args)
	}
	fmt.Fprintf(os.Stderr, "mock tool: unknown tool %s\n", os.Args[0])
	return 1
}

func appendLog(line string) {
	path := os.Getenv(mockLogEnvKey)
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintln(f, line)
}

// mockNx lists the projects from MOCK_NX_PROJECTS and builds a project by
// creating its dist directory. Libraries get their source package.json
// copied the way the Nx library builders do.
func mockNx(args []string) int {
	if len(args) >= 2 && args[0] == "show" && args[1] == "projects" {
		for _, name := range strings.Split(os.Getenv(mockAffectedEnvKey), ",") {
			if name != "" {
				fmt.Println(name)
			}
		}
		return 0
	}
	if len(args) >= 2 && args[0] == "build" {
		name := args[1]
		if data, err := os.ReadFile(filepath.Join("libs", name, "package.json")); err == nil {
			dist := filepath.Join("dist", "libs", name)
			if err := os.MkdirAll(dist, 0o755); err != nil {
				return 1
			}
			if err := os.WriteFile(filepath.Join(dist, "package.json"), data, 0o644); err != nil {
				return 1
			}
		} else {
			dist := filepath.Join("dist", "apps", name)
			if err := os.MkdirAll(dist, 0o755); err != nil {
				return 1
			}
			if err := os.WriteFile(filepath.Join(dist, "main.js"), []byte("console.log('ok')\n"), 0o644); err != nil {
				return 1
			}
		}
		fmt.Printf("Successfully ran target build for project %s\n", name)
		return 0
	}
	fmt.Fprintf(os.Stderr, "mock nx: unsupported command %v\n", args)
	return 1
}

// mockNpm knows no published package, publishes by logging name and
// version of the package.json in its working directory, and accepts
// unpublish.
func mockNpm(args []string) int {
	if len(args) == 0 {
		return 1
	}
	switch args[0] {
	case "view":
		fmt.Fprintln(os.Stderr, "npm error code E404")
		return 1
	case "search":
		fmt.Println("[]")
		return 0
	case "unpublish":
		return 0
	case "publish":
		if _, err := os.Stat(".npmrc"); err != nil {
			fmt.Fprintln(os.Stderr, "mock npm: no .npmrc in publish directory")
			return 1
		}
		data, err := os.ReadFile("package.json")
		if err != nil {
			fmt.Fprintf(os.Stderr, "mock npm: %v\n", err)
			return 1
		}
		var pkg struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		}
		if err := json.Unmarshal(data, &pkg); err != nil {
			fmt.Fprintf(os.Stderr, "mock npm: %v\n", err)
			return 1
		}
		appendLog("published " + pkg.Name + "@" + pkg.Version)
		fmt.Printf("+ %s@%s\n", pkg.Name, pkg.Version)
		return 0
	}
	fmt.Fprintf(os.Stderr, "mock npm: unsupported command %v\n", args)
	return 1
}

// ---------------------------------------------------------------------------
// Smoke tests
// ---------------------------------------------------------------------------

// TestSmokeMainSnapshot publishes a main snapshot of one application and one
// library and checks the dist manifests, the npm calls and the PR comment.
func TestSmokeMainSnapshot(t *testing.T) {
	ws := newWorkspace(t)
	initGitRepo(t, ws.dir)

	out, err := ws.run(t, map[string]string{
		"GITHUB_REF_NAME":  "main",
		mockAffectedEnvKey: "cf-platform,cf-core-lib,cf-platform-e2e",
	}, "release")
	if err != nil {
		t.Fatalf("fe-release release failed: %v\noutput:\n%s", err, out)
	}

	calls := ws.calls(t)
	for _, want := range []string{
		"nx show projects --affected=true --base=origin/main",
		"nx build cf-platform --prod --sourceMap=true",
		"nx build cf-core-lib --prod",
		"published @cplace-next/cf-platform@0.0.0-SNAPSHOT-",
		"published @cplace-next/cf-core-lib@0.0.0-SNAPSHOT-",
	} {
		if !strings.Contains(calls, want) {
			t.Errorf("mock tool log missing %q:\n%s", want, calls)
		}
	}
	if strings.Contains(calls, "build cf-platform-e2e") {
		t.Errorf("e2e project must not be built:\n%s", calls)
	}

	comments := readFile(t, filepath.Join(ws.dir, "githubCommentsForPR.txt"))
	if !strings.HasPrefix(comments, ":tada: Snapshots of the following projects have been published:") ||
		!strings.Contains(comments, "[@cplace-next/cf-platform@0.0.0-SNAPSHOT-") ||
		!strings.Contains(comments, "(https://jfrog.example.com/artifactory/api/npm/npm-local/@cplace-next/cf-core-lib/-/@cplace-next/cf-core-lib-0.0.0-SNAPSHOT-") {
		t.Errorf("unexpected comments file:\n%s", comments)
	}

	npmrc := readFile(t, filepath.Join(ws.dir, "dist", "apps", "cf-platform", ".npmrc"))
	if !strings.HasPrefix(npmrc, "@cplace-next:registry=https://jfrog.example.com/artifactory/api/npm/npm-local/ \n") {
		t.Errorf("unexpected .npmrc:\n%s", npmrc)
	}

	var lib map[string]any
	if err := json.Unmarshal([]byte(readFile(t, filepath.Join(ws.dir, "dist", "libs", "cf-core-lib", "package.json"))), &lib); err != nil {
		t.Fatal(err)
	}
	if lib["author"] != "squad-fe" || lib["name"] != "@cplace-next/cf-core-lib" || lib["peerDependencies"] == nil {
		t.Errorf("unexpected library manifest: %v", lib)
	}
	if cfg, _ := lib["publishConfig"].(map[string]any); cfg["tag"] != "snapshot" {
		t.Errorf("publishConfig = %v", lib["publishConfig"])
	}

	if !strings.Contains(out, "2 published") {
		t.Errorf("summary missing from output:\n%s", out)
	}
}

// TestSmokeReleaseBranchBump pushes the next patch tag of a release branch
// to a bare remote.
func TestSmokeReleaseBranchBump(t *testing.T) {
	ws := newWorkspace(t)
	initGitRepo(t, ws.dir)
	remote := filepath.Join(t.TempDir(), "remote.git")
	gitRun(t, ws.dir, "init", "--bare", remote)
	gitRun(t, ws.dir, "remote", "add", "origin", remote)
	gitRun(t, ws.dir, "checkout", "-b", "release/22.4")
	gitRun(t, ws.dir, "tag", "-a", "version/22.4.1", "-m", "Release version/22.4.1")
	gitRun(t, ws.dir, "push", "origin", "release/22.4", "version/22.4.1")

	out, err := ws.run(t, map[string]string{
		"GITHUB_REF_NAME":   "release/22.4",
		"ONLY_BUMP_VERSION": "true",
		mockAffectedEnvKey:  "cf-platform",
	}, "release")
	if err != nil {
		t.Fatalf("fe-release release failed: %v\noutput:\n%s", err, out)
	}

	tags := gitRun(t, ws.dir, "ls-remote", "--tags", remote)
	if !strings.Contains(tags, "refs/tags/version/22.4.2") {
		t.Errorf("version/22.4.2 not pushed:\n%s", tags)
	}
	if strings.Contains(ws.calls(t), "nx build") {
		t.Error("a version bump must not build anything")
	}
}

// TestSmokeAffectedJobSlice prints the round-robin share of one CI job.
func TestSmokeAffectedJobSlice(t *testing.T) {
	ws := newWorkspace(t)
	initGitRepo(t, ws.dir)

	out, err := ws.runStdout(t, map[string]string{
		mockAffectedEnvKey: "a,b,c,d,e",
	}, "affected", "--target", "test", "--index", "1", "--count", "2", "--base", "main")
	if err != nil {
		t.Fatalf("fe-release affected failed: %v\noutput:\n%s", err, out)
	}
	if strings.TrimSpace(out) != "b,d" {
		t.Errorf("stdout = %q, want %q", out, "b,d")
	}
	if !strings.Contains(ws.calls(t), "nx show projects --affected=true --base=origin/main --withTarget=test") {
		t.Errorf("unexpected nx call:\n%s", ws.calls(t))
	}
}

func TestSmokeDistTag(t *testing.T) {
	ws := newWorkspace(t)
	out, err := ws.runStdout(t, nil, "dist-tag", "release/22.4")
	if err != nil {
		t.Fatalf("fe-release dist-tag failed: %v\n%s", err, out)
	}
	if strings.TrimSpace(out) != "release-22.4" {
		t.Errorf("stdout = %q", out)
	}

	if out, err := ws.runStdout(t, nil, "dist-tag", "feature/x"); err == nil {
		t.Errorf("expected unsupported branch error, got %q", out)
	}
}

// ---------------------------------------------------------------------------
// Fixtures and helpers
// ---------------------------------------------------------------------------

type workspace struct {
	dir   string
	tools string
	log   string
}

// newWorkspace writes a small Nx workspace and a tools directory holding the
// nx and npm symlinks.
func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("mock tools rely on symlinks")
	}
	dir := t.TempDir()
	tools := t.TempDir()

	self, err := os.Executable()
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"nx", "npm"} {
		if err := os.Symlink(self, filepath.Join(tools, name)); err != nil {
			t.Fatalf("symlink %s: %v", name, err)
		}
	}

	writeTestFile(t, dir, "package.json", `{"name": "@cplace-next/frontend", "private": true}`)
	writeTestFile(t, dir, "artifacts.yaml", fmt.Sprintf("nx_command: %s\n", filepath.Join(tools, "nx")))
	writeTestFile(t, dir, "apps/cf-platform/project.json", `{"name": "cf-platform"}`)
	writeTestFile(t, dir, "apps/cf-platform-e2e/project.json", `{"name": "cf-platform-e2e"}`)
	writeTestFile(t, dir, "libs/cf-core-lib/project.json", `{"name": "cf-core-lib"}`)
	writeTestFile(t, dir, "libs/cf-core-lib/package.json", `{
  "name": "@cplace-next/cf-core-lib",
  "version": "0.0.1",
  "publishable": true,
  "peerDependencies": {"@angular/core": "^17.0.0"}
}`)
	writeTestFile(t, dir, ".gitignore", "dist/\n")

	return &workspace{dir: dir, tools: tools, log: filepath.Join(t.TempDir(), "calls.log")}
}

// environ is the process environment for fe-release with the CI variables
// cleared, the mock tools on PATH and registry credentials set.
func (w *workspace) environ(extra map[string]string) []string {
	vars := map[string]string{
		"PATH":                  w.tools + string(os.PathListSeparator) + os.Getenv("PATH"),
		mockToolEnvKey:          "1",
		mockLogEnvKey:           w.log,
		"JFROG_URL":             "https://jfrog.example.com/artifactory/api/npm/npm-local/",
		"JFROG_USER":            "ci@example.com",
		"JFROG_BASE64_TOKEN":    "dG9rZW4=",
		"TAG":                   "",
		"BASE":                  "",
		"PR_NUMBER":             "",
		"ONLY_BUMP_VERSION":     "",
		"ONLY_DELETE_ARTIFACTS": "",
		"SNAPSHOT":              "",
		"GITHUB_EVENT_NAME":     "",
		"GITHUB_HEAD_REF":       "",
		"GITHUB_REF_NAME":       "",
		"NPM_REGISTRY":          "",
	}
	for k, v := range extra {
		vars[k] = v
	}
	var env []string
	for _, kv := range os.Environ() {
		if _, overridden := vars[strings.SplitN(kv, "=", 2)[0]]; !overridden {
			env = append(env, kv)
		}
	}
	for k, v := range vars {
		env = append(env, k+"="+v)
	}
	return env
}

// run executes fe-release and returns the combined output.
func (w *workspace) run(t *testing.T, extra map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = w.dir
	cmd.Env = w.environ(extra)
	out, err := cmd.CombinedOutput()
	t.Logf("fe-release %s output:\n%s", strings.Join(args, " "), out)
	return string(out), err
}

// runStdout executes fe-release and returns stdout only.
func (w *workspace) runStdout(t *testing.T, extra map[string]string, args ...string) (string, error) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = w.dir
	cmd.Env = w.environ(extra)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	t.Logf("fe-release %s stderr:\n%s", strings.Join(args, " "), stderr.String())
	return string(out), err
}

// calls returns the mock tool log.
func (w *workspace) calls(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile(w.log)
	if err != nil && !os.IsNotExist(err) {
		t.Fatal(err)
	}
	return string(data)
}

// writeTestFile writes content to the slash-separated path rel inside dir,
// creating parent directories and failing the test on error.
func writeTestFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

// initGitRepo initialises a git repository in dir with repo-local user config
// and an initial commit that includes all current files.
func initGitRepo(t *testing.T, dir string) {
	t.Helper()
	for _, args := range [][]string{
		{"init", "-b", "main"},
		{"config", "user.email", "test@example.com"},
		{"config", "user.name", "Test"},
		{"add", "-A"},
		{"commit", "-m", "initial setup"},
	} {
		gitRun(t, dir, args...)
	}
}

func gitRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}
