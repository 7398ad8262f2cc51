package affected_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/collaborationFactory/github-actions/internal/affected"
	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/log"
	"github.com/collaborationFactory/github-actions/internal/project"
	"github.com/collaborationFactory/github-actions/internal/types"
	"github.com/collaborationFactory/github-actions/internal/version"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type call struct {
	affected bool
	base     string
	target   string
}

type fakeLister struct {
	affected []string
	all      []string
	err      error
	calls    []call
}

func (f *fakeLister) ShowProjects(_ context.Context, affected bool, base, target string) ([]string, error) {
	f.calls = append(f.calls, call{affected, base, target})
	if f.err != nil {
		return nil, f.err
	}
	if affected {
		return f.affected, nil
	}
	return f.all, nil
}

func newWorkspace(t *testing.T) *project.Workspace {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{
		"apps/cf-platform", "apps/cf-platform-e2e", "apps/api-gateway", "apps/cf-admin",
		"libs/cf-core-lib", "libs/cf-core-lib-e2e", "libs/api-client",
	} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(root, dir, "project.json"), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	ws, err := project.NewWorkspace(root, "@cplace-next", config.Defaults(), config.Credentials{})
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

func names(ps []*project.Project) []string {
	var out []string
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}

func TestAffected_FiltersAndSorts(t *testing.T) {
	lister := &fakeLister{affected: []string{
		"cf-platform", "cf-platform-e2e", "api-gateway", "cf-core-lib", "cf-core-lib-e2e", "api-client", "cf-admin", "tools-only",
	}}
	v := version.Parse("22.4.0")
	r := affected.NewResolver(lister, newWorkspace(t), types.TaskRelease, v)

	apps, err := r.Affected(context.Background(), "origin/main", types.KindApplication)
	if err != nil {
		t.Fatalf("Affected apps: %v", err)
	}
	if got := names(apps); !reflect.DeepEqual(got, []string{"cf-admin", "cf-platform"}) {
		t.Errorf("apps = %v", got)
	}
	for _, p := range apps {
		if p.Kind != types.KindApplication || p.Task != types.TaskRelease || p.Version != v || p.Scope != "@cplace-next" {
			t.Errorf("descriptor fields not carried: %+v", p)
		}
	}

	libs, err := r.Affected(context.Background(), "origin/main", types.KindLibrary)
	if err != nil {
		t.Fatalf("Affected libs: %v", err)
	}
	if got := names(libs); !reflect.DeepEqual(got, []string{"cf-core-lib"}) {
		t.Errorf("libs = %v", got)
	}
	if lister.calls[0] != (call{true, "origin/main", ""}) {
		t.Errorf("lister call = %+v", lister.calls[0])
	}
}

func TestAffected_ListerError(t *testing.T) {
	r := affected.NewResolver(&fakeLister{err: errors.New("nx failed")}, newWorkspace(t), types.TaskMainSnapshot, version.Invalid())
	if _, err := r.Affected(context.Background(), "origin/main", types.KindLibrary); err == nil {
		t.Fatal("expected error")
	}
}

func TestAll_LibsFirst(t *testing.T) {
	lister := &fakeLister{all: []string{"cf-platform", "cf-core-lib", "cf-admin", "api-client", "cf-platform-e2e"}}
	r := affected.NewResolver(lister, newWorkspace(t), types.TaskRelease, version.Parse("5.18.0"))

	got, err := r.All(context.Background())
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if n := names(got); !reflect.DeepEqual(n, []string{"cf-core-lib", "cf-platform", "cf-admin"}) {
		t.Errorf("All = %v", n)
	}
	if got[0].Kind != types.KindLibrary || got[1].Kind != types.KindApplication {
		t.Errorf("kinds = %s, %s", got[0].Kind, got[1].Kind)
	}
	if lister.calls[0] != (call{false, "", ""}) {
		t.Errorf("lister call = %+v", lister.calls[0])
	}
}

func TestDistribute(t *testing.T) {
	got := affected.Distribute([]string{"a", "b", "c", "d", "e"}, 2)
	want := [][]string{{"a", "c", "e"}, {"b", "d"}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Distribute = %v, want %v", got, want)
	}
	if got := affected.Distribute([]string{"a"}, 3); len(got) != 3 || got[1] != nil {
		t.Errorf("Distribute with more jobs than projects = %v", got)
	}
}

func TestJobSlice(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		ref      string
		wantCall call
	}{
		{"affected build", "build", "refs/pull/1", call{true, "origin/main", "build"}},
		{"e2e on push", "e2e", "", call{false, "", "e2e"}},
		{"e2e on pr", "e2e", "refs/pull/1", call{true, "origin/main", "e2e"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lister := &fakeLister{affected: []string{"a", "b", "c"}, all: []string{"a", "b", "c"}}
			got, err := affected.JobSlice(context.Background(), lister, tt.target, 1, 2, "origin/main", tt.ref)
			if err != nil {
				t.Fatalf("JobSlice: %v", err)
			}
			if !reflect.DeepEqual(got, []string{"b"}) {
				t.Errorf("JobSlice = %v", got)
			}
			if lister.calls[0] != tt.wantCall {
				t.Errorf("call = %+v, want %+v", lister.calls[0], tt.wantCall)
			}
		})
	}
}

func TestJobSlice_InvalidIndex(t *testing.T) {
	lister := &fakeLister{}
	for _, c := range []struct{ index, count int }{{2, 2}, {-1, 2}, {0, 0}} {
		if _, err := affected.JobSlice(context.Background(), lister, "build", c.index, c.count, "main", ""); err == nil {
			t.Errorf("JobSlice(%d of %d): expected error", c.index, c.count)
		}
	}
}
