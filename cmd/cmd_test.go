package cmd

import (
	"io"
	"os"
	"testing"

	"github.com/collaborationFactory/github-actions/internal/config"
	"github.com/collaborationFactory/github-actions/internal/log"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func envLookup(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestApplyReleaseFlags_OnlyChanged(t *testing.T) {
	run := config.RunConfig{Base: "main", Tag: "version/1.0.0", PRNumber: "5"}
	releaseFlags.base = "develop"
	releaseFlags.tag = "ignored"
	releaseFlags.onlyBump = true
	t.Cleanup(func() { releaseFlags.base, releaseFlags.tag, releaseFlags.onlyBump = "", "", false })

	changed := map[string]bool{"base": true, "only-bump": true}
	applyReleaseFlags(func(name string) bool { return changed[name] }, &run)

	if run.Base != "develop" || !run.OnlyBumpVersion {
		t.Errorf("changed flags not applied: %+v", run)
	}
	if run.Tag != "version/1.0.0" || run.PRNumber != "5" {
		t.Errorf("unchanged flags must keep env values: %+v", run)
	}
}

func TestDistTagBranch(t *testing.T) {
	got, err := distTagBranch([]string{"release/22.4"}, envLookup(nil))
	if err != nil || got != "release/22.4" {
		t.Errorf("distTagBranch(arg) = %q, %v", got, err)
	}

	got, err = distTagBranch(nil, envLookup(map[string]string{
		"GITHUB_EVENT_NAME": "pull_request",
		"GITHUB_HEAD_REF":   "feat/x",
		"GITHUB_REF_NAME":   "12/merge",
	}))
	if err != nil || got != "feat/x" {
		t.Errorf("distTagBranch(env) = %q, %v", got, err)
	}
}
