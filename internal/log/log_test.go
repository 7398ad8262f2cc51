package log_test

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/collaborationFactory/github-actions/internal/log"
)

// captureOutput redirects log output during fn and returns what was written.
func captureOutput(fn func()) string {
	var buf bytes.Buffer
	prev := log.SetOutput(&buf)
	defer log.SetOutput(prev)
	fn()
	return buf.String()
}

func TestLevels(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(string)
		prefix string
	}{
		{"info", log.Info, "[INFO]"},
		{"success", log.Success, "[SUCCESS]"},
		{"warning", log.Warning, "[WARNING]"},
		{"error", log.Error, "[ERROR]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(func() { tt.fn("test message") })
			if !strings.Contains(out, tt.prefix) {
				t.Errorf("output missing %s: %q", tt.prefix, out)
			}
			if !strings.Contains(out, "test message") {
				t.Errorf("output missing message: %q", out)
			}
		})
	}
}

func TestFatal(t *testing.T) {
	var exitCode int
	log.OsExit = func(code int) { exitCode = code }
	defer func() { log.OsExit = os.Exit }()

	out := captureOutput(func() { log.Fatal("fatal message") })

	if exitCode != 1 {
		t.Errorf("Fatal did not call exit with code 1, got: %d", exitCode)
	}
	if !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "fatal message") {
		t.Errorf("Fatal output = %q", out)
	}
}

func TestCommand(t *testing.T) {
	out := captureOutput(func() { log.Command("dist/libs/sdk", "npm", "publish") })
	if !strings.Contains(out, "[EXEC]") || !strings.Contains(out, "npm publish") {
		t.Errorf("Command output = %q", out)
	}
	if !strings.Contains(out, "dist/libs/sdk") {
		t.Errorf("Command output missing working dir: %q", out)
	}

	out = captureOutput(func() { log.Command("", "git", "ls-remote", "--tags") })
	if strings.Contains(out, "(in ") {
		t.Errorf("Command without dir should not print a working dir: %q", out)
	}
}

func TestBlock(t *testing.T) {
	out := captureOutput(func() { log.Block("package.json", "{\n  \"name\": \"x\"\n}\n") })
	if !strings.Contains(out, "package.json") {
		t.Errorf("Block output missing title: %q", out)
	}
	if !strings.Contains(out, "    {") || !strings.Contains(out, "    }") {
		t.Errorf("Block output lines not indented: %q", out)
	}

	out = captureOutput(func() { log.Block("empty", "  \n") })
	if out != "" {
		t.Errorf("Block with blank body should print nothing, got %q", out)
	}
}

func TestSection(t *testing.T) {
	out := captureOutput(func() { log.Section("My Section") })
	if !strings.Contains(out, "━") {
		t.Errorf("Section output missing box-draw separator: %q", out)
	}
	if !strings.Contains(out, "My Section") {
		t.Errorf("Section output missing title: %q", out)
	}
}
