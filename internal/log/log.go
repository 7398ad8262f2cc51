// Package log provides colored terminal output for the release tooling.
// All output uses ANSI escape codes and goes to a single writer (stdout by
// default) so CI logs keep the decisions and command output in order.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
)

// ANSI escape codes for terminal colors.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[0;31m"
	colorGreen  = "\033[0;32m"
	colorYellow = "\033[1;33m"
	colorCyan   = "\033[0;36m"
	colorWhite  = "\033[1;37m"
	colorGray   = "\033[0;90m"
)

const sectionLine = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

// OsExit is the function called by Fatal to terminate the process.
// It is a package-level variable so tests can replace it without subprocess overhead.
var OsExit = os.Exit

var out io.Writer = os.Stdout

// SetOutput redirects all log output to w and returns the previous writer.
func SetOutput(w io.Writer) io.Writer {
	prev := out
	out = w
	return prev
}

// Info prints a white [INFO] message.
func Info(msg string) {
	fmt.Fprintf(out, "%s[INFO]%s %s\n", colorWhite, colorReset, msg)
}

// Success prints a green [SUCCESS] message.
func Success(msg string) {
	fmt.Fprintf(out, "%s[SUCCESS]%s %s\n", colorGreen, colorReset, msg)
}

// Warning prints a yellow [WARNING] message.
func Warning(msg string) {
	fmt.Fprintf(out, "%s[WARNING]%s %s\n", colorYellow, colorReset, msg)
}

// Error prints a red [ERROR] message.
func Error(msg string) {
	fmt.Fprintf(out, "%s[ERROR]%s %s\n", colorRed, colorReset, msg)
}

// Fatal prints a red [ERROR] message then exits with status 1.
func Fatal(msg string) {
	Error(msg)
	OsExit(1)
}

// Command echoes an external command line before it runs.
func Command(dir, name string, args ...string) {
	line := strings.TrimSpace(name + " " + strings.Join(args, " "))
	if dir != "" {
		fmt.Fprintf(out, "%s[EXEC]%s %s %s(in %s)%s\n", colorCyan, colorReset, line, colorGray, dir, colorReset)
		return
	}
	fmt.Fprintf(out, "%s[EXEC]%s %s\n", colorCyan, colorReset, line)
}

// Block prints a gray, indented multi-line dump under a title: generated
// manifests, diffs, captured command output. Empty bodies are skipped.
func Block(title, body string) {
	body = strings.TrimRight(body, "\n")
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(out, "%s[INFO]%s %s\n", colorWhite, colorReset, title)
	for _, line := range strings.Split(body, "\n") {
		fmt.Fprintf(out, "%s    %s%s\n", colorGray, line, colorReset)
	}
}

// Section prints a cyan box-draw separator with a title.
func Section(title string) {
	fmt.Fprintf(out, "\n%s%s%s\n", colorCyan, sectionLine, colorReset)
	fmt.Fprintf(out, "%s%s%s\n", colorCyan, title, colorReset)
	fmt.Fprintf(out, "%s%s%s\n\n", colorCyan, sectionLine, colorReset)
}
