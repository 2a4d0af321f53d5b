package nix

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors classifying failures of the nix tool family.
var (
	// ErrEvaluation indicates nix eval exited nonzero or printed output that
	// could not be parsed as requested.
	ErrEvaluation = errors.New("evaluation failed")
	// ErrTypeMismatch indicates an evaluated value had an unexpected shape.
	ErrTypeMismatch = errors.New("unexpected value type")
	// ErrStoreOperation indicates hashing, registration, or realisation failed.
	ErrStoreOperation = errors.New("store operation failed")
	// ErrBuild indicates nix build exited nonzero.
	ErrBuild = errors.New("build failed")
	// ErrShell indicates nix-shell could not be started.
	ErrShell = errors.New("shell launch failed")
	// ErrLaunch indicates a program could not be started.
	ErrLaunch = errors.New("launch failed")
	// ErrToolUnavailable indicates a nix binary could not be run or reported
	// an unusable version.
	ErrToolUnavailable = errors.New("tool unavailable")
)

// CommandError records a failed external invocation. It unwraps to its Kind
// sentinel and, when the process could not be started at all, to the
// underlying start error.
type CommandError struct {
	Kind     error
	Tool     string
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

// Error returns a one-line summary. The full diagnostic output stays
// available in Stderr.
func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s", e.Kind, e.Tool, subcommand(e.Args))
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
		return b.String()
	}
	fmt.Fprintf(&b, " exited with status %d", e.ExitCode)
	if s := Summary(e.Stderr); s != "" {
		b.WriteString(": ")
		b.WriteString(s)
	}
	return b.String()
}

// Unwrap returns the kind sentinel and, if set, the start error.
func (e *CommandError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// Summary picks the most specific line of nix diagnostic output: the last
// line carrying "error:", or else the last non-empty line.
func Summary(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if idx := strings.Index(line, "error:"); idx >= 0 {
			if msg := strings.TrimSpace(line[idx+len("error:"):]); msg != "" {
				return msg
			}
		}
	}
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}

// subcommand names the invocation for messages without echoing whole
// expressions, e.g. "eval" or "--add-fixed".
func subcommand(args []string) string {
	for _, a := range args {
		if a == "--recursive" {
			continue
		}
		return a
	}
	return ""
}
