// Package nix wraps the nix tool family: nix eval and nix build for
// evaluation and builds, nix hash and nix-store for store entries, and
// nix-shell for interactive environments. Every invocation goes through a
// Runner so callers and tests can observe or replace process execution.
package nix

import (
	"context"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/nilla-nix/nilla-cli/internal/logging"
)

// CLI invokes the nix binaries. The zero value uses the binaries on PATH
// and a null logger, but Runner must be set.
type CLI struct {
	NixPath      string
	NixStorePath string
	NixShellPath string
	// ExtraArgs are appended to every nix eval and nix build invocation.
	ExtraArgs []string
	Runner    Runner
	Logger    hclog.Logger
}

func (c *CLI) nix() string {
	if c.NixPath == "" {
		return "nix"
	}
	return c.NixPath
}

func (c *CLI) nixStore() string {
	if c.NixStorePath == "" {
		return "nix-store"
	}
	return c.NixStorePath
}

func (c *CLI) nixShell() string {
	if c.NixShellPath == "" {
		return "nix-shell"
	}
	return c.NixShellPath
}

func (c *CLI) log() hclog.Logger {
	return logging.OrNull(c.Logger)
}

// output runs a captured command and converts start failures and nonzero
// exits into *CommandError values of the given kind.
func (c *CLI) output(ctx context.Context, kind error, cmd Command) (Output, error) {
	out, err := c.Runner.Output(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		return out, &CommandError{Kind: kind, Tool: cmd.Path, Args: cmd.Args, ExitCode: -1, Err: err}
	}
	if out.ExitCode != 0 {
		return out, &CommandError{
			Kind:     kind,
			Tool:     cmd.Path,
			Args:     cmd.Args,
			ExitCode: out.ExitCode,
			Stderr:   string(out.Stderr),
		}
	}
	return out, nil
}

// lines splits output into trimmed, non-empty lines.
func lines(b []byte) []string {
	var out []string
	for _, l := range strings.Split(string(b), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
