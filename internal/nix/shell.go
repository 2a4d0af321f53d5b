package nix

import (
	"context"
	"fmt"
)

// Shell enters nix-shell for attr of file with the terminal's streams attached
// and returns the shell's exit code once it ends.
func (c *CLI) Shell(ctx context.Context, file, attr, system string) (int, error) {
	args := []string{file}
	if system != "" {
		args = append(args, "--system", system)
	}
	args = append(args, "-A", attr)
	return c.attach(ctx, ErrShell, Command{Path: c.nixShell(), Args: args})
}

// Exec runs program with the terminal's streams attached and returns its
// exit code.
func (c *CLI) Exec(ctx context.Context, program string, args ...string) (int, error) {
	return c.attach(ctx, ErrLaunch, Command{Path: program, Args: args})
}

func (c *CLI) attach(ctx context.Context, kind error, cmd Command) (int, error) {
	code, err := c.Runner.Attach(ctx, cmd)
	if err != nil {
		if ctx.Err() != nil {
			return code, ctx.Err()
		}
		return code, fmt.Errorf("launching %s: %w", cmd.Path,
			&CommandError{Kind: kind, Tool: cmd.Path, Args: cmd.Args, ExitCode: -1, Err: err})
	}
	return code, nil
}
