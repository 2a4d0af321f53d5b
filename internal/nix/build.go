package nix

import (
	"context"
	"fmt"
)

// BuildOpts controls a nix build invocation.
type BuildOpts struct {
	// Link creates the ./result symlink. When false --no-link is passed.
	Link bool
	// Report passes --print-out-paths so Build returns the output paths.
	Report bool
	// System overrides the platform to build for.
	System string
}

// buildArgs constructs the nix build argument list.
func buildArgs(file, attr string, opts BuildOpts, extra []string) []string {
	args := []string{"build"}
	if !opts.Link {
		args = append(args, "--no-link")
	}
	if opts.Report {
		args = append(args, "--print-out-paths")
	}
	args = append(args, extra...)
	args = append(args, "-f", file)
	if opts.System != "" {
		args = append(args, "--system", opts.System)
	}
	return append(args, attr)
}

// Build builds attr from file. Build progress is streamed to the terminal.
// When opts.Report is set the output paths are returned, one per entry.
func (c *CLI) Build(ctx context.Context, file, attr string, opts BuildOpts) ([]string, error) {
	out, err := c.output(ctx, ErrBuild, Command{
		Path:       c.nix(),
		Args:       buildArgs(file, attr, opts, c.ExtraArgs),
		ShowStderr: true,
	})
	if err != nil {
		return nil, fmt.Errorf("building %s: %w", attr, err)
	}
	if !opts.Report {
		return nil, nil
	}
	return lines(out.Stdout), nil
}
