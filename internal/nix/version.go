package nix

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/hashicorp/go-version"
)

var versionPattern = regexp.MustCompile(`\d+(\.\d+)*`)

// Version runs "<tool> --version" and parses the reported version.
func (c *CLI) Version(ctx context.Context, tool string) (*version.Version, error) {
	out, err := c.output(ctx, ErrToolUnavailable, Command{Path: tool, Args: []string{"--version"}})
	if err != nil {
		return nil, err
	}
	return ParseVersion(string(out.Stdout))
}

// ParseVersion extracts the version from output such as "nix (Nix) 2.18.1"
// or "nix (Lix, like Nix) 2.91.1". Pre-release suffixes are ignored.
func ParseVersion(s string) (*version.Version, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: empty version output", ErrToolUnavailable)
	}
	raw := versionPattern.FindString(fields[len(fields)-1])
	if raw == "" {
		return nil, fmt.Errorf("%w: no version number in %q", ErrToolUnavailable, s)
	}
	return version.NewVersion(raw)
}

// Tools returns the binaries this CLI invokes.
func (c *CLI) Tools() []string {
	return []string{c.nix(), c.nixStore(), c.nixShell()}
}
