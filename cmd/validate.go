package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"

	"github.com/nilla-nix/nilla-cli/internal/nix"
	"github.com/nilla-nix/nilla-cli/internal/ui"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check that the nix tools are available and recent enough",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		e, err := newEnv("validate")
		if err != nil {
			return err
		}
		defer func() { e.close(err) }()

		ctx, cancel := setupSignalContext(e.printer)
		defer cancel()

		return checkTools(ctx, e.nix, e.printer, e.cfg.MinNixVersion)
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// checkTools reports every binary's version and fails if any is missing or
// older than minVersion.
func checkTools(ctx context.Context, cli *nix.CLI, p *ui.Printer, minVersion string) error {
	minimum, err := version.NewVersion(minVersion)
	if err != nil {
		return fmt.Errorf("invalid min_nix_version %q: %w", minVersion, err)
	}

	var result *multierror.Error
	for _, tool := range cli.Tools() {
		v, err := cli.Version(ctx, tool)
		switch {
		case err != nil:
			p.Check(false, tool, err.Error())
			result = multierror.Append(result, fmt.Errorf("%s: %w", tool, err))
		case v.LessThan(minimum):
			p.Check(false, tool, fmt.Sprintf("%s is older than %s", v, minimum))
			result = multierror.Append(result, fmt.Errorf("%w: %s %s is older than %s", nix.ErrToolUnavailable, tool, v, minimum))
		default:
			p.Check(true, tool, v.String())
		}
	}
	if result != nil {
		total := len(cli.Tools())
		result.ErrorFormat = func(errs []error) string {
			msgs := make([]string, len(errs))
			for i, err := range errs {
				msgs[i] = err.Error()
			}
			return fmt.Sprintf("%d of %d tool checks failed: %s", len(errs), total, strings.Join(msgs, "; "))
		}
	}
	return result.ErrorOrNil()
}
