package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nilla-nix/nilla-cli/internal/ansi"
	"github.com/nilla-nix/nilla-cli/internal/explain"
	"github.com/nilla-nix/nilla-cli/internal/show"
)

var showCmd = &cobra.Command{
	Use:   "show [project]",
	Short: "Show documentation for project attributes",
	Long: `Renders the documentation a project publishes under its explain attribute.
Without --name, every documented top-level attribute is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().StringP("name", "n", "", "top-level attribute to show")
	showCmd.Flags().Bool("outline", false, "print only the tree of entry names")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) (err error) {
	e, err := newEnv("show")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	ctx, cancel := setupSignalContext(e.printer)
	defer cancel()

	name, _ := cmd.Flags().GetString("name")
	outline, _ := cmd.Flags().GetBool("outline")
	ref := projectArg(args)

	src, err := e.source(ctx, ref)
	if err != nil {
		return err
	}

	shower := &show.Shower{
		Eval:      e.nix,
		Renderer:  explain.NewRenderer(ansi.Enabled(e.cfg.Color, os.Stdout)),
		Outline:   outline,
		Logger:    e.log.Named("show"),
		Telemetry: e.events,
	}
	out := cmd.OutOrStdout()

	if name == "" {
		e.printer.Info("Showing information about %s", ref)
		return shower.All(ctx, out, src)
	}

	found, err := shower.One(ctx, out, src, name)
	if err != nil {
		return err
	}
	if !found {
		e.printer.Warn("No information available for %s", name)
	}
	return nil
}
