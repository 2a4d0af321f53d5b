package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nilla-nix/nilla-cli/internal/build"
	"github.com/nilla-nix/nilla-cli/internal/telemetry"
	"github.com/nilla-nix/nilla-cli/internal/watch"
)

var buildCmd = &cobra.Command{
	Use:   "build [project]",
	Short: "Build a project attribute",
	Long: `Builds an attribute of the project. A bare --name selects
packages."<name>".result."<system>"; a dotted name is used as-is; no name
builds packages.default.

With --watch, the project is rebuilt whenever a file in it changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().String("system", "", "system to build for (default: current system)")
	buildCmd.Flags().StringP("name", "n", "", "attribute to build")
	buildCmd.Flags().Bool("no-link", false, "do not create a result symlink")
	buildCmd.Flags().Bool("print-out-paths", false, "print the output paths on stdout")
	buildCmd.Flags().BoolP("watch", "w", false, "rebuild when project files change")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) (err error) {
	e, err := newEnv("build")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	ctx, cancel := setupSignalContext(e.printer)
	defer cancel()

	system, _ := cmd.Flags().GetString("system")
	name, _ := cmd.Flags().GetString("name")
	noLink, _ := cmd.Flags().GetBool("no-link")
	printPaths, _ := cmd.Flags().GetBool("print-out-paths")
	watching, _ := cmd.Flags().GetBool("watch")

	req := build.Request{
		Project:  projectArg(args),
		Name:     name,
		System:   e.system(system),
		Category: build.CategoryPackages,
	}
	opts := build.Options{Link: !noLink, Report: true}

	var out io.Writer
	if printPaths {
		out = cmd.OutOrStdout()
	}

	err = buildOnce(ctx, e, req, opts, out)
	if !watching {
		return err
	}
	if err != nil {
		reportError(e.printer, e.cfg.Verbose || e.cfg.FullTrace, err)
	}
	return watchAndRebuild(ctx, e, req, opts, out)
}

// buildOnce runs the full pipeline. Output paths go to out when it is set.
func buildOnce(ctx context.Context, e *env, req build.Request, opts build.Options, out io.Writer) error {
	o := e.orchestrator()
	target, err := o.Prepare(ctx, req)
	if err != nil {
		return err
	}

	e.printer.Step("Building %s %s", target.Class.Kind, target.Class.Name)
	paths, err := o.Build(ctx, target, opts)
	if err != nil {
		return err
	}
	if out != nil && len(paths) > 0 {
		fmt.Fprintln(out, strings.Join(paths, "\n"))
	}
	e.printer.Success("Built %s", target.Class.Name)
	return nil
}

// watchAndRebuild reruns buildOnce after every batch of changes until ctx
// ends. Failed rebuilds are reported and watching continues.
func watchAndRebuild(ctx context.Context, e *env, req build.Request, opts build.Options, out io.Writer) error {
	dir, err := e.resolver().Locate(req.Project)
	if err != nil {
		return err
	}

	w, err := watch.NewWatcher(dir, e.log.Named("watch"))
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		w.Stop()
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	defer w.Stop()

	e.printer.Info("watching %s for changes", dir)
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-w.Changes:
			if !ok {
				return nil
			}
			e.events.Record(telemetry.KindWatchRebuild, e.command, map[string]any{"files": change.Files})
			e.printer.Info("%d file(s) changed, rebuilding", len(change.Files))
			if err := buildOnce(ctx, e, req, opts, out); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				reportError(e.printer, e.cfg.Verbose || e.cfg.FullTrace, err)
			}
		}
	}
}
