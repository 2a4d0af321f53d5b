package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/nilla-nix/nilla-cli/internal/ansi"
	"github.com/nilla-nix/nilla-cli/internal/attr"
	"github.com/nilla-nix/nilla-cli/internal/build"
	"github.com/nilla-nix/nilla-cli/internal/config"
	"github.com/nilla-nix/nilla-cli/internal/expr"
	"github.com/nilla-nix/nilla-cli/internal/logging"
	"github.com/nilla-nix/nilla-cli/internal/nix"
	"github.com/nilla-nix/nilla-cli/internal/project"
	"github.com/nilla-nix/nilla-cli/internal/telemetry"
	"github.com/nilla-nix/nilla-cli/internal/ui"
)

// env is everything a command needs for one invocation.
type env struct {
	command string
	cfg     config.Config
	printer *ui.Printer
	log     hclog.Logger
	events  *telemetry.Emitter
	nix     *nix.CLI
	fs      afero.Fs
}

func newEnv(command string) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	color := ansi.Enabled(cfg.Color, os.Stderr)

	level := cfg.LogLevel
	if cfg.Verbose && (level == "" || level == "info") {
		level = "debug"
	}
	log := logging.New(logging.Options{Level: level, Color: color, Output: os.Stderr})

	events, err := telemetry.NewEmitter(cfg.Telemetry.Path)
	if err != nil {
		return nil, err
	}
	if events != nil {
		log = log.With("run", events.RunID())
	}

	extra, err := cfg.ExtraNixArgs()
	if err != nil {
		return nil, err
	}

	e := &env{
		command: command,
		cfg:     cfg,
		printer: ui.New(os.Stderr, color),
		log:     log,
		events:  events,
		fs:      afero.NewOsFs(),
		nix: &nix.CLI{
			NixPath:      cfg.NixPath,
			NixStorePath: cfg.NixStorePath,
			NixShellPath: cfg.NixShellPath,
			ExtraArgs:    extra,
			Runner:       nix.NewExecRunner(log.Named("exec"), events),
			Logger:       log.Named("nix"),
		},
	}
	events.Record(telemetry.KindCommandStart, command, nil)
	return e, nil
}

// close records the outcome and flushes telemetry.
func (e *env) close(err error) {
	e.events.Record(telemetry.KindCommandDone, e.command, map[string]bool{"ok": err == nil})
	if cerr := e.events.Close(); cerr != nil {
		e.log.Warn("closing telemetry", "error", cerr)
	}
}

func (e *env) resolver() *project.Resolver {
	return &project.Resolver{
		FS:        e.fs,
		Store:     e.nix,
		EntryFile: e.cfg.EntryFile,
		Logger:    e.log.Named("project"),
	}
}

func (e *env) attrs() *attr.Resolver {
	return &attr.Resolver{Eval: e.nix, Logger: e.log.Named("attr")}
}

func (e *env) orchestrator() *build.Orchestrator {
	return &build.Orchestrator{
		FS:       e.fs,
		Projects: e.resolver(),
		Systems:  e.nix,
		Attrs:    e.attrs(),
		Builder:  e.nix,
		Logger:   e.log.Named("build"),
	}
}

// source resolves a project and checks its entry file, returning the pinned
// source evaluation imports from.
func (e *env) source(ctx context.Context, ref string) (expr.Source, error) {
	proj, err := e.resolver().Resolve(ctx, ref)
	if err != nil {
		return expr.Source{}, err
	}
	if _, err := proj.EntryPath(e.fs); err != nil {
		return expr.Source{}, err
	}
	return expr.Source{StorePath: proj.Entry.Path, Hash: proj.Entry.Hash, File: proj.File}, nil
}

// system returns the --system flag value, or the configured default.
func (e *env) system(flag string) string {
	if flag != "" {
		return flag
	}
	return e.cfg.System
}

// setupSignalContext returns a context that is canceled on SIGINT or SIGTERM.
func setupSignalContext(printer *ui.Printer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			printer.Info("\nshutting down...")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigCh)
		cancel()
	}
}

// holdInterrupts keeps SIGINT and SIGQUIT from terminating nilla while an
// attached child owns the terminal; the child still receives them from the
// terminal directly. The returned func restores default handling.
func holdInterrupts() func() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGQUIT)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigCh:
			case <-done:
				return
			}
		}
	}()
	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}
