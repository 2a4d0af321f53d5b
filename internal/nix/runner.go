package nix

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/apparentlymart/go-shquot/shquot"
	"github.com/hashicorp/go-hclog"

	"github.com/nilla-nix/nilla-cli/internal/logging"
	"github.com/nilla-nix/nilla-cli/internal/telemetry"
)

// Command is one external invocation.
type Command struct {
	Path string
	Args []string
	// ShowStderr streams the child's stderr to the terminal while still
	// capturing it for error reporting.
	ShowStderr bool
}

// Output is the captured result of a finished command.
type Output struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Runner executes external commands. A nonzero exit is reported through
// Output.ExitCode; a non-nil error means the command could not be run.
type Runner interface {
	// Output runs cmd to completion with captured streams.
	Output(ctx context.Context, cmd Command) (Output, error)
	// Attach runs cmd with the terminal's streams and returns its exit code.
	Attach(ctx context.Context, cmd Command) (int, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	Stdin     io.Reader
	Stdout    io.Writer
	Stderr    io.Writer
	Logger    hclog.Logger
	Telemetry *telemetry.Emitter
}

// NewExecRunner returns a runner bound to the process's standard streams.
func NewExecRunner(logger hclog.Logger, events *telemetry.Emitter) *ExecRunner {
	return &ExecRunner{
		Stdin:     os.Stdin,
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Logger:    logging.OrNull(logger),
		Telemetry: events,
	}
}

// Output implements Runner.
func (r *ExecRunner) Output(ctx context.Context, c Command) (Output, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if c.ShowStderr && r.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, r.Stderr)
	}

	code, err := r.run(ctx, c, cmd)
	return Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes(), ExitCode: code}, err
}

// Attach implements Runner.
func (r *ExecRunner) Attach(ctx context.Context, c Command) (int, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Stdin = r.Stdin
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return r.run(ctx, c, cmd)
}

func (r *ExecRunner) run(ctx context.Context, c Command, cmd *exec.Cmd) (int, error) {
	log := logging.OrNull(r.Logger)
	log.Debug("running", "cmd", shquot.POSIXShell(append([]string{c.Path}, c.Args...)))
	r.Telemetry.Record(telemetry.KindInvocationStart, "", telemetry.Invocation{Tool: c.Path, Args: c.Args})

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	code := 0
	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		return -1, ctx.Err()
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	case err != nil:
		return -1, err
	}

	log.Trace("finished", "tool", c.Path, "exit", code, "elapsed", elapsed)
	r.Telemetry.Record(telemetry.KindInvocationDone, "", telemetry.Invocation{
		Tool:       c.Path,
		Args:       c.Args,
		ExitCode:   code,
		DurationMs: elapsed.Milliseconds(),
	})
	return code, nil
}
