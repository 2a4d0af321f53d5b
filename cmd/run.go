package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nilla-nix/nilla-cli/internal/build"
	"github.com/nilla-nix/nilla-cli/internal/nix"
)

var runCmd = &cobra.Command{
	Use:   "run [project] [-- args...]",
	Short: "Build a package and run its main program",
	Long: `Builds a package without a result link and runs its main program
(meta.mainProgram, else pname, else the package name) with the given
arguments. The program's exit status becomes nilla's exit status.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("system", "", "system to build for (default: current system)")
	runCmd.Flags().StringP("name", "n", "", "package to run")
	rootCmd.AddCommand(runCmd)
}

// splitRunArgs separates the optional project from the program arguments
// that follow "--".
func splitRunArgs(args []string, dash int) (string, []string, error) {
	positional, rest := args, []string(nil)
	if dash >= 0 {
		positional, rest = args[:dash], args[dash:]
	}
	if len(positional) > 1 {
		return "", nil, fmt.Errorf("accepts at most 1 project argument, received %d (pass program arguments after --)", len(positional))
	}
	return projectArg(positional), rest, nil
}

func runRun(cmd *cobra.Command, args []string) (err error) {
	ref, programArgs, err := splitRunArgs(args, cmd.ArgsLenAtDash())
	if err != nil {
		return err
	}

	e, err := newEnv("run")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	system, _ := cmd.Flags().GetString("system")
	name, _ := cmd.Flags().GetString("name")

	ctx, cancel := setupSignalContext(e.printer)
	program, err := prepareProgram(ctx, e, build.Request{
		Project:  ref,
		Name:     name,
		System:   e.system(system),
		Category: build.CategoryPackages,
	})
	cancel()
	if err != nil {
		return err
	}

	release := holdInterrupts()
	code, err := e.nix.Exec(context.Background(), program, programArgs...)
	release()
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

// prepareProgram builds the package and returns the path of its main program.
func prepareProgram(ctx context.Context, e *env, req build.Request) (string, error) {
	o := e.orchestrator()
	target, err := o.Prepare(ctx, req)
	if err != nil {
		return "", err
	}

	e.printer.Step("Building %s %s", target.Class.Kind, target.Class.Name)
	paths, err := o.Build(ctx, target, build.Options{Link: false, Report: true})
	if err != nil {
		return "", err
	}
	if len(paths) == 0 {
		return "", fmt.Errorf("%w: %s reported no output paths", nix.ErrBuild, target.Path)
	}

	outs, err := e.nix.Realise(ctx, paths[0])
	if err != nil {
		return "", err
	}
	if len(outs) == 0 {
		return "", fmt.Errorf("%w: %s realised to nothing", nix.ErrStoreOperation, paths[0])
	}

	fallback := req.Name
	if fallback == "" {
		fallback = "default"
	}
	prog, err := e.attrs().MainProgram(ctx, target.Source, target.Path, fallback)
	if err != nil {
		return "", err
	}
	return filepath.Join(outs[0], "bin", prog), nil
}
