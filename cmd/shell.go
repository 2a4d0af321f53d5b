package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/nilla-nix/nilla-cli/internal/build"
)

var shellCmd = &cobra.Command{
	Use:   "shell [project]",
	Short: "Enter a development shell",
	Long: `Enters a shell of the project with nix-shell. A bare --name selects
shells."<name>".result."<system>"; no name enters shells.default.
The shell's exit status becomes nilla's exit status.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runShell,
}

func init() {
	shellCmd.Flags().String("system", "", "system of the shell (default: current system)")
	shellCmd.Flags().StringP("name", "n", "", "shell to enter")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) (err error) {
	e, err := newEnv("shell")
	if err != nil {
		return err
	}
	defer func() { e.close(err) }()

	system, _ := cmd.Flags().GetString("system")
	name, _ := cmd.Flags().GetString("name")

	ctx, cancel := setupSignalContext(e.printer)
	target, err := e.orchestrator().Prepare(ctx, build.Request{
		Project:  projectArg(args),
		Name:     name,
		System:   e.system(system),
		Category: build.CategoryShells,
	})
	cancel()
	if err != nil {
		return err
	}

	e.printer.Step("Entering %s %s", target.Class.Kind, target.Class.Name)
	release := holdInterrupts()
	code, err := e.nix.Shell(context.Background(), target.File, target.Path.String(), target.System)
	release()
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}
