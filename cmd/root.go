package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nilla-nix/nilla-cli/internal/ansi"
	"github.com/nilla-nix/nilla-cli/internal/nix"
	"github.com/nilla-nix/nilla-cli/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "nilla",
	Short: "Build and explore Nilla projects",
	Long: `Nilla builds, enters and documents the attributes of projects that declare a
nilla.nix entry file, using the nix tool family underneath.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
}

// exitError carries a child process's exit status through cobra without a
// diagnostic line.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command and exits nonzero on failure.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	reportError(stderrPrinter(), viper.GetBool("verbose") || viper.GetBool("full_trace"), err)
	os.Exit(1)
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default .nilla.toml)")
	flags.BoolP("verbose", "v", false, "verbose output, including full evaluation traces")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error, off")
	flags.String("color", "", "color output: auto, always, never")
	flags.Bool("full-trace", false, "print the full nix trace when a command fails")

	_ = viper.BindPFlag("verbose", flags.Lookup("verbose"))
	_ = viper.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("color", flags.Lookup("color"))
	_ = viper.BindPFlag("full_trace", flags.Lookup("full-trace"))
}

// initConfig loads .nilla.toml before any command runs.
func initConfig(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	dirs := []string{"."}
	if home, err := homedir.Dir(); err == nil {
		dirs = append(dirs, home)
	}
	return readConfig(viper.GetViper(), cfgFile, dirs)
}

// readConfig points v at cfgFile, or at .nilla.toml in dirs, and reads it.
// Only a missing default file is tolerated; an explicit --config that
// cannot be read or any parse error is returned.
func readConfig(v *viper.Viper, cfgFile string, dirs []string) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(".nilla")
		v.SetConfigType("toml")
		for _, dir := range dirs {
			v.AddConfigPath(dir)
		}
	}

	v.SetEnvPrefix("NILLA")
	v.AutomaticEnv()

	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || (cfgFile == "" && errors.As(err, &notFound)) {
		return nil
	}
	return fmt.Errorf("reading config: %w", err)
}

// reportError prints the one diagnostic line for err, plus the captured nix
// output when detail is requested.
func reportError(p *ui.Printer, detail bool, err error) {
	p.Error(err.Error())
	var cmdErr *nix.CommandError
	if detail && errors.As(err, &cmdErr) {
		p.Detail(cmdErr.Stderr)
	}
}

// stderrPrinter builds a printer honoring the color setting without loading
// the full configuration.
func stderrPrinter() *ui.Printer {
	return ui.New(os.Stderr, ansi.Enabled(viper.GetString("color"), os.Stderr))
}

// projectArg returns the optional positional project reference.
func projectArg(args []string) string {
	if len(args) == 0 {
		return "."
	}
	return args[0]
}
