package config

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/mattn/go-shellwords"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Color modes accepted by the color setting.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// ErrInvalid indicates a configuration value failed validation.
var ErrInvalid = errors.New("invalid configuration")

// TelemetryConfig holds configuration for the JSONL event stream.
type TelemetryConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// Config holds all runtime configuration for a nilla invocation.
// Values are populated from .nilla.toml, NILLA_* env vars, and CLI flags.
type Config struct {
	NixPath       string          `mapstructure:"nix_path" toml:"nix_path"`
	NixStorePath  string          `mapstructure:"nix_store_path" toml:"nix_store_path"`
	NixShellPath  string          `mapstructure:"nix_shell_path" toml:"nix_shell_path"`
	EntryFile     string          `mapstructure:"entry_file" toml:"entry_file"`
	System        string          `mapstructure:"system" toml:"system"`
	NixFlags      string          `mapstructure:"nix_flags" toml:"nix_flags"`
	LogLevel      string          `mapstructure:"log_level" toml:"log_level"`
	Color         string          `mapstructure:"color" toml:"color"`
	FullTrace     bool            `mapstructure:"full_trace" toml:"full_trace"`
	Verbose       bool            `mapstructure:"verbose" toml:"verbose"`
	MinNixVersion string          `mapstructure:"min_nix_version" toml:"min_nix_version"`
	Telemetry     TelemetryConfig `mapstructure:"telemetry" toml:"telemetry"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("nix_path", "nix")
	viper.SetDefault("nix_store_path", "nix-store")
	viper.SetDefault("nix_shell_path", "nix-shell")
	viper.SetDefault("entry_file", "nilla.nix")
	viper.SetDefault("system", "")
	viper.SetDefault("nix_flags", "")
	viper.SetDefault("log_level", "info")
	viper.SetDefault("color", ColorAuto)
	viper.SetDefault("full_trace", false)
	viper.SetDefault("verbose", false)
	viper.SetDefault("min_nix_version", "2.4.0")
	viper.SetDefault("telemetry.path", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that viper cannot type-check on its own.
func (c Config) Validate() error {
	switch c.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("%w: color must be one of auto, always, never (got %q)", ErrInvalid, c.Color)
	}
	if hclog.LevelFromString(c.LogLevel) == hclog.NoLevel {
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.LogLevel)
	}
	if c.EntryFile == "" {
		return fmt.Errorf("%w: entry_file must not be empty", ErrInvalid)
	}
	if _, err := c.ExtraNixArgs(); err != nil {
		return err
	}
	return nil
}

// ExtraNixArgs splits nix_flags with shell quoting rules. The result is
// appended to every nix eval and nix build invocation.
func (c Config) ExtraNixArgs() ([]string, error) {
	if c.NixFlags == "" {
		return nil, nil
	}
	args, err := shellwords.Parse(c.NixFlags)
	if err != nil {
		return nil, fmt.Errorf("%w: nix_flags: %v", ErrInvalid, err)
	}
	return args, nil
}

// Render returns the configuration encoded as TOML, in the same shape as
// .nilla.toml.
func (c Config) Render() (string, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	return string(data), nil
}
