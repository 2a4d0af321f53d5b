// Package logging builds the leveled hclog logger shared by every nilla
// component. Components accept an hclog.Logger and fall back to a null
// logger, so nothing in internal/ depends on global logging state.
package logging

import (
	"io"

	"github.com/hashicorp/go-hclog"
)

// Options controls logger construction.
type Options struct {
	Level  string // trace, debug, info, warn, error, off
	Color  bool
	Output io.Writer
}

// New returns the root logger for one nilla invocation. Unknown levels fall
// back to info.
func New(opts Options) hclog.Logger {
	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Info
	}

	color := hclog.ColorOff
	if opts.Color {
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            "nilla",
		Level:           level,
		Output:          opts.Output,
		Color:           color,
		DisableTime:     true,
		IncludeLocation: level == hclog.Trace,
	})
}

// OrNull returns l, or a logger that discards everything when l is nil.
func OrNull(l hclog.Logger) hclog.Logger {
	if l == nil {
		return hclog.NewNullLogger()
	}
	return l
}
