// Package ui prints human-facing status lines to stderr.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/nilla-nix/nilla-cli/internal/ansi"
)

// Printer writes status, warning and error lines. Program output such as
// build paths goes to stdout elsewhere; everything here is commentary.
type Printer struct {
	w     io.Writer
	color bool
}

// New returns a printer writing to w.
func New(w io.Writer, color bool) *Printer {
	return &Printer{w: w, color: color}
}

func (p *Printer) paint(s string, codes ...string) string {
	if !p.color {
		return s
	}
	return ansi.Wrap(s, codes...)
}

// Info prints a plain status line.
func (p *Printer) Info(format string, args ...any) {
	fmt.Fprintln(p.w, p.paint(fmt.Sprintf(format, args...), ansi.Dim))
}

// Step announces the start of a pipeline step, e.g. "Building package hello".
func (p *Printer) Step(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint("◆", ansi.Cyan), fmt.Sprintf(format, args...))
}

// Success reports a finished step.
func (p *Printer) Success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint("✓", ansi.Green, ansi.Bold), fmt.Sprintf(format, args...))
}

// Warn reports a non-fatal problem.
func (p *Printer) Warn(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.paint("⚠", ansi.Yellow, ansi.Bold), fmt.Sprintf(format, args...))
}

// Error prints the single diagnostic line for a failed command.
func (p *Printer) Error(msg string) {
	fmt.Fprintf(p.w, "%s%s\n", p.paint("error: ", ansi.Red, ansi.Bold), msg)
}

// Detail prints multi-line diagnostic output such as an evaluation trace,
// indented under the preceding error line.
func (p *Printer) Detail(text string) {
	text = strings.TrimRight(text, "\n")
	if text == "" {
		return
	}
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintln(p.w, p.paint("  │ ", ansi.Dim)+line)
	}
}

// Check prints one line of a validation report.
func (p *Printer) Check(ok bool, name, detail string) {
	mark := p.paint("✓", ansi.Green, ansi.Bold)
	if !ok {
		mark = p.paint("✗", ansi.Red, ansi.Bold)
	}
	if detail != "" {
		detail = " " + p.paint(detail, ansi.Dim)
	}
	fmt.Fprintf(p.w, "%s %s%s\n", mark, name, detail)
}
