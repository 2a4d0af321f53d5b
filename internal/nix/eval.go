package nix

import (
	"context"
	"fmt"
	"strings"

	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/nilla-nix/nilla-cli/internal/expr"
)

// EvalOpts controls a single nix eval invocation.
type EvalOpts struct {
	JSON   bool // pass --json and decode stdout
	Impure bool // pass --impure
}

// Result is the outcome of an evaluation: either a structured value decoded
// from JSON or the raw trimmed text nix printed.
type Result struct {
	value      cty.Value
	text       string
	structured bool
}

// Structured wraps a decoded value.
func Structured(v cty.Value) Result {
	return Result{value: v, structured: true}
}

// Raw wraps unparsed output.
func Raw(s string) Result {
	return Result{text: s}
}

// Value returns the structured value, if this is a structured result.
func (r Result) Value() (cty.Value, bool) {
	if !r.structured {
		return cty.NilVal, false
	}
	return r.value, true
}

// Text returns the raw output, if this is a raw result.
func (r Result) Text() (string, bool) {
	if r.structured {
		return "", false
	}
	return r.text, true
}

// AsBool returns the result as a boolean or fails with ErrTypeMismatch.
func (r Result) AsBool() (bool, error) {
	v, ok := r.Value()
	if !ok || v.IsNull() || !v.IsKnown() || v.Type() != cty.Bool {
		return false, fmt.Errorf("%w: expected a boolean, got %s", ErrTypeMismatch, r.describe())
	}
	return v.True(), nil
}

// AsString returns the result as a string or fails with ErrTypeMismatch.
func (r Result) AsString() (string, error) {
	v, ok := r.Value()
	if !ok || v.IsNull() || !v.IsKnown() || v.Type() != cty.String {
		return "", fmt.Errorf("%w: expected a string, got %s", ErrTypeMismatch, r.describe())
	}
	return v.AsString(), nil
}

func (r Result) describe() string {
	if !r.structured {
		return "raw text"
	}
	if r.value.IsNull() {
		return "null"
	}
	return r.value.Type().FriendlyName()
}

// Evaluate runs nix eval on e. Structured results are decoded from JSON into
// cty values; raw results are the trimmed output text.
func (c *CLI) Evaluate(ctx context.Context, e expr.Expr, opts EvalOpts) (Result, error) {
	args := []string{"eval", "--show-trace"}
	if opts.JSON {
		args = append(args, "--json")
	}
	if opts.Impure {
		args = append(args, "--impure")
	}
	args = append(args, c.ExtraArgs...)
	text := expr.Render(e)
	args = append(args, "--expr", text)

	c.log().Trace("evaluating", "expr", text)
	out, err := c.output(ctx, ErrEvaluation, Command{Path: c.nix(), Args: args})
	if err != nil {
		return Result{}, err
	}

	stdout := strings.TrimSpace(string(out.Stdout))
	if !opts.JSON {
		return Raw(stdout), nil
	}
	v, err := DecodeJSON([]byte(stdout))
	if err != nil {
		return Result{}, fmt.Errorf("%w: decoding nix eval output: %v", ErrEvaluation, err)
	}
	return Structured(v), nil
}

// System evaluates builtins.currentSystem.
func (c *CLI) System(ctx context.Context) (string, error) {
	c.log().Trace("getting system platform")
	res, err := c.Evaluate(ctx, expr.CurrentSystem(), EvalOpts{JSON: true, Impure: true})
	if err != nil {
		return "", fmt.Errorf("getting current system: %w", err)
	}
	system, err := res.AsString()
	if err != nil {
		return "", fmt.Errorf("getting current system: %w", err)
	}
	c.log().Debug("detected system", "system", system)
	return system, nil
}

// DecodeJSON parses a JSON document into a cty value, inferring its type.
func DecodeJSON(data []byte) (cty.Value, error) {
	ty, err := ctyjson.ImpliedType(data)
	if err != nil {
		return cty.NilVal, err
	}
	return ctyjson.Unmarshal(data, ty)
}
