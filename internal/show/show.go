// Package show prints the explain documentation of project attributes.
package show

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/zclconf/go-cty/cty"

	"github.com/nilla-nix/nilla-cli/internal/explain"
	"github.com/nilla-nix/nilla-cli/internal/expr"
	"github.com/nilla-nix/nilla-cli/internal/logging"
	"github.com/nilla-nix/nilla-cli/internal/nix"
	"github.com/nilla-nix/nilla-cli/internal/telemetry"
)

// Evaluator evaluates Nix expressions.
type Evaluator interface {
	Evaluate(ctx context.Context, e expr.Expr, opts nix.EvalOpts) (nix.Result, error)
}

// Shower renders explain entries of a project.
type Shower struct {
	Eval     Evaluator
	Renderer *explain.Renderer
	// Outline prints only the tree of entry names.
	Outline   bool
	Logger    hclog.Logger
	Telemetry *telemetry.Emitter
}

var jsonImpure = nix.EvalOpts{JSON: true, Impure: true}

// One writes the explanation of a single top-level attribute. It reports
// false, without error, when the project documents nothing under name.
func (s *Shower) One(ctx context.Context, w io.Writer, src expr.Source, name string) (bool, error) {
	res, err := s.Eval.Evaluate(ctx, src.HasExplanation(name), jsonImpure)
	if err != nil {
		return false, fmt.Errorf("looking up explanation for %s: %w", name, err)
	}
	has, err := res.AsBool()
	if err != nil {
		return false, fmt.Errorf("looking up explanation for %s: %w", name, err)
	}
	if !has {
		return false, nil
	}
	return s.show(ctx, w, src, name)
}

// All writes the explanation of every top-level attribute except the
// reserved ones. Attributes without an explanation are skipped. A failing
// attribute does not stop the others; all failures are returned together.
func (s *Shower) All(ctx context.Context, w io.Writer, src expr.Source) error {
	names, err := s.names(ctx, src)
	if err != nil {
		return err
	}
	logging.OrNull(s.Logger).Debug("project attributes", "names", names)

	var result *multierror.Error
	for _, name := range names {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		shown, err := s.show(ctx, w, src, name)
		if err != nil {
			logging.OrNull(s.Logger).Debug("attribute failed", "name", name, "error", err)
			result = multierror.Append(result, err)
			continue
		}
		if !shown {
			s.Telemetry.Record(telemetry.KindAttributeSkipped, "show", map[string]string{"name": name})
		}
	}
	if result != nil {
		result.ErrorFormat = summarize
	}
	return result.ErrorOrNil()
}

// summarize renders aggregated failures on a single line.
func summarize(errs []error) string {
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d attribute(s) failed: %s", len(errs), strings.Join(msgs, "; "))
}

func (s *Shower) names(ctx context.Context, src expr.Source) ([]string, error) {
	res, err := s.Eval.Evaluate(ctx, src.AttrNames(), jsonImpure)
	if err != nil {
		return nil, fmt.Errorf("listing project attributes: %w", err)
	}
	v, ok := res.Value()
	if !ok || v.IsNull() || !v.CanIterateElements() {
		return nil, fmt.Errorf("listing project attributes: %w: expected a list", nix.ErrTypeMismatch)
	}

	var names []string
	for _, item := range v.AsValueSlice() {
		if item.IsNull() || item.Type() != cty.String || item.AsString() == "" {
			continue
		}
		names = append(names, item.AsString())
	}
	return names, nil
}

// show renders one attribute's explanation into a buffer and copies it to w
// only once rendering succeeded. A null explanation reports false.
func (s *Shower) show(ctx context.Context, w io.Writer, src expr.Source, name string) (bool, error) {
	res, err := s.Eval.Evaluate(ctx, src.Explanation(name), jsonImpure)
	if err != nil {
		return false, fmt.Errorf("getting explanation for %s: %w", name, err)
	}
	v, ok := res.Value()
	if !ok {
		return false, fmt.Errorf("getting explanation for %s: %w: expected structured output", name, nix.ErrTypeMismatch)
	}
	if v.IsNull() {
		return false, nil
	}

	entry, err := explain.Decode(v)
	if err != nil {
		return false, fmt.Errorf("parsing explanation for %s: %w", name, err)
	}

	var buf bytes.Buffer
	if s.Outline {
		err = explain.Outline(&buf, entry)
	} else {
		r := s.Renderer
		if r == nil {
			r = explain.NewRenderer(false)
		}
		err = r.Render(&buf, entry)
	}
	if err != nil {
		return false, fmt.Errorf("rendering %s: %w", name, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return false, fmt.Errorf("writing %s: %w", name, err)
	}
	return true, nil
}
