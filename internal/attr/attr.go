// Package attr resolves attribute paths inside a project: whether they exist,
// what kind of output they name, and which program a package runs.
package attr

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/nilla-nix/nilla-cli/internal/expr"
	"github.com/nilla-nix/nilla-cli/internal/logging"
	"github.com/nilla-nix/nilla-cli/internal/nix"
)

// ErrNotFound indicates the attribute path is absent from the project.
var ErrNotFound = errors.New("attribute not found")

// Evaluator evaluates Nix expressions.
type Evaluator interface {
	Evaluate(ctx context.Context, e expr.Expr, opts nix.EvalOpts) (nix.Result, error)
}

// Kind is the category of a project attribute, decided by its first segment.
type Kind int

// Attribute kinds.
const (
	KindUnknown Kind = iota
	KindSystem
	KindShell
	KindPackage
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown attribute",
	KindSystem:  "system",
	KindShell:   "shell",
	KindPackage: "package",
}

var categories = map[string]Kind{
	"systems":  KindSystem,
	"shells":   KindShell,
	"packages": KindPackage,
}

// String returns the human-readable kind, e.g. "package".
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// KindOf classifies path by its first segment.
func KindOf(path expr.AttrPath) Kind {
	return categories[path.Head()]
}

// Classification pairs an attribute's kind with its display name.
type Classification struct {
	Kind Kind
	Name string
}

// Resolver answers questions about attributes of a pinned project source.
type Resolver struct {
	Eval   Evaluator
	Logger hclog.Logger
}

var jsonImpure = nix.EvalOpts{JSON: true, Impure: true}

// Exists reports whether path is present in the project.
func (r *Resolver) Exists(ctx context.Context, src expr.Source, path expr.AttrPath) (bool, error) {
	res, err := r.Eval.Evaluate(ctx, src.Exists(path), jsonImpure)
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	ok, err := res.AsBool()
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", path, err)
	}
	return ok, nil
}

// Require returns ErrNotFound when path is absent.
func (r *Resolver) Require(ctx context.Context, src expr.Source, path expr.AttrPath) error {
	ok, err := r.Exists(ctx, src, path)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return nil
}

// Classify evaluates the attribute's name and pairs it with its kind. When
// the attribute has no textual name, or evaluating it fails, the attribute
// path itself is used. Only cancellation of ctx is returned as an error.
func (r *Resolver) Classify(ctx context.Context, src expr.Source, path expr.AttrPath) (Classification, error) {
	fallback := Classification{Kind: KindOf(path), Name: path.String()}
	res, err := r.Eval.Evaluate(ctx, src.Name(path), jsonImpure)
	if err != nil {
		if ctx.Err() != nil {
			return Classification{}, ctx.Err()
		}
		logging.OrNull(r.Logger).Warn("could not evaluate attribute name", "attr", path.String(), "error", err)
		return fallback, nil
	}
	if name, err := res.AsString(); err == nil {
		fallback.Name = name
	}
	return fallback, nil
}

// MainProgram returns the executable a package provides: meta.mainProgram,
// then pname, then fallback.
func (r *Resolver) MainProgram(ctx context.Context, src expr.Source, path expr.AttrPath, fallback string) (string, error) {
	res, err := r.Eval.Evaluate(ctx, src.MainProgram(path, fallback), jsonImpure)
	if err != nil {
		return "", fmt.Errorf("finding main program of %s: %w", path, err)
	}
	prog, err := res.AsString()
	if err != nil {
		return "", fmt.Errorf("finding main program of %s: %w", path, err)
	}
	return prog, nil
}
