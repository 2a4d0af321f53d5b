// Package build drives the resolve, check, classify and build pipeline for a
// project attribute. Each step fails fast; nothing is retried.
package build

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/afero"

	"github.com/nilla-nix/nilla-cli/internal/attr"
	"github.com/nilla-nix/nilla-cli/internal/expr"
	"github.com/nilla-nix/nilla-cli/internal/logging"
	"github.com/nilla-nix/nilla-cli/internal/nix"
	"github.com/nilla-nix/nilla-cli/internal/project"
)

// Default attribute categories.
const (
	CategoryPackages = "packages"
	CategoryShells   = "shells"
)

// ProjectResolver locates and registers a project.
type ProjectResolver interface {
	Resolve(ctx context.Context, ref string) (project.Project, error)
}

// SystemResolver reports the platform of the running machine.
type SystemResolver interface {
	System(ctx context.Context) (string, error)
}

// Attributes checks and classifies project attributes.
type Attributes interface {
	Require(ctx context.Context, src expr.Source, path expr.AttrPath) error
	Classify(ctx context.Context, src expr.Source, path expr.AttrPath) (attr.Classification, error)
}

// Builder builds an attribute of a Nix file.
type Builder interface {
	Build(ctx context.Context, file, attr string, opts nix.BuildOpts) ([]string, error)
}

// Request names what to prepare.
type Request struct {
	Project string // project reference; empty means the current directory
	Name    string // attribute name or dotted path; empty selects the default
	System  string // target platform; empty means the current system
	// Category is the top-level set a bare Name is looked up in.
	Category string
}

// Target is a checked, classified attribute ready to build or enter.
type Target struct {
	Project project.Project
	File    string // absolute path of the entry file
	Source  expr.Source
	System  string
	Path    expr.AttrPath
	Class   attr.Classification
}

// Options controls the build step.
type Options struct {
	Link   bool
	Report bool
}

// Orchestrator wires the pipeline steps together.
type Orchestrator struct {
	FS       afero.Fs
	Projects ProjectResolver
	Systems  SystemResolver
	Attrs    Attributes
	Builder  Builder
	Logger   hclog.Logger
}

// Prepare resolves the project, checks its entry file, settles the system,
// expands the attribute path, checks that it exists and classifies it.
func (o *Orchestrator) Prepare(ctx context.Context, req Request) (Target, error) {
	log := logging.OrNull(o.Logger)

	log.Debug("resolving project", "ref", req.Project)
	proj, err := o.Projects.Resolve(ctx, req.Project)
	if err != nil {
		return Target{}, err
	}

	file, err := proj.EntryPath(o.FS)
	if err != nil {
		return Target{}, err
	}

	system := req.System
	if system == "" {
		if system, err = o.Systems.System(ctx); err != nil {
			return Target{}, err
		}
	}

	category := req.Category
	if category == "" {
		category = CategoryPackages
	}
	path, err := TargetPath(category, req.Name, system)
	if err != nil {
		return Target{}, err
	}

	src := expr.Source{StorePath: proj.Entry.Path, Hash: proj.Entry.Hash, File: proj.File}
	if err := o.Attrs.Require(ctx, src, path); err != nil {
		return Target{}, err
	}

	class, err := o.Attrs.Classify(ctx, src, path)
	if err != nil {
		return Target{}, err
	}
	log.Debug("prepared target", "attr", path.String(), "kind", class.Kind, "name", class.Name, "system", system)

	return Target{
		Project: proj,
		File:    file,
		Source:  src,
		System:  system,
		Path:    path,
		Class:   class,
	}, nil
}

// Build builds a prepared target and returns the reported output paths.
func (o *Orchestrator) Build(ctx context.Context, t Target, opts Options) ([]string, error) {
	logging.OrNull(o.Logger).Info("building", "kind", t.Class.Kind.String(), "name", t.Class.Name)
	return o.Builder.Build(ctx, t.File, t.Path.String(), nix.BuildOpts{
		Link:   opts.Link,
		Report: opts.Report,
		System: t.System,
	})
}

// TargetPath expands a user-supplied name into a full attribute path. A name
// containing a dot is used verbatim; a bare name becomes
// <category>."<name>".result."<system>"; no name selects the default entry.
func TargetPath(category, name, system string) (expr.AttrPath, error) {
	switch {
	case name == "":
		return expr.AttrPath{expr.Bare(category), expr.Bare("default"), expr.Bare("result"), expr.Quoted(system)}, nil
	case strings.Contains(name, "."):
		p, err := expr.ParseAttrPath(name)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", name, err)
		}
		return p, nil
	default:
		return expr.AttrPath{expr.Bare(category), expr.Quoted(name), expr.Bare("result"), expr.Quoted(system)}, nil
	}
}
