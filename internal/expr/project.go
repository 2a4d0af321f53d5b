package expr

// Reserved lists the top-level project attributes that are framework
// plumbing rather than user-facing attributes.
var Reserved = []string{"assertions", "warnings", "extend", "explain"}

// Source identifies a project through a fixed-output store entry. Importing
// through builtins.path with a pinned sha256 keeps evaluation reproducible
// even though StorePath is an absolute, machine-specific location.
type Source struct {
	StorePath string
	Hash      string
	File      string // entry file relative to the project root, e.g. nilla.nix
}

const (
	sourceVar  = Ident("source")
	projectVar = Ident("project")
)

// Project wraps body in the shared prelude:
//
//	let
//	  source = builtins.path { path = "<store path>"; sha256 = "<hash>"; };
//	  project = import "${source}/<file>";
//	in
//	  <body>
//
// body receives the expression that refers to the imported project.
func (s Source) Project(body func(project Expr) Expr) Expr {
	return Let{
		Bindings: []Binding{
			{Name: string(sourceVar), Value: Call{
				Fn: Builtin("path"),
				Args: []Expr{AttrSet{
					{Name: "path", Value: Str(s.StorePath)},
					{Name: "sha256", Value: Str(s.Hash)},
				}},
			}},
			{Name: string(projectVar), Value: Call{
				Fn:   Ident("import"),
				Args: []Expr{Interp{sourceVar, Str("/" + s.File)}},
			}},
		},
		Body: body(projectVar),
	}
}

// Exists tests whether path is present in the project without failing when an
// intermediate attribute is missing: a single segment becomes "project ? a",
// a longer path a.b.c becomes "(project.a.b or {}) ? c".
func (s Source) Exists(path AttrPath) Expr {
	return s.Project(func(project Expr) Expr {
		if len(path) == 1 {
			return Has{Base: project, Attr: path[0]}
		}
		return Has{
			Base: Select{Base: project, Path: path.Init(), Default: AttrSet{}},
			Attr: path.Last(),
		}
	})
}

// Name selects project.<path>.name, or null when the attribute has no name.
func (s Source) Name(path AttrPath) Expr {
	return s.Project(func(project Expr) Expr {
		return Select{Base: project, Path: path.Append(Bare("name")), Default: Null}
	})
}

// MainProgram selects the executable name of a package:
// meta.mainProgram, then pname, then fallback.
func (s Source) MainProgram(path AttrPath, fallback string) Expr {
	return s.Project(func(project Expr) Expr {
		return Select{
			Base: project,
			Path: path.Append(Bare("meta"), Bare("mainProgram")),
			Default: Select{
				Base:    project,
				Path:    path.Append(Bare("pname")),
				Default: Str(fallback),
			},
		}
	})
}

// HasExplanation tests whether the project's explain set documents name.
func (s Source) HasExplanation(name string) Expr {
	return s.Project(func(project Expr) Expr {
		return Has{
			Base: Select{Base: project, Path: Path("explain"), Default: AttrSet{}},
			Attr: Quoted(name),
		}
	})
}

// Explanation selects project.explain."<name>".result, or null when absent.
func (s Source) Explanation(name string) Expr {
	return s.Project(func(project Expr) Expr {
		return Select{
			Base:    project,
			Path:    AttrPath{Bare("explain"), Quoted(name), Bare("result")},
			Default: Null,
		}
	})
}

// AttrNames lists the project's top-level attribute names minus Reserved.
func (s Source) AttrNames() Expr {
	reserved := make(List, len(Reserved))
	for i, r := range Reserved {
		reserved[i] = Str(r)
	}
	return s.Project(func(project Expr) Expr {
		return Call{
			Fn: Builtin("attrNames"),
			Args: []Expr{Call{
				Fn:   Builtin("removeAttrs"),
				Args: []Expr{project, reserved},
			}},
		}
	})
}

// CurrentSystem is builtins.currentSystem. It needs impure evaluation.
func CurrentSystem() Expr {
	return Builtin("currentSystem")
}
