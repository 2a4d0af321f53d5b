package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"
)

// constantInitializers are the calls whose results are treated as
// immutable package-level values.
var constantInitializers = map[string]bool{
	"errors.New":         true,
	"fmt.Errorf":         true,
	"regexp.MustCompile": true,
}

// TestNoMutableGlobalState flags package-level vars other than sentinels,
// compiled regexps, literals and lookup tables. Runtime state belongs in
// structs passed by the caller.
func TestNoMutableGlobalState(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		pkg := pkg
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			fset, files := parsePackage(t, pkg, parser.SkipObjectResolution)
			for _, f := range files {
				for _, decl := range f.Decls {
					gd, ok := decl.(*ast.GenDecl)
					if !ok || gd.Tok != token.VAR {
						continue
					}
					for _, spec := range gd.Specs {
						vs := spec.(*ast.ValueSpec)
						for i, name := range vs.Names {
							if name.Name == "_" {
								continue
							}
							var val ast.Expr
							if i < len(vs.Values) {
								val = vs.Values[i]
							}
							if !constantLike(vs.Type, val) {
								t.Errorf("%s: mutable global state: var %s; pass it through a struct instead",
									fset.Position(name.Pos()), name.Name)
							}
						}
					}
				}
			}
		})
	}
}

// constantLike reports whether a var declared with typ and val behaves as a
// constant after package init.
func constantLike(typ, val ast.Expr) bool {
	if ident, ok := typ.(*ast.Ident); ok && ident.Name == "error" {
		return true
	}
	switch v := val.(type) {
	case *ast.BasicLit, *ast.CompositeLit:
		return true
	case *ast.CallExpr:
		sel, ok := v.Fun.(*ast.SelectorExpr)
		if !ok {
			return false
		}
		pkg, ok := sel.X.(*ast.Ident)
		return ok && constantInitializers[pkg.Name+"."+sel.Sel.Name]
	}
	return false
}

func TestConstantLike(t *testing.T) {
	t.Parallel()

	src := `package p

var (
	a = errors.New("x")
	b = regexp.MustCompile("y")
	c = []string{"z"}
	d = "lit"
	e = make(map[string]int)
	f = time.Now()
	g *int
)
`
	f, err := parser.ParseFile(token.NewFileSet(), "p.go", src, 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[string]bool{"a": true, "b": true, "c": true, "d": true, "e": false, "f": false, "g": false}
	for _, spec := range f.Decls[0].(*ast.GenDecl).Specs {
		vs := spec.(*ast.ValueSpec)
		var val ast.Expr
		if len(vs.Values) > 0 {
			val = vs.Values[0]
		}
		name := vs.Names[0].Name
		if got := constantLike(vs.Type, val); got != want[name] {
			t.Errorf("constantLike(%s) = %v, want %v", name, got, want[name])
		}
	}
}
