package arch_test

import (
	"go/ast"
	"go/parser"
	"go/token"
	"testing"
)

// allowedColocations lists interfaces that may live beside a type whose
// method names cover them.
var allowedColocations = map[string]map[string]bool{
	// Runner is the process seam; ExecRunner is its production
	// implementation and tests in other packages substitute fakes.
	"nix": {"Runner": true},
	// Orchestrator.Build delegates to Builder; the names match, the roles
	// do not.
	"build": {"Builder": true},
}

// TestInterfacePlacement verifies that interfaces are declared by their
// consumers: an interface whose methods are all implemented by a type in the
// same package should move to the package that uses it. Sealed interfaces,
// whose methods are all unexported, close a sum type over its variants and
// are exempt.
func TestInterfacePlacement(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		pkg := pkg
		t.Run(pkg, func(t *testing.T) {
			t.Parallel()

			_, files := parsePackage(t, pkg, parser.SkipObjectResolution)
			ifaces := make(map[string][]string)
			methods := make(map[string]map[string]bool)
			for _, f := range files {
				for _, decl := range f.Decls {
					collectDecl(decl, ifaces, methods)
				}
			}

			for name, required := range ifaces {
				if len(required) == 0 || sealed(required) || allowedColocations[pkg][name] {
					continue
				}
				for typ, has := range methods {
					if coversAll(has, required) {
						t.Errorf("interface %s is implemented by %s in package %s; move it to its consumer", name, typ, pkg)
					}
				}
			}
		})
	}
}

// collectDecl records interface method names and per-type method sets.
func collectDecl(decl ast.Decl, ifaces map[string][]string, methods map[string]map[string]bool) {
	switch d := decl.(type) {
	case *ast.GenDecl:
		for _, spec := range d.Specs {
			ts, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			it, ok := ts.Type.(*ast.InterfaceType)
			if !ok {
				continue
			}
			var names []string
			for _, m := range it.Methods.List {
				for _, n := range m.Names {
					names = append(names, n.Name)
				}
			}
			ifaces[ts.Name.Name] = names
		}
	case *ast.FuncDecl:
		recv := receiverName(d.Recv)
		if recv == "" {
			return
		}
		if methods[recv] == nil {
			methods[recv] = make(map[string]bool)
		}
		methods[recv][d.Name.Name] = true
	}
}

// sealed reports whether no method of an interface is exported, so only
// types in its own package can implement it.
func sealed(methods []string) bool {
	for _, m := range methods {
		if token.IsExported(m) {
			return false
		}
	}
	return true
}

func TestSealed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		methods []string
		want    bool
	}{
		{[]string{"render"}, true},
		{[]string{"render", "precedence"}, true},
		{[]string{"render", "String"}, false},
		{[]string{"Output", "Attach"}, false},
	}
	for _, tt := range tests {
		if got := sealed(tt.methods); got != tt.want {
			t.Errorf("sealed(%v) = %v, want %v", tt.methods, got, tt.want)
		}
	}
}

func coversAll(has map[string]bool, required []string) bool {
	for _, m := range required {
		if !has[m] {
			return false
		}
	}
	return true
}
