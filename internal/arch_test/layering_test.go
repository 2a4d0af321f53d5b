package arch_test

import "testing"

// layers assigns each internal package to a layer. A package may import
// packages at its own layer or below.
var layers = map[string]int{
	"ansi":      0,
	"config":    0,
	"explain":   0,
	"expr":      0,
	"logging":   0,
	"telemetry": 0,

	"nix":   1,
	"ui":    1,
	"watch": 1,

	"attr":    2,
	"project": 2,

	"build": 3,
	"show":  3,
}

// TestDependencyLayering verifies that no internal package imports one from
// a higher layer.
func TestDependencyLayering(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		from, ok := layers[pkg]
		if !ok {
			continue
		}
		for _, imp := range internalImports(t, pkg) {
			if to, ok := layers[imp]; ok && to > from {
				t.Errorf("layer violation: %s (layer %d) imports %s (layer %d)", pkg, from, imp, to)
			}
		}
	}
}

// TestNoUnknownPackages forces every new internal package into the layer map.
func TestNoUnknownPackages(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		if _, ok := layers[pkg]; !ok {
			t.Errorf("package %s has no layer assignment; add it to the layers map", pkg)
		}
	}
}
