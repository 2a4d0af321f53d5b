package arch_test

import (
	"slices"
	"strings"
	"testing"
)

// restrictedImports maps an import path to the internal packages allowed to
// use it. CLI wiring belongs to cmd; internal packages take their inputs as
// plain values, and only nix spawns processes.
var restrictedImports = map[string][]string{
	"github.com/spf13/cobra": {},
	"github.com/spf13/viper": {"config"},
	"os/exec":                {"nix"},
	modulePath + "/cmd":      {},
}

// TestRestrictedImports verifies that framework and process-spawning imports
// stay in the packages that own those concerns.
func TestRestrictedImports(t *testing.T) {
	t.Parallel()

	for _, pkg := range internalPackages(t) {
		for _, path := range importPaths(t, pkg) {
			for prefix, owners := range restrictedImports {
				if path != prefix && !strings.HasPrefix(path, prefix+"/") {
					continue
				}
				if !slices.Contains(owners, pkg) {
					t.Errorf("package %s imports %s; only %v may", pkg, path, owners)
				}
			}
		}
	}
}
