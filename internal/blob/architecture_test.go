package blob

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestOnlyFacadesImportInfra ensures that only the blob and persistence
// facades wrap the infra-backed implementations. Other packages depend on the
// blob.Store and persistence.Store interfaces instead.
func TestOnlyFacadesImportInfra(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports, Tests: true}
	pkgs, err := packages.Load(cfg, "shelterdb/...")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}

	rules := []struct{ infra, facade string }{
		{infra: "shelterdb/internal/infra/blob", facade: "shelterdb/internal/blob"},
		{infra: "shelterdb/internal/infra/persistence", facade: "shelterdb/internal/persistence"},
	}
	seen := make(map[string]struct{})

	for _, pkg := range pkgs {
		for _, rule := range rules {
			if isInfraImport(pkg.PkgPath, rule.facade) || strings.HasPrefix(pkg.PkgPath, "shelterdb/internal/infra/") {
				continue
			}
			for importPath := range pkg.Imports {
				if isInfraImport(importPath, rule.infra) {
					pos := filepath.Join(pkg.PkgPath, "...")
					seen[pos+": "+importPath] = struct{}{}
				}
			}
		}
	}

	if len(seen) > 0 {
		violations := make([]string, 0, len(seen))
		for v := range seen {
			violations = append(violations, v)
		}
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import of infra package: %s", v)
		}
		t.Fatalf("found %d forbidden imports of infra packages", len(violations))
	}
}

func isInfraImport(importPath, prefix string) bool {
	return importPath == prefix || strings.HasPrefix(importPath, prefix+"/")
}
