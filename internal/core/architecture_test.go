package core

import (
	"sort"
	"strings"
	"testing"

	"golang.org/x/tools/go/packages"
)

// TestCoreDependsOnlyOnDomain keeps the filter logic independent of every
// hosting surface: only the standard library and pkg/domain may be imported.
func TestCoreDependsOnlyOnDomain(t *testing.T) {
	cfg := &packages.Config{Mode: packages.NeedName | packages.NeedImports}
	pkgs, err := packages.Load(cfg, "penguindash/internal/core")
	if err != nil {
		t.Fatalf("load packages: %v", err)
	}
	if len(pkgs) == 0 {
		t.Fatalf("no packages loaded")
	}

	var violations []string
	for _, pkg := range pkgs {
		for importPath := range pkg.Imports {
			if importPath == "penguindash/pkg/domain" {
				continue
			}
			if first, _, _ := strings.Cut(importPath, "/"); strings.Contains(first, ".") || first == "penguindash" {
				violations = append(violations, pkg.PkgPath+": "+importPath)
			}
		}
	}
	if len(violations) > 0 {
		sort.Strings(violations)
		for _, v := range violations {
			t.Errorf("forbidden import: %s", v)
		}
		t.Fatalf("found %d forbidden imports in core", len(violations))
	}
}
