package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestProjectImport(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"penguindash", true},
		{"penguindash/internal/core", true},
		{"penguindashboard/x", false},
		{"github.com/spf13/cobra", false},
	}
	for _, c := range cases {
		if got := ProjectImport(c.in); got != c.want {
			t.Fatalf("ProjectImport(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestThirdPartyImport(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"go.uber.org/zap", true},
		{"golang.org/x/text/message", true},
		{"encoding/csv", false},
		{"penguindash/pkg/domain", false},
	}
	for _, c := range cases {
		if got := ThirdPartyImport(c.in); got != c.want {
			t.Fatalf("ThirdPartyImport(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestSurfaceImport(t *testing.T) {
	cases := []struct {
		in   string
		want bool
	}{
		{"penguindash/internal/dashboard", true},
		{"penguindash/internal/adapters/httpapi", true},
		{"penguindash/internal/tui", true},
		{"penguindash/internal/cli", true},
		{"penguindash/internal/core", false},
		{"penguindash/internal/tuix", false},
	}
	for _, c := range cases {
		if got := SurfaceImport(c.in); got != c.want {
			t.Fatalf("SurfaceImport(%q)=%v want %v", c.in, got, c.want)
		}
	}
}

func TestAny(t *testing.T) {
	pred := Any(ProjectImport, ThirdPartyImport)
	if !pred("penguindash/x") || !pred("go.uber.org/zap") || pred("strings") {
		t.Fatalf("unexpected Any result")
	}
	if Any()("anything") {
		t.Fatalf("empty Any must match nothing")
	}
}

func TestAssertNoDirectImports(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport \"fmt\"\nfunc X(){fmt.Println(1)}")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	test := []byte("package tmp\nimport \"penguindash/internal/cli\"\n")
	if err := os.WriteFile(filepath.Join(dir, "x_test.go"), test, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	AssertNoDirectImports(t, dir, ProjectImport, "test files are ignored")
}

type recorder struct{ msg string }

func (r *recorder) Fatalf(format string, args ...any) { r.msg = fmt.Sprintf(format, args...) }

func TestDirectImportViolationsReported(t *testing.T) {
	dir := t.TempDir()
	src := []byte("package tmp\nimport (\n\t\"strings\"\n\t\"go.uber.org/zap\"\n)\nvar _ = strings.ToUpper\nvar _ = zap.NewNop\n")
	if err := os.WriteFile(filepath.Join(dir, "x.go"), src, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	viols, err := directImportViolations(dir, ThirdPartyImport)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(viols) != 1 || viols[0] != "go.uber.org/zap (in x.go)" {
		t.Fatalf("unexpected violations %v", viols)
	}
	r := &recorder{}
	failIfDirectViolations(r, "pure", viols)
	if !strings.Contains(r.msg, "pure") || !strings.Contains(r.msg, "go.uber.org/zap") {
		t.Fatalf("unexpected failure message %q", r.msg)
	}
	r = &recorder{}
	failIfDirectViolations(r, "pure", nil)
	if r.msg != "" {
		t.Fatalf("no violations must not fail")
	}
}

func TestDirectImportViolationsMissingDir(t *testing.T) {
	if _, err := directImportViolations(filepath.Join(t.TempDir(), "missing"), ProjectImport); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}
