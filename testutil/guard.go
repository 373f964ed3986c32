// Package testutil holds test helpers that enforce package layering.
package testutil

import (
	"go/parser"
	"go/token"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// AssertNoTransitiveDependency runs `go list -deps` on pattern and fails if any
// dependency satisfies forbidden.
func AssertNoTransitiveDependency(t testing.TB, pattern string, forbidden func(path string) bool, reason string) {
	t.Helper()
	viols, out, err := transitiveDependencyViolations(pattern, forbidden)
	if err != nil {
		t.Fatalf("go list failed: %v\n%s", err, string(out))
	}
	failIfTransitiveViolations(t, reason, viols)
}

// AssertNoDirectImports parses the non-test .go files in dir and fails if any
// import satisfies forbidden. Build tags are ignored.
func AssertNoDirectImports(t testing.TB, dir string, forbidden func(importPath string) bool, reason string) {
	t.Helper()
	viols, err := directImportViolations(dir, forbidden)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	failIfDirectViolations(t, reason, viols)
}

// InfraImportForbidden matches the concrete backend packages under internal/infra.
// Only facade packages may import them.
func InfraImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/infra/")
}

// AdapterImportForbidden matches transport adapters under internal/adapters.
func AdapterImportForbidden(path string) bool {
	return strings.Contains(path, "/internal/adapters/")
}

// BackendImportForbidden matches the source loaders, blob stores and the
// storage drivers and decoders they pull in.
func BackendImportForbidden(path string) bool {
	switch {
	case strings.HasSuffix(path, "/internal/source"),
		strings.HasSuffix(path, "/internal/blob"),
		strings.Contains(path, "/internal/blob/"),
		strings.Contains(path, "/internal/infra/"):
		return true
	case strings.HasPrefix(path, "github.com/aws/"),
		strings.HasPrefix(path, "github.com/jackc/pgx"),
		strings.HasPrefix(path, "github.com/jmoiron/sqlx"),
		strings.HasPrefix(path, "github.com/segmentio/parquet-go"),
		strings.HasPrefix(path, "modernc.org/sqlite"):
		return true
	}
	return false
}

// PresentationImportForbidden matches HTTP serving, rendering and metrics
// libraries that must stay out of the query core.
func PresentationImportForbidden(path string) bool {
	switch {
	case path == "net/http/httptest", path == "net/http/pprof":
		return true
	case strings.HasPrefix(path, "github.com/wcharczuk/go-chart"),
		strings.HasPrefix(path, "github.com/olekukonko/tablewriter"),
		strings.HasPrefix(path, "github.com/prometheus/"):
		return true
	}
	return false
}

var goListDeps = func(pattern string) ([]byte, error) {
	cmd := exec.Command("go", "list", "-deps", pattern)
	return cmd.CombinedOutput()
}

func transitiveDependencyViolations(pattern string, forbidden func(path string) bool) ([]string, []byte, error) {
	out, err := goListDeps(pattern)
	if err != nil {
		return nil, out, err
	}
	var viols []string
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if forbidden(line) {
			viols = append(viols, line)
		}
	}
	return viols, out, nil
}

func directImportViolations(dir string, forbidden func(importPath string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	fset := token.NewFileSet()
	var viols []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") {
			continue
		}
		path := filepath.Join(dir, name)
		fileAst, err := parser.ParseFile(fset, path, nil, 0)
		if err != nil {
			return nil, err
		}
		for _, imp := range fileAst.Imports {
			ip := strings.Trim(imp.Path.Value, "\"")
			if forbidden(ip) {
				viols = append(viols, ip+" (in "+name+")")
			}
		}
	}
	return viols, nil
}

type fatalLogger interface {
	Fatalf(format string, args ...any)
}

func failIfTransitiveViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden transitive dependency detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}

func failIfDirectViolations(t fatalLogger, reason string, viols []string) {
	if len(viols) > 0 {
		t.Fatalf("forbidden direct imports detected (%s):\n%s", reason, strings.Join(viols, "\n"))
	}
}
