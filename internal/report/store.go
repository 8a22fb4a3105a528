// Package report provides structured persistence and retrieval of
// tool run results. Results are stored as typed structs and can be
// queried by Python module or by a module-qualified symbol.
package report

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a run.
type Kind string

const (
	// Check is a check run (test, lint, typecheck).
	Check Kind = "check"
	// Audit is an audit run (coverage, complexity, security, depaudit).
	Audit Kind = "audit"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured output from a tool run.
type RunResult struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	// Check fields.
	AutoFixes    int           `json:"auto_fixes,omitempty"`
	FormatIssues []FormatIssue `json:"format_issues,omitempty"`
	CollectError string        `json:"collect_error,omitempty"` // pytest collection/import failure
	TestFailures []TestFailure `json:"test_failures,omitempty"`
	LintIssues   []LintIssue   `json:"lint_issues,omitempty"`
	TypeIssues   []TypeIssue   `json:"type_issues,omitempty"`

	// Audit fields.
	Coverage   []CoverageEntry   `json:"coverage,omitempty"`
	Complexity []ComplexityEntry `json:"complexity,omitempty"`
	Security   []SecurityFinding `json:"security,omitempty"`
	VulnDeps   []VulnDep         `json:"vuln_deps,omitempty"`
}

// Expect returns an error if the run's Kind does not match want.
func (r *RunResult) Expect(want Kind) error {
	if r.Kind != want {
		return fmt.Errorf("run %s is a %s run, not a %s run", r.ID, r.Kind, want)
	}
	return nil
}

// FormatIssue represents an unformatted file detected by black.
type FormatIssue struct {
	Module  string `json:"module"`
	File    string `json:"file"`
	Message string `json:"message"`
}

// TestFailure represents a failed pytest test.
type TestFailure struct {
	Module  string `json:"module"` // dotted module path, e.g. tests.test_api
	Test    string `json:"test"`   // test function, e.g. test_login
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
	Output  string `json:"output,omitempty"`
}

// LintIssue represents a pylint finding.
type LintIssue struct {
	Module  string `json:"module"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Code    string `json:"code"` // pylint message id, e.g. C0114
	Symbol  string `json:"symbol,omitempty"`
	Message string `json:"message"`
}

// TypeIssue represents a mypy diagnostic.
type TypeIssue struct {
	Module   string `json:"module"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
	Severity string `json:"severity"` // error or note
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
}

// CoverageEntry holds per-file test coverage data.
type CoverageEntry struct {
	Module   string  `json:"module"`
	File     string  `json:"file"`
	Coverage float64 `json:"coverage"` // 0.0–100.0
	Missing  int     `json:"missing"`  // uncovered lines
}

// ComplexityEntry holds per-function cyclomatic complexity data.
type ComplexityEntry struct {
	Module     string `json:"module"`
	File       string `json:"file"`
	Function   string `json:"function"`
	Line       int    `json:"line"`
	Rank       string `json:"rank"` // radon rank A–F
	Complexity int    `json:"complexity"`
}

// SecurityFinding represents a bandit finding.
type SecurityFinding struct {
	Module     string `json:"module"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	TestID     string `json:"test_id"` // e.g. B602
	Severity   string `json:"severity"`
	Confidence string `json:"confidence"`
	Message    string `json:"message"`
}

// VulnDep represents a vulnerable dependency found by pip-audit.
type VulnDep struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	ID          string   `json:"id"` // e.g. PYSEC-2024-1234 or GHSA id
	FixVersions []string `json:"fix_versions,omitempty"`
	Description string   `json:"description,omitempty"`
}

// Diagnostic is a uniform interface for all diagnostic types.
type Diagnostic struct {
	Source  string // "format", "collect", "test", "lint", "typecheck", ...
	Module  string // dotted module path
	File    string
	Line    int
	Col     int
	Symbol  string // test or function name
	Detail  string // lint code, bandit test id, etc.
	Message string
	Output  string // full test output (test failures only)
}

// ByModule returns all diagnostics for a given dotted module path.
func ByModule(result *RunResult, module string) []Diagnostic {
	var out []Diagnostic
	for _, d := range toDiagnostics(result) {
		if d.Module == module {
			out = append(out, d)
		}
	}
	return out
}

// BySymbol returns diagnostics matching a module-qualified symbol.
// "tests.test_api::test_login" selects a specific test or function;
// a bare "tests.test_api" selects every diagnostic in the module.
func BySymbol(result *RunResult, sym string) []Diagnostic {
	module, name := splitSymbol(sym)
	if name == "" {
		return ByModule(result, module)
	}

	var out []Diagnostic
	for _, d := range toDiagnostics(result) {
		if d.Module == module && d.Symbol == name {
			out = append(out, d)
		}
	}
	return out
}

// splitSymbol splits a qualified symbol into module path and symbol name.
// "tests.test_api::test_login" → ("tests.test_api", "test_login")
// "tests.test_api" → ("tests.test_api", "")
func splitSymbol(sym string) (string, string) {
	if module, name, ok := strings.Cut(sym, "::"); ok {
		return module, name
	}
	return sym, ""
}

// ModuleFromFile derives a dotted module path from a Python file path.
// "src/pkg/api.py" → "src.pkg.api". Best-effort; callers may refine it.
func ModuleFromFile(file string) string {
	if file == "" {
		return ""
	}
	mod := strings.TrimSuffix(file, ".py")
	mod = strings.TrimPrefix(mod, "./")
	mod = strings.ReplaceAll(mod, "\\", "/")
	mod = strings.Trim(mod, "/")
	return strings.ReplaceAll(mod, "/", ".")
}

func toDiagnostics(r *RunResult) []Diagnostic {
	var out []Diagnostic

	for _, f := range r.FormatIssues {
		out = append(out, Diagnostic{
			Source:  "format",
			Module:  f.Module,
			File:    f.File,
			Message: f.Message,
		})
	}
	for _, t := range r.TestFailures {
		out = append(out, Diagnostic{
			Source:  "test",
			Module:  t.Module,
			File:    t.File,
			Symbol:  t.Test,
			Message: t.Message,
			Output:  t.Output,
		})
	}
	for _, l := range r.LintIssues {
		out = append(out, Diagnostic{
			Source:  "lint",
			Module:  l.Module,
			File:    l.File,
			Line:    l.Line,
			Col:     l.Col,
			Detail:  l.Code,
			Symbol:  l.Symbol,
			Message: l.Message,
		})
	}
	for _, ti := range r.TypeIssues {
		out = append(out, Diagnostic{
			Source:  "typecheck",
			Module:  ti.Module,
			File:    ti.File,
			Line:    ti.Line,
			Col:     ti.Col,
			Detail:  ti.Code,
			Message: ti.Message,
		})
	}

	// Audit diagnostics.
	for _, c := range r.Coverage {
		out = append(out, Diagnostic{
			Source:  "coverage",
			Module:  c.Module,
			File:    c.File,
			Message: fmt.Sprintf("%.1f%% coverage (%d lines missing)", c.Coverage, c.Missing),
		})
	}
	for _, c := range r.Complexity {
		out = append(out, Diagnostic{
			Source:  "complexity",
			Module:  c.Module,
			File:    c.File,
			Line:    c.Line,
			Symbol:  c.Function,
			Message: fmt.Sprintf("cyclomatic complexity %d (rank %s)", c.Complexity, c.Rank),
		})
	}
	for _, s := range r.Security {
		out = append(out, Diagnostic{
			Source:  "security",
			Module:  s.Module,
			File:    s.File,
			Line:    s.Line,
			Detail:  s.TestID,
			Message: fmt.Sprintf("[%s/%s] %s", s.Severity, s.Confidence, s.Message),
		})
	}
	for _, v := range r.VulnDeps {
		msg := v.Description
		if msg == "" {
			msg = "known vulnerability"
		}
		if len(v.FixVersions) > 0 {
			msg += " (fixed in " + strings.Join(v.FixVersions, ", ") + ")"
		}
		out = append(out, Diagnostic{
			Source:  "depaudit",
			Module:  v.Name,
			Detail:  v.ID,
			Message: msg,
		})
	}

	return out
}
