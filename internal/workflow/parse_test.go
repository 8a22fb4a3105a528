package workflow

import (
	"strings"
	"testing"
)

func TestParsePytestOutput_AllPassed(t *testing.T) {
	out := `....                                                                 [100%]
4 passed in 0.12s
`
	s := parsePytestOutput(out)
	if s.Status != "PASS" {
		t.Errorf("Status = %q, want PASS", s.Status)
	}
	if s.Passed != 4 || s.Failed != 0 || s.Total != 4 {
		t.Errorf("counts = %d passed %d failed %d total", s.Passed, s.Failed, s.Total)
	}
}

func TestParsePytestOutput_Failures(t *testing.T) {
	out := `..F.F                                                                [100%]
=================================== FAILURES ===================================
FAILED tests/test_api.py::test_login - AssertionError: bad status
FAILED tests/test_api.py::TestAuth::test_logout
2 failed, 3 passed, 1 skipped in 0.42s
`
	s := parsePytestOutput(out)
	if s.Status != "FAIL" {
		t.Errorf("Status = %q, want FAIL", s.Status)
	}
	if s.Failed != 2 || s.Passed != 3 || s.Skipped != 1 || s.Total != 6 {
		t.Errorf("counts = %+v", s)
	}
	if len(s.Errors) != 2 {
		t.Fatalf("parsed %d failures, want 2", len(s.Errors))
	}
	first := s.Errors[0]
	if first.File != "tests/test_api.py" || first.Test != "test_login" {
		t.Errorf("failure 1 = %+v", first)
	}
	if first.Message != "AssertionError: bad status" {
		t.Errorf("failure 1 message = %q", first.Message)
	}
	if s.Errors[1].Test != "TestAuth::test_logout" {
		t.Errorf("failure 2 test = %q", s.Errors[1].Test)
	}
}

func TestParsePytestOutput_CollectError(t *testing.T) {
	out := `ERROR tests/test_broken.py - ImportError: cannot import name 'x'
1 error in 0.08s
`
	s := parsePytestOutput(out)
	if s.Status != "FAIL" {
		t.Errorf("Status = %q, want FAIL", s.Status)
	}
	if len(s.CollectErrors) != 1 {
		t.Fatalf("parsed %d collect errors, want 1", len(s.CollectErrors))
	}
	ce := s.CollectErrors[0]
	if ce.File != "tests/test_broken.py" {
		t.Errorf("file = %q", ce.File)
	}
	if !strings.Contains(ce.Output, "ImportError") {
		t.Errorf("output = %q", ce.Output)
	}
}

func TestParsePytestOutput_NoTests(t *testing.T) {
	s := parsePytestOutput("no tests ran in 0.01s\n")
	if s.Status != "PASS" || s.Total != 0 {
		t.Errorf("empty collection should pass with zero total, got %+v", s)
	}
}

func TestParsePylintOutput(t *testing.T) {
	out := `[
  {
    "type": "convention",
    "module": "src.api",
    "path": "src/api.py",
    "line": 1,
    "column": 0,
    "message-id": "C0114",
    "symbol": "missing-module-docstring",
    "message": "Missing module docstring"
  },
  {
    "type": "error",
    "module": "src.api",
    "path": "src/api.py",
    "line": 12,
    "column": 4,
    "message-id": "E1101",
    "symbol": "no-member",
    "message": "Instance of 'Foo' has no 'bar' member"
  }
]`
	s := parsePylintOutput(out)
	if len(s.Issues) != 2 {
		t.Fatalf("parsed %d issues, want 2", len(s.Issues))
	}
	i := s.Issues[0]
	if i.Module != "src.api" || i.Code != "C0114" || i.Symbol != "missing-module-docstring" {
		t.Errorf("issue 1 = %+v", i)
	}
	if s.Issues[1].Line != 12 || s.Issues[1].Column != 4 {
		t.Errorf("issue 2 position = %d:%d", s.Issues[1].Line, s.Issues[1].Column)
	}
}

func TestParsePylintOutput_Clean(t *testing.T) {
	s := parsePylintOutput("[]")
	if len(s.Issues) != 0 {
		t.Errorf("clean run should have no issues, got %d", len(s.Issues))
	}
}

func TestParseMypyOutput(t *testing.T) {
	out := `{"file": "src/api.py", "line": 10, "column": 8, "severity": "error", "message": "Argument 1 has incompatible type \"str\"", "code": "arg-type"}
{"file": "src/api.py", "line": 10, "column": 8, "severity": "note", "message": "See docs", "code": ""}
`
	s := parseMypyOutput(out)
	if len(s.Issues) != 2 {
		t.Fatalf("parsed %d issues, want 2", len(s.Issues))
	}
	if s.ErrorCount() != 1 {
		t.Errorf("ErrorCount = %d, want 1", s.ErrorCount())
	}
	i := s.Issues[0]
	if i.File != "src/api.py" || i.Line != 10 || i.Code != "arg-type" {
		t.Errorf("issue = %+v", i)
	}
}

func TestParseCoverageJSON(t *testing.T) {
	data := []byte(`{
  "files": {
    "src/api.py": {"summary": {"percent_covered": 81.5, "missing_lines": 12}},
    "src/util.py": {"summary": {"percent_covered": 0.0, "missing_lines": 40}}
  }
}`)
	entries, err := parseCoverageJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("parsed %d entries, want 2", len(entries))
	}
	// Sorted by file.
	if entries[0].File != "src/api.py" || entries[0].Coverage != 81.5 || entries[0].Missing != 12 {
		t.Errorf("entry 1 = %+v", entries[0])
	}
	if entries[0].Module != "src.api" {
		t.Errorf("module = %q, want src.api", entries[0].Module)
	}

	s := SummariseCoverage(entries)
	if s.Files != 2 || s.Uncovered != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestParseRadonOutput(t *testing.T) {
	out := `{
  "src/api.py": [
    {"type": "function", "name": "handle", "lineno": 4, "rank": "C", "complexity": 12},
    {"type": "method", "name": "run", "classname": "Worker", "lineno": 30, "rank": "F", "complexity": 44}
  ],
  "src/broken.py": {"error": "invalid syntax"}
}`
	entries := parseRadonOutput(out)
	if len(entries) != 2 {
		t.Fatalf("parsed %d entries, want 2", len(entries))
	}
	if entries[0].Function != "handle" || entries[0].Rank != "C" {
		t.Errorf("entry 1 = %+v", entries[0])
	}
	if entries[1].Function != "Worker.run" || entries[1].Complexity != 44 {
		t.Errorf("entry 2 = %+v", entries[1])
	}
}

func TestParseBanditOutput(t *testing.T) {
	out := `{
  "results": [
    {
      "filename": "src/db.py",
      "line_number": 22,
      "test_id": "B608",
      "issue_severity": "MEDIUM",
      "issue_confidence": "HIGH",
      "issue_text": "Possible SQL injection vector through string-based query construction."
    }
  ]
}`
	findings := parseBanditOutput(out)
	if len(findings) != 1 {
		t.Fatalf("parsed %d findings, want 1", len(findings))
	}
	f := findings[0]
	if f.Module != "src.db" || f.Line != 22 || f.TestID != "B608" || f.Severity != "MEDIUM" {
		t.Errorf("finding = %+v", f)
	}
}

func TestParsePipAuditOutput(t *testing.T) {
	out := `{
  "dependencies": [
    {"name": "requests", "version": "2.19.0", "vulns": [
      {"id": "PYSEC-2018-28", "fix_versions": ["2.20.0"], "description": "Credential leak"}
    ]},
    {"name": "click", "version": "8.1.7", "vulns": []}
  ]
}`
	vulns := parsePipAuditOutput(out)
	if len(vulns) != 1 {
		t.Fatalf("parsed %d vulns, want 1", len(vulns))
	}
	v := vulns[0]
	if v.Name != "requests" || v.ID != "PYSEC-2018-28" {
		t.Errorf("vuln = %+v", v)
	}
	if len(v.FixVersions) != 1 || v.FixVersions[0] != "2.20.0" {
		t.Errorf("fix versions = %v", v.FixVersions)
	}
}

func TestBlackOutputPatterns(t *testing.T) {
	if m := reformattedLine.FindStringSubmatch("reformatted src/api.py"); m == nil || m[1] != "src/api.py" {
		t.Errorf("reformatted line not matched: %v", m)
	}
	if m := wouldReformatLine.FindStringSubmatch("would reformat src/api.py"); m == nil || m[1] != "src/api.py" {
		t.Errorf("would reformat line not matched: %v", m)
	}
	if reformattedLine.MatchString("All done! 2 files reformatted.") {
		t.Error("summary line should not match the per-file pattern")
	}
}

func TestTruncateLines(t *testing.T) {
	s := "a\nb\nc\nd\n"
	got := truncateLines(s, 2)
	if !strings.HasPrefix(got, "a\nb\n") || !strings.Contains(got, "2 more lines") {
		t.Errorf("truncateLines = %q", got)
	}
	if truncateLines("a\nb", 5) != "a\nb" {
		t.Error("short input should pass through")
	}
}
