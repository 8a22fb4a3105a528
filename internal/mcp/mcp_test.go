package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/deixis/proctor/internal/config"
	"github.com/deixis/proctor/internal/report"
	"github.com/deixis/proctor/internal/runner"
	"github.com/deixis/proctor/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// fakeRunner returns canned results keyed by the invoked tool, looked up
// from argv. Direct interpreter calls are keyed by their first flag.
type fakeRunner struct {
	results map[string]*runner.Result
}

func (f *fakeRunner) Run(ctx context.Context, argv []string, cwd string) *runner.Result {
	key := ""
	if len(argv) >= 3 && argv[1] == "-m" {
		key = argv[2]
	} else if len(argv) >= 2 {
		key = argv[1]
	}
	if res, ok := f.results[key]; ok {
		return res
	}
	return &runner.Result{RunID: "fake", ExitCode: 0}
}

// setup creates a Proctor MCP server + client over in-memory transports,
// with tool invocations served by the given fake runner.
func setup(t *testing.T, fr *fakeRunner, cfg *config.Config) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	if cfg == nil {
		cfg = &config.Config{}
	}
	workspace := t.TempDir()

	h := &handler{
		engine: &workflow.Engine{
			Config:      cfg,
			Runner:      fr,
			Workspace:   workspace,
			ProjectRoot: workspace,
			Interpreter: "python3",
		},
		store: report.NewLRUStore(5, report.NewDiskStore()),
	}
	server := newServer(h)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// --- py_workspace ---

func TestPyWorkspace(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"--version": {ExitCode: 0, Stdout: "Python 3.12.1\n"},
	}}
	cs := setup(t, fr, nil)

	res := callTool(t, cs, "py_workspace", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Interpreter: python3") {
		t.Errorf("expected Interpreter: in output, got:\n%s", text)
	}
	if !strings.Contains(text, "Python 3.12.1") {
		t.Errorf("expected interpreter version, got:\n%s", text)
	}
	if !strings.Contains(text, "Check steps: test, lint, typecheck") {
		t.Errorf("expected default check steps, got:\n%s", text)
	}
}

// --- py_check ---

func TestPyCheck_Passing(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"pytest": {ExitCode: 0, Stdout: "3 passed in 0.1s\n"},
		"pylint": {ExitCode: 0, Stdout: "[]"},
		"mypy":   {ExitCode: 0},
	}}
	cs := setup(t, fr, nil)

	res := callTool(t, cs, "py_check", nil)
	text := resultText(res)
	if !strings.Contains(text, "Status: PASS") {
		t.Errorf("expected Status: PASS, got:\n%s", text)
	}
	if !strings.Contains(text, "test: pass") {
		t.Errorf("expected test step to pass, got:\n%s", text)
	}
	if !strings.Contains(text, "Run:") {
		t.Errorf("expected Run: in output, got:\n%s", text)
	}
}

func TestPyCheck_TestFailure(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"pytest": {ExitCode: 1, Stdout: "FAILED tests/test_api.py::test_login - AssertionError: bad status\n1 failed, 2 passed in 0.2s\n"},
	}}
	cs := setup(t, fr, nil)

	res := callTool(t, cs, "py_check", nil)
	text := resultText(res)
	if !strings.Contains(text, "Status: FAIL") {
		t.Errorf("expected Status: FAIL, got:\n%s", text)
	}
	if !strings.Contains(text, "test: fail") {
		t.Errorf("expected test step to fail, got:\n%s", text)
	}
	// Should have failures section with module-qualified symbols.
	if !strings.Contains(text, "tests.test_api::test_login") {
		t.Errorf("expected qualified test symbol, got:\n%s", text)
	}
	// Should have inspect hint.
	if !strings.Contains(text, "py_inspect") {
		t.Errorf("expected py_inspect hint, got:\n%s", text)
	}
}

func TestPyCheck_FormatFailureWithoutFix(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"black": {ExitCode: 1, Stderr: "would reformat src/api.py\n"},
	}}
	cs := setup(t, fr, nil)

	res := callTool(t, cs, "py_check", map[string]any{"fix": false})
	text := resultText(res)
	if !strings.Contains(text, "Status: FAIL") {
		t.Errorf("expected Status: FAIL, got:\n%s", text)
	}
	if !strings.Contains(text, "Formatting issues (1 files):") {
		t.Errorf("expected formatting issues section, got:\n%s", text)
	}
	if !strings.Contains(text, "src/api.py") {
		t.Errorf("expected offending file, got:\n%s", text)
	}
}

func TestPyCheck_MissingTool(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"pytest": {ExitCode: 1, Stderr: "/usr/bin/python3: No module named pytest\n"},
	}}
	cs := setup(t, fr, nil)

	res := callTool(t, cs, "py_check", nil)
	text := resultText(res)
	if !strings.Contains(text, "test: unavailable") {
		t.Errorf("expected unavailable test step, got:\n%s", text)
	}
	if !strings.Contains(text, "pip install pytest") {
		t.Errorf("expected install instructions, got:\n%s", text)
	}
}

func TestPyCheck_UnknownStep(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{}}
	cfg := &config.Config{
		Check: config.CheckConfig{Steps: []string{"compile"}},
	}
	cs := setup(t, fr, cfg)

	res := callTool(t, cs, "py_check", nil)
	text := resultText(res)
	if !strings.Contains(text, "Status: FAIL") {
		t.Errorf("expected Status: FAIL for unknown step, got:\n%s", text)
	}
	if !strings.Contains(text, "unknown step: compile") {
		t.Errorf("expected 'unknown step: compile' in output, got:\n%s", text)
	}
}

// --- py_audit ---

func TestPyAudit(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"radon":  {ExitCode: 0, Stdout: "{}"},
		"bandit": {ExitCode: 0, Stdout: `{"results": []}`},
		"pip_audit": {ExitCode: 1, Stdout: `{"dependencies": [
			{"name": "requests", "version": "2.19.0",
			 "vulns": [{"id": "PYSEC-2018-28", "fix_versions": ["2.20.0"]}]}
		]}`},
	}}
	cfg := &config.Config{
		Audit: config.AuditConfig{Steps: []string{"complexity", "security", "depaudit"}},
	}
	cs := setup(t, fr, cfg)

	res := callTool(t, cs, "py_audit", nil)
	text := resultText(res)
	if !strings.Contains(text, "Audit: 3/3 checks completed") {
		t.Errorf("expected all checks completed, got:\n%s", text)
	}
	if !strings.Contains(text, "requests 2.19.0: PYSEC-2018-28") {
		t.Errorf("expected vulnerable dependency, got:\n%s", text)
	}
	if !strings.Contains(text, "Run:") {
		t.Errorf("expected Run: in output, got:\n%s", text)
	}
}

// --- py_inspect ---

func TestPyInspect_MissingRunID(t *testing.T) {
	cs := setup(t, &fakeRunner{}, nil)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name: "py_inspect",
		Arguments: map[string]any{
			"symbol": "pkg.api",
		},
	})
	if err == nil {
		t.Error("expected error for missing run_id")
	}
}

func TestPyInspect_InvalidRunID(t *testing.T) {
	cs := setup(t, &fakeRunner{}, nil)
	res := callTool(t, cs, "py_inspect", map[string]any{
		"run_id": "nonexistent-id",
		"symbol": "pkg.api",
	})
	if !res.IsError {
		t.Error("expected IsError for invalid run_id")
	}
}

func TestPyInspect_AfterFailingCheck(t *testing.T) {
	fr := &fakeRunner{results: map[string]*runner.Result{
		"pytest": {ExitCode: 1, Stdout: "FAILED tests/test_api.py::test_login - AssertionError: bad status\n1 failed in 0.2s\n"},
	}}
	cs := setup(t, fr, nil)

	checkRes := callTool(t, cs, "py_check", nil)
	checkText := resultText(checkRes)

	// Extract run ID from "Run: <id>".
	var runID string
	for _, line := range strings.Split(checkText, "\n") {
		if strings.HasPrefix(line, "Run: ") {
			runID = strings.TrimPrefix(line, "Run: ")
			break
		}
	}
	if runID == "" {
		t.Fatalf("no Run ID found in check output:\n%s", checkText)
	}

	inspRes := callTool(t, cs, "py_inspect", map[string]any{
		"run_id": runID,
		"symbol": "tests.test_api::test_login",
	})
	inspText := resultText(inspRes)
	if inspRes.IsError {
		t.Fatalf("unexpected error from py_inspect: %s", inspText)
	}
	if !strings.Contains(inspText, "AssertionError: bad status") {
		t.Errorf("expected failure message, got:\n%s", inspText)
	}

	// Module scope returns the same diagnostic.
	modRes := callTool(t, cs, "py_inspect", map[string]any{
		"run_id": runID,
		"symbol": "tests.test_api",
	})
	if strings.Contains(resultText(modRes), "No diagnostics") {
		t.Errorf("expected diagnostics at module scope, got:\n%s", resultText(modRes))
	}
}
