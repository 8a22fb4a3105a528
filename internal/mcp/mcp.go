// Package mcp provides the Proctor MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"time"

	"github.com/deixis/proctor"
	"github.com/deixis/proctor/internal/config"
	"github.com/deixis/proctor/internal/report"
	"github.com/deixis/proctor/internal/runner"
	"github.com/deixis/proctor/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	engine *workflow.Engine
	runner *runner.Runner // retained for updateWorkspaceFromRoots
	store  report.Store
}

// NewServer creates an MCP server with all Proctor tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, workspace string) *mcp.Server {
	h := &handler{
		engine: &workflow.Engine{
			Config:      cfg,
			Runner:      r,
			Workspace:   workspace,
			ProjectRoot: workspace, // MCP defaults to workspace; updated via roots
			Interpreter: cfg.Interpreter(workspace),
		},
		runner: r,
		store:  store,
	}
	h.runner.Interpreter = h.engine.Interpreter
	return newServer(h)
}

func newServer(h *handler) *mcp.Server {
	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "proctor", Version: proctor.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name:        "py_workspace",
		Description: "Summarise the Python workspace: interpreter, project root, and top-level packages.",
	}, h.workspaceHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "py_check",
		Description: `Run the full check pipeline (auto-format, test, lint, typecheck) and stop on first failure.

Use this after making code changes. Runs black first (unless fix=false),
then pytest, pylint, and mypy in sequence. Results are stored for drill-down via py_inspect.`,
	}, h.checkHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "py_audit",
		Description: `Run audit checks (coverage, complexity, security, depaudit) and return factual results.

Use this to assess code health and security. Runs all configured checks (does not stop on failure).
Results are stored for drill-down via py_inspect. Returns raw facts without judgments.`,
	}, h.auditHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "py_inspect",
		Description: `Drill into results from a py_check or py_audit run.

Use the run_id and a module-qualified symbol from the tool output.
Symbol can be a dotted module path (e.g. pkg.api) for all diagnostics in a module,
or module::symbol (e.g. tests.test_api::test_login) for a specific test or function.`,
	}, h.inspectHandler)

	return s
}

// updateWorkspaceFromRoots queries the client for MCP roots and updates the
// handler's engine, runner, and config if a valid root is returned.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil {
		return
	}
	if len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}
	workspace := u.Path

	loaded, err := config.Load(workspace)
	if err != nil {
		return
	}
	interp := loaded.Config.Interpreter(loaded.ProjectRoot)

	// Update runner.
	if h.runner != nil {
		h.runner.Workspace = workspace
		h.runner.Timeout = loaded.Config.Timeout()
		h.runner.MaxOutput = loaded.Config.MaxOutputBytes()
		h.runner.Interpreter = interp
	}

	// Update engine.
	h.engine.Config = loaded.Config
	h.engine.Workspace = workspace
	h.engine.ProjectRoot = loaded.ProjectRoot
	h.engine.Interpreter = interp
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
