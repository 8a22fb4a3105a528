// Package workflow provides the core execution engine for proctor's
// check and audit pipelines. It is consumed by both the MCP server
// and the CLI commands.
package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/deixis/proctor/internal/config"
	"github.com/deixis/proctor/internal/runner"
)

// CommandRunner executes commands within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, argv []string, cwd string) *runner.Result
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config      *config.Config
	Runner      CommandRunner
	Workspace   string // cwd; commands run from here
	ProjectRoot string // project root, used for absolute-path resolution
	Interpreter string // Python interpreter used for all tool invocations
}

// ResolveTargets normalises target arguments so that tools work
// identically regardless of how targets are specified. It accepts
// three input styles:
//
//   - Dotted module paths (e.g. "pkg.api"): passed through.
//   - Absolute directory or file paths: converted to a project-root
//     relative path.
//   - Relative paths (e.g. "src/pkg"): passed through unchanged.
//
// When the list is empty it defaults to "." (the whole workspace).
func (e *Engine) ResolveTargets(targets []string) []string {
	if len(targets) == 0 {
		return []string{"."}
	}

	resolved := make([]string, 0, len(targets))
	for _, t := range targets {
		if filepath.IsAbs(t) {
			base := e.ProjectRoot
			if base == "" {
				base = e.Workspace
			}
			rel, err := filepath.Rel(base, t)
			if err != nil || strings.HasPrefix(rel, "..") {
				// Outside project root, skip silently.
				continue
			}
			resolved = append(resolved, rel)
		} else {
			// Module path or relative path, pass through.
			resolved = append(resolved, t)
		}
	}

	if len(resolved) == 0 {
		return []string{"."}
	}
	return resolved
}

// moduleArgv builds the argv for invoking a Python tool as a module.
// Everything runs through the configured interpreter so that tools come
// from the project's own environment, and so the execution layer applies
// interpreter isolation.
func (e *Engine) moduleArgv(tool string, args ...string) []string {
	interp := e.Interpreter
	if interp == "" {
		interp = "python3"
	}
	argv := []string{interp, "-m", tool}
	return append(argv, args...)
}

// toolInfo holds install metadata for a known tool.
type toolInfo struct {
	// Package is the PyPI distribution name for pip install.
	Package string
	// Extra is an additional installation note.
	Extra string
}

// knownTools maps module names to their install metadata.
var knownTools = map[string]toolInfo{
	"pytest":    {Package: "pytest"},
	"pylint":    {Package: "pylint"},
	"mypy":      {Package: "mypy"},
	"black":     {Package: "black"},
	"radon":     {Package: "radon"},
	"bandit":    {Package: "bandit"},
	"pip_audit": {Package: "pip-audit"},
	"pytest_cov": {
		Package: "pytest-cov",
		Extra:   "coverage collection needs both pytest and pytest-cov",
	},
}

// ErrToolUnavailable is returned when a required tool is not installed in
// the project's Python environment. It includes actionable install
// instructions when the tool is known.
type ErrToolUnavailable struct {
	Name string
	Info *toolInfo
}

func NewErrToolUnavailable(name string) ErrToolUnavailable {
	e := ErrToolUnavailable{Name: name}
	if info, ok := knownTools[name]; ok {
		e.Info = &info
	}
	return e
}

func (e ErrToolUnavailable) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s is required but not installed in the project environment.", e.Name)

	if e.Info == nil {
		return b.String()
	}

	fmt.Fprintf(&b, "\nInstall: pip install %s", e.Info.Package)
	if e.Info.Extra != "" {
		fmt.Fprintf(&b, "\nNote: %s", e.Info.Extra)
	}

	return b.String()
}

// toolMissing inspects a module invocation result and returns an
// ErrToolUnavailable when the interpreter could not import the module.
func toolMissing(res *runner.Result, tool string) error {
	if res.ExitCode != 0 && strings.Contains(res.Stderr, "No module named") {
		return NewErrToolUnavailable(tool)
	}
	return nil
}

// runTool executes a tool module invocation and folds runner-level
// failures and missing modules into errors.
func (e *Engine) runTool(ctx context.Context, tool string, argv []string) (*runner.Result, error) {
	res := e.Runner.Run(ctx, argv, "")
	if res.Failed() {
		return nil, fmt.Errorf("executing %s: %s", tool, res.ExecError)
	}
	if err := toolMissing(res, tool); err != nil {
		return nil, err
	}
	return res, nil
}
