package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type workspaceParams struct{}

func (h *handler) workspaceHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ workspaceParams) (*sdkmcp.CallToolResult, any, error) {
	var b strings.Builder

	interp := h.engine.Interpreter
	if interp == "" {
		interp = "python3"
	}

	// Interpreter version via `python --version`.
	verResult := h.engine.Runner.Run(ctx, []string{interp, "--version"}, "")
	if verResult.Failed() {
		return errorResult(fmt.Sprintf("Failed to query interpreter %s: %s", interp, verResult.ExecError))
	}
	version := strings.TrimSpace(verResult.Stdout + verResult.Stderr)

	fmt.Fprintf(&b, "Interpreter: %s\n", interp)
	if version != "" {
		fmt.Fprintf(&b, "Version: %s\n", version)
	}
	fmt.Fprintf(&b, "Project root: %s\n", h.engine.ProjectRoot)
	fmt.Fprintln(&b)

	fmt.Fprintf(&b, "Check steps: %s\n", strings.Join(h.engine.Config.CheckSteps(), ", "))
	fmt.Fprintf(&b, "Audit steps: %s\n", strings.Join(h.engine.Config.AuditSteps(), ", "))
	fmt.Fprintf(&b, "Timeout: %s\n", h.engine.Config.Timeout())
	fmt.Fprintln(&b)

	pkgs := topLevelPackages(h.engine.ProjectRoot)
	if len(pkgs) == 0 {
		fmt.Fprintln(&b, "Packages: (none found)")
	} else {
		fmt.Fprintf(&b, "Packages (%d):\n", len(pkgs))
		for _, pkg := range pkgs {
			fmt.Fprintf(&b, "  %s\n", pkg)
		}
	}

	return textResult(b.String())
}

// topLevelPackages lists importable packages near the project root: any
// directory holding an __init__.py, looked up at the root and one level
// under src-layout style directories.
func topLevelPackages(root string) []string {
	var pkgs []string
	seen := make(map[string]bool)

	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			pkgs = append(pkgs, name)
		}
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		dir := filepath.Join(root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, "__init__.py")); err == nil {
			add(e.Name())
			continue
		}
		// src layout: src/<pkg>/__init__.py
		if e.Name() == "src" {
			sub, err := os.ReadDir(dir)
			if err != nil {
				continue
			}
			for _, s := range sub {
				if !s.IsDir() {
					continue
				}
				if _, err := os.Stat(filepath.Join(dir, s.Name(), "__init__.py")); err == nil {
					add(s.Name())
				}
			}
		}
	}
	return pkgs
}
