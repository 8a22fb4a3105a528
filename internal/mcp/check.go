package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/proctor/internal/report"
	"github.com/deixis/proctor/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type checkParams struct {
	Targets []string `json:"targets,omitempty" jsonschema:"Dotted module paths (e.g. pkg.api), relative paths, or absolute paths of targets to check. Defaults to the whole workspace."`
	Fix     *bool    `json:"fix,omitempty" jsonschema:"Run auto-format phase (black) before checks. Default: true."`
}

func (h *handler) checkHandler(ctx context.Context, req *mcp.CallToolRequest, params checkParams) (*mcp.CallToolResult, any, error) {
	// Default fix=true when nil (MCP default).
	fix := true
	if params.Fix != nil {
		fix = *params.Fix
	}

	result, err := h.engine.Check(ctx, params.Targets, fix)
	if err != nil {
		return errorResult(fmt.Sprintf("check failed: %v", err))
	}

	// Save results for py_inspect.
	_ = h.store.Save(result.RunResult)

	// Format failure before steps ran (format issues with fix=false).
	if result.FailedIdx == -2 {
		return textResult(formatCheckWithFormatFailure(result.RunResult))
	}

	return textResult(formatCheck(result.RunResult.ID, result.RunResult, result.Steps, result.FailedIdx))
}

func formatCheck(runID string, rr *report.RunResult, results []workflow.StepResult, failedIdx int) string {
	var b strings.Builder

	allPassed := failedIdx < 0
	if allPassed {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintln(&b)

	if rr.AutoFixes > 0 {
		fmt.Fprintf(&b, "Auto-formatted: %d files\n", rr.AutoFixes)
		fmt.Fprintln(&b)
	}

	fmt.Fprintln(&b, "Steps:")
	for _, r := range results {
		if r.Status == "unavailable" {
			fmt.Fprintf(&b, "  %s: unavailable (%s)\n", r.Name, workflow.FirstLine(r.Detail))
		} else {
			fmt.Fprintf(&b, "  %s: %s\n", r.Name, r.Status)
		}
	}
	fmt.Fprintln(&b)

	if !allPassed {
		failed := results[failedIdx]

		failures := workflow.FormatFailureSymbols(rr)
		if len(failures) > 0 {
			fmt.Fprintln(&b, "Failures:")
			for _, f := range failures {
				fmt.Fprintf(&b, "  %s\n", f)
			}
			fmt.Fprintln(&b)
		} else if failed.Output != "" {
			fmt.Fprintf(&b, "Failed step: %s\n", failed.Name)
			fmt.Fprintln(&b)
			fmt.Fprintln(&b, failed.Output)
			fmt.Fprintln(&b)
		}

		if failed.Status == "unavailable" {
			fmt.Fprintf(&b, "Action: %s\n", failed.Detail)
		} else {
			fmt.Fprintf(&b, "Inspect with py_inspect(run_id=%q, symbol=\"<module or module::symbol>\").\n", runID)
		}
	} else {
		fmt.Fprintln(&b, "All check steps passed.")
	}

	return b.String()
}

func formatCheckWithFormatFailure(rr *report.RunResult) string {
	var b strings.Builder

	fmt.Fprintln(&b, "Status: FAIL")
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintln(&b)
	fmt.Fprintf(&b, "Formatting issues (%d files):\n", len(rr.FormatIssues))
	for _, f := range rr.FormatIssues {
		fmt.Fprintf(&b, "  %s\n", f.File)
	}
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, "Action: run black to format these files, or re-run py_check with fix=true.")

	return b.String()
}
