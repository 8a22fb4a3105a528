package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/proctor/internal/report"
)

// TypecheckSummary holds parsed mypy results.
type TypecheckSummary struct {
	Issues []TypeIssue
}

// TypeIssue holds a single mypy diagnostic.
type TypeIssue struct {
	File     string
	Line     int
	Column   int
	Severity string // error or note
	Code     string // e.g. arg-type
	Message  string
}

func (s *TypecheckSummary) String() string {
	var b strings.Builder

	errors := 0
	for _, issue := range s.Issues {
		if issue.Severity == "error" {
			errors++
		}
	}

	if errors == 0 {
		fmt.Fprintln(&b, "Status: OK")
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "No type errors found.")
		return b.String()
	}

	fmt.Fprintf(&b, "Status: %d errors found\n", errors)
	fmt.Fprintln(&b)
	for _, issue := range s.Issues {
		fmt.Fprintf(&b, "%s:%d:%d: %s: %s", issue.File, issue.Line, issue.Column, issue.Severity, issue.Message)
		if issue.Code != "" {
			fmt.Fprintf(&b, " [%s]", issue.Code)
		}
		fmt.Fprintln(&b)
	}
	return b.String()
}

// ErrorCount returns the number of error-severity issues.
func (s *TypecheckSummary) ErrorCount() int {
	n := 0
	for _, issue := range s.Issues {
		if issue.Severity == "error" {
			n++
		}
	}
	return n
}

func (e *Engine) runTypecheck(ctx context.Context, targets []string) (*TypecheckSummary, error) {
	argv := e.moduleArgv("mypy", "--output=json", "--no-error-summary")
	if e.Config.Typecheck.ConfigFile != "" {
		argv = append(argv, "--config-file", e.Config.Typecheck.ConfigFile)
	}
	argv = append(argv, e.Config.Typecheck.Args...)
	argv = append(argv, e.ResolveTargets(targets)...)

	result, err := e.runTool(ctx, "mypy", argv)
	if err != nil {
		return nil, err
	}

	// Exit 2 is a usage or internal error; 0 and 1 both carry diagnostics.
	if result.ExitCode >= 2 {
		return nil, fmt.Errorf("mypy failed (exit %d): %s",
			result.ExitCode, truncateLines(result.Stdout+result.Stderr, maxFailureLines))
	}

	return parseMypyOutput(result.Stdout), nil
}

// mypyDiagnostic is one line of mypy --output=json.
type mypyDiagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Code     string `json:"code"`
}

func parseMypyOutput(stdout string) *TypecheckSummary {
	s := &TypecheckSummary{}

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var d mypyDiagnostic
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			continue
		}
		s.Issues = append(s.Issues, TypeIssue{
			File:     d.File,
			Line:     d.Line,
			Column:   d.Column,
			Severity: d.Severity,
			Code:     d.Code,
			Message:  d.Message,
		})
	}

	return s
}

// reportTypeIssues converts parsed issues into report entries.
func reportTypeIssues(issues []TypeIssue) []report.TypeIssue {
	var out []report.TypeIssue
	for _, issue := range issues {
		out = append(out, report.TypeIssue{
			Module:   report.ModuleFromFile(issue.File),
			File:     issue.File,
			Line:     issue.Line,
			Col:      issue.Column,
			Severity: issue.Severity,
			Code:     issue.Code,
			Message:  issue.Message,
		})
	}
	return out
}
