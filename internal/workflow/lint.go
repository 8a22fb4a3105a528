package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// LintSummary holds parsed pylint results.
type LintSummary struct {
	Issues []LintIssue
}

// LintIssue holds a single pylint finding.
type LintIssue struct {
	Module  string // dotted module path reported by pylint
	File    string
	Line    int
	Column  int
	Code    string // message id, e.g. C0114
	Symbol  string // symbolic name, e.g. missing-module-docstring
	Message string
}

func (s *LintSummary) String() string {
	var b strings.Builder

	if len(s.Issues) == 0 {
		fmt.Fprintln(&b, "Status: OK")
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "No lint issues found.")
	} else {
		fmt.Fprintf(&b, "Status: %d issues found\n", len(s.Issues))
		fmt.Fprintln(&b)
		for _, issue := range s.Issues {
			fmt.Fprintf(&b, "%s:%d:%d (%s %s): %s\n",
				issue.File, issue.Line, issue.Column, issue.Code, issue.Symbol, issue.Message)
		}
	}
	return b.String()
}

func (e *Engine) runLint(ctx context.Context, targets []string) (*LintSummary, error) {
	argv := e.moduleArgv("pylint", "--output-format=json")
	if e.Config.Lint.RcFile != "" {
		argv = append(argv, "--rcfile", e.Config.Lint.RcFile)
	}
	argv = append(argv, e.Config.Lint.Args...)
	argv = append(argv, e.ResolveTargets(targets)...)

	result, err := e.runTool(ctx, "pylint", argv)
	if err != nil {
		return nil, err
	}

	// pylint's exit code is a bitmask of issue categories; usage errors
	// set bit 32 and produce no JSON.
	if result.ExitCode >= 32 {
		return nil, fmt.Errorf("pylint failed (exit %d): %s",
			result.ExitCode, truncateLines(result.Stderr, maxFailureLines))
	}

	return parsePylintOutput(result.Stdout), nil
}

// pylintIssue is a single entry in pylint's JSON output array.
type pylintIssue struct {
	Type      string `json:"type"`
	Module    string `json:"module"`
	Path      string `json:"path"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	MessageID string `json:"message-id"`
	Symbol    string `json:"symbol"`
	Message   string `json:"message"`
}

func parsePylintOutput(stdout string) *LintSummary {
	s := &LintSummary{}

	var issues []pylintIssue
	if err := json.Unmarshal([]byte(stdout), &issues); err != nil {
		return s
	}

	for _, issue := range issues {
		s.Issues = append(s.Issues, LintIssue{
			Module:  issue.Module,
			File:    issue.Path,
			Line:    issue.Line,
			Column:  issue.Column,
			Code:    issue.MessageID,
			Symbol:  issue.Symbol,
			Message: issue.Message,
		})
	}

	return s
}
