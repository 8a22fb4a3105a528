package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/deixis/proctor/internal/report"
)

// FixResult holds the outcome of the fix phase.
type FixResult struct {
	AutoFixes    int
	FormatIssues []report.FormatIssue // only populated when fix=false
}

// RunFixPhase runs black over the workspace.
// When fix is true, it reformats files in-place and counts the changes.
// When fix is false, black runs in check mode and reports unformatted files.
func (e *Engine) RunFixPhase(ctx context.Context, fix bool) (*FixResult, error) {
	result := &FixResult{}

	if fix {
		result.AutoFixes = e.runBlackFix(ctx)
	} else {
		result.FormatIssues = e.runBlackCheck(ctx)
	}

	return result, nil
}

// reformattedLine matches black's in-place report: "reformatted src/api.py".
var reformattedLine = regexp.MustCompile(`^reformatted (.+)$`)

// wouldReformatLine matches check mode: "would reformat src/api.py".
var wouldReformatLine = regexp.MustCompile(`^would reformat (.+)$`)

// runBlackFix runs black in-place and returns the number of files changed.
func (e *Engine) runBlackFix(ctx context.Context) int {
	argv := e.moduleArgv("black")
	argv = append(argv, e.Config.Format.Args...)
	argv = append(argv, ".")

	res := e.Runner.Run(ctx, argv, "")
	if res.Failed() || toolMissing(res, "black") != nil {
		return 0 // black not available, skip silently in fix phase
	}

	count := 0
	// black reports per-file changes on stderr.
	for _, line := range strings.Split(res.Stderr, "\n") {
		if reformattedLine.MatchString(strings.TrimSpace(line)) {
			count++
		}
	}
	return count
}

// runBlackCheck runs black --check and returns unformatted files as FormatIssues.
func (e *Engine) runBlackCheck(ctx context.Context) []report.FormatIssue {
	argv := e.moduleArgv("black", "--check")
	argv = append(argv, e.Config.Format.Args...)
	argv = append(argv, ".")

	res := e.Runner.Run(ctx, argv, "")
	if res.Failed() || toolMissing(res, "black") != nil {
		return nil
	}

	var issues []report.FormatIssue
	for _, line := range strings.Split(res.Stderr, "\n") {
		m := wouldReformatLine.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			continue
		}
		file := m[1]
		issues = append(issues, report.FormatIssue{
			Module:  report.ModuleFromFile(file),
			File:    file,
			Message: fmt.Sprintf("file not formatted: %s", file),
		})
	}
	return issues
}
