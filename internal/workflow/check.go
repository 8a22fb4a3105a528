package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/deixis/proctor/internal/report"
	"github.com/google/uuid"
)

// CheckResult holds the full outcome of a check run.
type CheckResult struct {
	RunResult *report.RunResult
	Steps     []StepResult
	FailedIdx int // -1 if all passed; -2 if format issues stopped the run
}

// StepResult holds the outcome of a single check step.
type StepResult struct {
	Name   string
	Status string // pass, fail, skipped, unavailable
	Detail string // extra info (e.g. "pylint not installed")
	Output string // summary from the underlying tool (only on failure)
}

// Check runs the full check pipeline: optional fix phase, then
// configured check steps (test, lint, typecheck) in sequence,
// stopping on first failure.
func (e *Engine) Check(ctx context.Context, targets []string, fix bool) (*CheckResult, error) {
	runID := uuid.New().String()
	tgts := e.ResolveTargets(targets)

	rr := &report.RunResult{ID: runID, Kind: report.Check}

	// --- Fix phase ---
	fixRes, _ := e.RunFixPhase(ctx, fix)
	if fixRes != nil {
		rr.AutoFixes = fixRes.AutoFixes
		rr.FormatIssues = fixRes.FormatIssues
	}

	// If fix=false and there are format issues, treat as failure.
	if !fix && len(rr.FormatIssues) > 0 {
		return &CheckResult{
			RunResult: rr,
			FailedIdx: -2, // sentinel: format failure before steps ran
		}, nil
	}

	// --- Check phase ---
	steps := e.Config.CheckSteps()
	results := make([]StepResult, len(steps))
	for i, step := range steps {
		results[i] = StepResult{Name: step, Status: "skipped"}
	}

	failedIdx := -1
	for i, step := range steps {
		switch step {
		case "test":
			summary, err := e.runTest(ctx, tgts)
			if err != nil {
				results[i] = stepFailure(step, err)
				failedIdx = i
			} else if summary.Status == "FAIL" {
				results[i] = StepResult{Name: step, Status: "fail", Output: summary.String()}
				failedIdx = i
				if len(summary.CollectErrors) > 0 {
					rr.CollectError = summary.CollectErrors[0].File + ": " + summary.CollectErrors[0].Output
				}
				for _, f := range summary.Errors {
					rr.TestFailures = append(rr.TestFailures, report.TestFailure{
						Module:  report.ModuleFromFile(f.File),
						Test:    f.Test,
						File:    f.File,
						Message: f.Message,
					})
				}
			} else {
				results[i] = StepResult{Name: step, Status: "pass"}
			}

		case "lint":
			summary, err := e.runLint(ctx, tgts)
			if err != nil {
				results[i] = stepFailure(step, err)
				failedIdx = i
			} else if len(summary.Issues) > 0 {
				results[i] = StepResult{Name: step, Status: "fail", Output: summary.String()}
				failedIdx = i
				for _, issue := range summary.Issues {
					rr.LintIssues = append(rr.LintIssues, report.LintIssue{
						Module:  issue.Module,
						File:    issue.File,
						Line:    issue.Line,
						Col:     issue.Column,
						Code:    issue.Code,
						Symbol:  issue.Symbol,
						Message: issue.Message,
					})
				}
			} else {
				results[i] = StepResult{Name: step, Status: "pass"}
			}

		case "typecheck":
			summary, err := e.runTypecheck(ctx, tgts)
			if err != nil {
				results[i] = stepFailure(step, err)
				failedIdx = i
			} else if summary.ErrorCount() > 0 {
				results[i] = StepResult{Name: step, Status: "fail", Output: summary.String()}
				failedIdx = i
				rr.TypeIssues = reportTypeIssues(summary.Issues)
			} else {
				results[i] = StepResult{Name: step, Status: "pass"}
			}

		default:
			results[i] = StepResult{Name: step, Status: "fail", Output: fmt.Sprintf("unknown step: %s", step)}
			failedIdx = i
		}

		if failedIdx >= 0 {
			break
		}
	}

	return &CheckResult{
		RunResult: rr,
		Steps:     results,
		FailedIdx: failedIdx,
	}, nil
}

// stepFailure folds a step error into a StepResult, distinguishing
// missing tools from genuine failures.
func stepFailure(step string, err error) StepResult {
	var unavail ErrToolUnavailable
	if errors.As(err, &unavail) {
		return StepResult{Name: step, Status: "unavailable", Detail: err.Error()}
	}
	return StepResult{Name: step, Status: "fail", Output: err.Error()}
}

// FirstLine returns the first non-empty line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// FormatFailureSymbols builds module-qualified symbol references for failures.
func FormatFailureSymbols(rr *report.RunResult) []string {
	var out []string

	for _, f := range rr.TestFailures {
		sym := f.Module + "::" + f.Test
		msg := f.Message
		if msg == "" {
			msg = "test failed"
		}
		out = append(out, fmt.Sprintf("%s: %s", sym, msg))
	}

	lintMods := make(map[string]int)
	var lintOrder []string
	for _, li := range rr.LintIssues {
		mod := li.Module
		if mod == "" {
			mod = report.ModuleFromFile(li.File)
		}
		if lintMods[mod] == 0 {
			lintOrder = append(lintOrder, mod)
		}
		lintMods[mod]++
	}
	for _, mod := range lintOrder {
		out = append(out, fmt.Sprintf("%s: %d lint issues", mod, lintMods[mod]))
	}

	typeMods := make(map[string]int)
	var typeOrder []string
	for _, ti := range rr.TypeIssues {
		if typeMods[ti.Module] == 0 {
			typeOrder = append(typeOrder, ti.Module)
		}
		typeMods[ti.Module]++
	}
	for _, mod := range typeOrder {
		out = append(out, fmt.Sprintf("%s: %d type errors", mod, typeMods[mod]))
	}

	return out
}
