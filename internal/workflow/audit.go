package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/deixis/proctor/internal/report"
	"github.com/google/uuid"
)

// AuditResult holds the full outcome of an audit run.
type AuditResult struct {
	RunResult *report.RunResult
	Steps     []AuditStepResult
}

// AuditStepResult holds the outcome of a single audit step.
type AuditStepResult struct {
	Name   string
	Status string // done, error, unavailable, skipped
	Detail string // error or unavailability message
	Output string // formatted summary (only when done)
}

// Audit runs all configured audit steps (coverage, complexity, security,
// depaudit) without stopping on failure.
func (e *Engine) Audit(ctx context.Context, targets []string) (*AuditResult, error) {
	runID := uuid.New().String()
	tgts := e.ResolveTargets(targets)

	rr := &report.RunResult{ID: runID, Kind: report.Audit}

	steps := e.Config.AuditSteps()
	results := make([]AuditStepResult, len(steps))
	for i, step := range steps {
		results[i] = AuditStepResult{Name: step, Status: "skipped"}
	}

	// Run all steps, no fail-fast.
	for i, step := range steps {
		switch step {
		case "coverage":
			entries, err := e.runCoverage(ctx, tgts)
			if err != nil {
				results[i] = auditFailure(step, err)
			} else {
				rr.Coverage = entries
				results[i] = AuditStepResult{Name: step, Status: "done", Output: FormatCoverageSummary(entries)}
			}

		case "complexity":
			entries, err := e.runComplexity(ctx, tgts)
			if err != nil {
				results[i] = auditFailure(step, err)
			} else {
				rr.Complexity = entries
				results[i] = AuditStepResult{Name: step, Status: "done", Output: FormatComplexitySummary(entries)}
			}

		case "security":
			findings, err := e.runSecurity(ctx, tgts)
			if err != nil {
				results[i] = auditFailure(step, err)
			} else {
				rr.Security = findings
				results[i] = AuditStepResult{Name: step, Status: "done", Output: FormatSecuritySummary(findings)}
			}

		case "depaudit":
			vulns, err := e.runDepAudit(ctx)
			if err != nil {
				results[i] = auditFailure(step, err)
			} else {
				rr.VulnDeps = vulns
				results[i] = AuditStepResult{Name: step, Status: "done", Output: FormatDepAuditSummary(vulns)}
			}

		default:
			results[i] = AuditStepResult{Name: step, Status: "error", Detail: fmt.Sprintf("unknown step: %s", step)}
		}
	}

	return &AuditResult{
		RunResult: rr,
		Steps:     results,
	}, nil
}

// auditFailure folds a step error into an AuditStepResult.
func auditFailure(step string, err error) AuditStepResult {
	var unavail ErrToolUnavailable
	if errors.As(err, &unavail) {
		return AuditStepResult{Name: step, Status: "unavailable", Detail: err.Error()}
	}
	return AuditStepResult{Name: step, Status: "error", Detail: err.Error()}
}
