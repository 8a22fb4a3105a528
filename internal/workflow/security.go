package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/proctor/internal/report"
)

func (e *Engine) runSecurity(ctx context.Context, targets []string) ([]report.SecurityFinding, error) {
	argv := e.moduleArgv("bandit", "-f", "json", "-q", "-r")
	argv = append(argv, e.Config.Audit.Security.Args...)
	argv = append(argv, targets...)

	result, err := e.runTool(ctx, "bandit", argv)
	if err != nil {
		return nil, err
	}

	return parseBanditOutput(result.Stdout), nil
}

// banditOutput is the top-level JSON output from bandit.
type banditOutput struct {
	Results []banditResult `json:"results"`
}

type banditResult struct {
	Filename   string `json:"filename"`
	LineNumber int    `json:"line_number"`
	TestID     string `json:"test_id"`
	Severity   string `json:"issue_severity"`
	Confidence string `json:"issue_confidence"`
	Text       string `json:"issue_text"`
}

func parseBanditOutput(stdout string) []report.SecurityFinding {
	var out banditOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return nil
	}

	var findings []report.SecurityFinding
	for _, r := range out.Results {
		findings = append(findings, report.SecurityFinding{
			Module:     report.ModuleFromFile(r.Filename),
			File:       r.Filename,
			Line:       r.LineNumber,
			TestID:     r.TestID,
			Severity:   r.Severity,
			Confidence: r.Confidence,
			Message:    r.Text,
		})
	}
	return findings
}

// FormatSecuritySummary formats bandit findings for display.
func FormatSecuritySummary(findings []report.SecurityFinding) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Findings: %d\n", len(findings))

	bySeverity := make(map[string]int)
	for _, f := range findings {
		bySeverity[f.Severity]++
	}
	for _, sev := range []string{"HIGH", "MEDIUM", "LOW"} {
		if bySeverity[sev] > 0 {
			fmt.Fprintf(&b, "    %s: %d\n", sev, bySeverity[sev])
		}
	}

	limit := 10
	for i, f := range findings {
		if i >= limit {
			fmt.Fprintf(&b, "    ... and %d more\n", len(findings)-limit)
			break
		}
		fmt.Fprintf(&b, "    %s:%d [%s] %s\n", f.File, f.Line, f.TestID, f.Message)
	}

	return b.String()
}
