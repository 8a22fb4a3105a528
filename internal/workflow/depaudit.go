package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/deixis/proctor/internal/report"
)

func (e *Engine) runDepAudit(ctx context.Context) ([]report.VulnDep, error) {
	argv := e.moduleArgv("pip_audit", "-f", "json", "--progress-spinner", "off")
	argv = append(argv, e.Config.Audit.DepAudit.Args...)

	result, err := e.runTool(ctx, "pip_audit", argv)
	if err != nil {
		return nil, err
	}
	// pip-audit exits 1 when vulnerabilities are found; anything else
	// non-zero is a genuine failure.
	if result.ExitCode > 1 {
		return nil, fmt.Errorf("pip-audit failed (exit %d): %s",
			result.ExitCode, truncateLines(result.Stderr, maxFailureLines))
	}

	return parsePipAuditOutput(result.Stdout), nil
}

// pipAuditOutput is the top-level JSON output from pip-audit.
type pipAuditOutput struct {
	Dependencies []pipAuditDependency `json:"dependencies"`
}

type pipAuditDependency struct {
	Name    string         `json:"name"`
	Version string         `json:"version"`
	Vulns   []pipAuditVuln `json:"vulns"`
}

type pipAuditVuln struct {
	ID          string   `json:"id"`
	FixVersions []string `json:"fix_versions"`
	Description string   `json:"description"`
}

func parsePipAuditOutput(stdout string) []report.VulnDep {
	var out pipAuditOutput
	if err := json.Unmarshal([]byte(stdout), &out); err != nil {
		return nil
	}

	var vulns []report.VulnDep
	for _, dep := range out.Dependencies {
		for _, v := range dep.Vulns {
			vulns = append(vulns, report.VulnDep{
				Name:        dep.Name,
				Version:     dep.Version,
				ID:          v.ID,
				FixVersions: v.FixVersions,
				Description: v.Description,
			})
		}
	}
	return vulns
}

// FormatDepAuditSummary formats vulnerable dependency results for display.
func FormatDepAuditSummary(vulns []report.VulnDep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Vulnerable dependencies: %d\n", len(vulns))

	for _, v := range vulns {
		fmt.Fprintf(&b, "    %s %s: %s", v.Name, v.Version, v.ID)
		if len(v.FixVersions) > 0 {
			fmt.Fprintf(&b, " [fixed in %s]", strings.Join(v.FixVersions, ", "))
		}
		fmt.Fprintln(&b)
	}

	return b.String()
}
