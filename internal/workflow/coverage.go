package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/deixis/proctor/internal/report"
)

func (e *Engine) runCoverage(ctx context.Context, targets []string) ([]report.CoverageEntry, error) {
	// Create a temp file for the JSON coverage report.
	f, err := os.CreateTemp("", "proctor-cov-*.json")
	if err != nil {
		return nil, fmt.Errorf("creating coverage report file: %w", err)
	}
	reportFile := f.Name()
	_ = f.Close()
	defer func() { _ = os.Remove(reportFile) }()

	argv := e.moduleArgv("pytest", "-q", "-p", "no:cacheprovider", "--cov",
		"--cov-report=json:"+reportFile)
	argv = append(argv, e.Config.Audit.Coverage.Args...)
	argv = append(argv, targets...)

	result, err := e.runTool(ctx, "pytest", argv)
	if err != nil {
		return nil, err
	}
	// pytest exits 4 on unrecognised flags, which is what a missing
	// pytest-cov plugin looks like from the outside.
	if result.ExitCode == 4 && strings.Contains(result.Stderr, "--cov") {
		return nil, NewErrToolUnavailable("pytest_cov")
	}

	data, err := os.ReadFile(reportFile)
	if err != nil {
		return nil, fmt.Errorf("reading coverage report: %w", err)
	}

	return parseCoverageJSON(data)
}

// coverageJSON is the subset of coverage.py's JSON report that matters here.
type coverageJSON struct {
	Files map[string]struct {
		Summary struct {
			PercentCovered float64 `json:"percent_covered"`
			MissingLines   int     `json:"missing_lines"`
		} `json:"summary"`
	} `json:"files"`
}

func parseCoverageJSON(data []byte) ([]report.CoverageEntry, error) {
	var cov coverageJSON
	if err := json.Unmarshal(data, &cov); err != nil {
		return nil, fmt.Errorf("parsing coverage report: %w", err)
	}

	var entries []report.CoverageEntry
	for file, info := range cov.Files {
		entries = append(entries, report.CoverageEntry{
			Module:   report.ModuleFromFile(file),
			File:     file,
			Coverage: info.Summary.PercentCovered,
			Missing:  info.Summary.MissingLines,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].File < entries[j].File })

	return entries, nil
}

// CoverageSummary holds aggregated stats for output formatting.
type CoverageSummary struct {
	Files     int
	Total     float64
	Uncovered int
}

func SummariseCoverage(entries []report.CoverageEntry) CoverageSummary {
	var sum float64
	uncovered := 0
	for _, e := range entries {
		sum += e.Coverage
		if e.Coverage == 0 {
			uncovered++
		}
	}
	var avg float64
	if len(entries) > 0 {
		avg = sum / float64(len(entries))
	}
	return CoverageSummary{
		Files:     len(entries),
		Total:     avg,
		Uncovered: uncovered,
	}
}

// FormatCoverageSummary formats coverage entries for display.
func FormatCoverageSummary(entries []report.CoverageEntry) string {
	var b strings.Builder
	s := SummariseCoverage(entries)
	fmt.Fprintf(&b, "  Files: %d\n", s.Files)
	fmt.Fprintf(&b, "  Average file coverage: %.1f%%\n", s.Total)

	if s.Uncovered > 0 {
		fmt.Fprintf(&b, "  Uncovered files: %d\n", s.Uncovered)
		limit := 10
		shown := 0
		for _, e := range entries {
			if e.Coverage != 0 {
				continue
			}
			if shown >= limit {
				fmt.Fprintf(&b, "    ... and %d more\n", s.Uncovered-limit)
				break
			}
			fmt.Fprintf(&b, "    %s\n", e.File)
			shown++
		}
	}
	return b.String()
}
