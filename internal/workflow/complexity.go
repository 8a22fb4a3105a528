package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/deixis/proctor/internal/report"
)

func (e *Engine) runComplexity(ctx context.Context, targets []string) ([]report.ComplexityEntry, error) {
	argv := e.moduleArgv("radon", "cc", "-j", "-n", e.Config.MinComplexityRank())
	argv = append(argv, e.Config.Audit.Complexity.Args...)
	argv = append(argv, targets...)

	result, err := e.runTool(ctx, "radon", argv)
	if err != nil {
		return nil, err
	}

	return parseRadonOutput(result.Stdout), nil
}

// radonBlock is one analysed block in radon's JSON output.
type radonBlock struct {
	Type       string `json:"type"` // function, method, class
	Name       string `json:"name"`
	ClassName  string `json:"classname"`
	Line       int    `json:"lineno"`
	Rank       string `json:"rank"`
	Complexity int    `json:"complexity"`
}

// parseRadonOutput parses radon cc -j output: a map of file path to a
// block list. Files that failed to parse map to an error object instead,
// which is skipped.
func parseRadonOutput(stdout string) []report.ComplexityEntry {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stdout), &raw); err != nil {
		return nil
	}

	var entries []report.ComplexityEntry
	for file, blob := range raw {
		var blocks []radonBlock
		if err := json.Unmarshal(blob, &blocks); err != nil {
			continue
		}
		for _, blk := range blocks {
			name := blk.Name
			if blk.ClassName != "" {
				name = blk.ClassName + "." + blk.Name
			}
			entries = append(entries, report.ComplexityEntry{
				Module:     report.ModuleFromFile(file),
				File:       file,
				Function:   name,
				Line:       blk.Line,
				Rank:       blk.Rank,
				Complexity: blk.Complexity,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].File != entries[j].File {
			return entries[i].File < entries[j].File
		}
		return entries[i].Line < entries[j].Line
	})

	return entries
}

// FormatComplexitySummary formats complexity entries for display.
func FormatComplexitySummary(entries []report.ComplexityEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  Blocks over threshold: %d\n", len(entries))

	if len(entries) == 0 {
		return b.String()
	}

	highest := entries[0]
	for _, e := range entries[1:] {
		if e.Complexity > highest.Complexity {
			highest = e
		}
	}
	fmt.Fprintf(&b, "  Highest: %s.%s (%d, rank %s)\n",
		highest.Module, highest.Function, highest.Complexity, highest.Rank)

	ranks := make(map[string]int)
	for _, e := range entries {
		ranks[e.Rank]++
	}
	fmt.Fprint(&b, "  By rank:")
	first := true
	for _, rank := range []string{"C", "D", "E", "F"} {
		if ranks[rank] == 0 {
			continue
		}
		if !first {
			fmt.Fprint(&b, ",")
		}
		fmt.Fprintf(&b, " %s=%d", rank, ranks[rank])
		first = false
	}
	fmt.Fprintln(&b)

	return b.String()
}
