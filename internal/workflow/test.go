package workflow

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// pytest exit codes with a defined meaning for the pipeline.
const (
	pytestExitTestsFailed = 1
	pytestExitInterrupted = 2
	pytestExitNoTests     = 5
)

// TestSummary holds parsed pytest results.
type TestSummary struct {
	Status        string // PASS or FAIL
	Total         int
	Passed        int
	Failed        int
	Skipped       int
	CollectErrors []CollectError
	Errors        []TestFailure
}

// CollectError holds a collection/import failure reported by pytest.
type CollectError struct {
	File   string
	Output string
}

// TestFailure holds a single failed test from pytest -q output.
type TestFailure struct {
	File    string // e.g. tests/test_api.py
	Test    string // e.g. test_login or TestAPI::test_login
	Message string
}

// maxFailureLines is the maximum number of output lines shown per failure.
const maxFailureLines = 20

func (s *TestSummary) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Status: %s\n", s.Status)
	fmt.Fprintln(&b)

	if s.Status == "PASS" {
		if s.Total == 0 {
			fmt.Fprintln(&b, "No tests collected.")
		} else {
			fmt.Fprintf(&b, "All %d tests passed", s.Total)
			if s.Skipped > 0 {
				fmt.Fprintf(&b, " (%d skipped)", s.Skipped)
			}
			fmt.Fprintln(&b, ".")
		}
		return b.String()
	}

	if len(s.CollectErrors) > 0 {
		fmt.Fprintln(&b, "Collection errors:")
		for _, ce := range s.CollectErrors {
			fmt.Fprintf(&b, "  %s:\n", ce.File)
			output := truncateLines(ce.Output, maxFailureLines)
			for _, line := range strings.Split(output, "\n") {
				fmt.Fprintf(&b, "    %s\n", line)
			}
		}
		fmt.Fprintln(&b)
	}

	if s.Failed > 0 {
		fmt.Fprintf(&b, "Failed %d of %d tests.\n", s.Failed, s.Total)
		fmt.Fprintln(&b)

		byFile := make(map[string][]TestFailure)
		var order []string
		for _, f := range s.Errors {
			if _, ok := byFile[f.File]; !ok {
				order = append(order, f.File)
			}
			byFile[f.File] = append(byFile[f.File], f)
		}
		for _, file := range order {
			failures := byFile[file]
			fmt.Fprintf(&b, "FAIL %s (%d failures):\n", file, len(failures))
			for _, f := range failures {
				fmt.Fprintf(&b, "  - %s\n", f.Test)
				if f.Message != "" {
					fmt.Fprintf(&b, "      %s\n", f.Message)
				}
			}
			fmt.Fprintln(&b)
		}
	}

	return b.String()
}

func (e *Engine) runTest(ctx context.Context, targets []string) (*TestSummary, error) {
	argv := e.moduleArgv("pytest", "-q", "-p", "no:cacheprovider")
	argv = append(argv, e.Config.Test.Args...)
	argv = append(argv, e.ResolveTargets(targets)...)

	result, err := e.runTool(ctx, "pytest", argv)
	if err != nil {
		return nil, err
	}

	summary := parsePytestOutput(result.Stdout)

	// Anything beyond "tests failed" without parseable failures means
	// pytest itself broke; surface the tail of its output.
	if result.ExitCode >= pytestExitInterrupted && result.ExitCode != pytestExitNoTests &&
		summary.Failed == 0 && len(summary.CollectErrors) == 0 {
		return nil, fmt.Errorf("pytest failed (exit %d): %s",
			result.ExitCode, truncateLines(result.Stdout+result.Stderr, maxFailureLines))
	}

	return summary, nil
}

// failedLine matches pytest -q failure lines:
//
//	FAILED tests/test_api.py::test_login - AssertionError: bad status
//	FAILED tests/test_api.py::TestAuth::test_logout
var failedLine = regexp.MustCompile(`^FAILED (\S+?)::(\S+?)(?: - (.*))?$`)

// errorLine matches pytest -q collection error lines:
//
//	ERROR tests/test_api.py - ImportError: cannot import name 'x'
var errorLine = regexp.MustCompile(`^ERROR (\S+?)(?: - (.*))?$`)

// summaryCount matches entries in the tail summary line, e.g.
// "2 failed, 3 passed, 1 skipped in 0.42s".
var summaryCount = regexp.MustCompile(`(\d+) (failed|passed|skipped|error|errors|warnings?)`)

func parsePytestOutput(data string) *TestSummary {
	s := &TestSummary{Status: "PASS"}

	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := failedLine.FindStringSubmatch(line); m != nil {
			s.Errors = append(s.Errors, TestFailure{
				File:    m[1],
				Test:    m[2],
				Message: m[3],
			})
			continue
		}
		if m := errorLine.FindStringSubmatch(line); m != nil {
			s.CollectErrors = append(s.CollectErrors, CollectError{
				File:   m[1],
				Output: m[2],
			})
			continue
		}

		// The summary is the last "N failed, M passed ..." style line.
		if strings.Contains(line, "passed") || strings.Contains(line, "failed") ||
			strings.Contains(line, "skipped") || strings.Contains(line, "error") {
			for _, cm := range summaryCount.FindAllStringSubmatch(line, -1) {
				n, err := strconv.Atoi(cm[1])
				if err != nil {
					continue
				}
				switch cm[2] {
				case "failed":
					s.Failed = n
				case "passed":
					s.Passed = n
				case "skipped":
					s.Skipped = n
				}
			}
		}
	}

	s.Total = s.Passed + s.Failed + s.Skipped
	if s.Failed > 0 || len(s.CollectErrors) > 0 {
		s.Status = "FAIL"
	}
	return s
}

func truncateLines(s string, maxLines int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= maxLines {
		return strings.Join(lines, "\n")
	}
	result := strings.Join(lines[:maxLines], "\n")
	result += fmt.Sprintf("\n... (%d more lines)", len(lines)-maxLines)
	return result
}
