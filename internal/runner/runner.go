// Package runner executes tool commands as short-lived child processes
// with workspace bounds, timeouts, and output size limits.
//
// The host process speaks MCP over its own stdin/stdout, so no child may
// ever share those descriptors. Commands that launch a Python interpreter
// take an isolated path: output goes to private temporary files, the child
// runs in its own process group, and the whole group is killed on timeout.
// Ordinary commands use conventional pipe capture.
//
// Execute never returns an error. Every failure mode (timeout, missing
// executable, permission denied, anything else) is folded into the Result
// so callers inspect data instead of handling exceptions.
package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Runner executes commands safely within a workspace boundary.
type Runner struct {
	Workspace   string
	Timeout     time.Duration // default per-call timeout
	MaxOutput   int           // bytes, per stream
	Interpreter string        // configured Python interpreter path, if any
}

// capture holds raw executor output before it is folded into a Result.
type capture struct {
	exitCode  int
	stdout    []byte
	stderr    []byte
	truncated bool
}

// Run executes argv with output capture and default timeout. The first
// element is the binary name; cwd is resolved relative to the workspace
// root and must remain within it.
func (r *Runner) Run(ctx context.Context, argv []string, cwd string) *Result {
	return r.Execute(ctx, Request{Argv: argv, Dir: cwd, CaptureOutput: true})
}

// Execute runs a single Request to completion and always returns a
// well-formed Result. Interpreter commands are executed with stdio
// isolation; everything else uses direct pipe capture.
func (r *Runner) Execute(ctx context.Context, req Request) *Result {
	start := time.Now()
	res := &Result{
		RunID:    uuid.New().String(),
		ExitCode: 1,
		Argv:     req.Argv,
	}
	defer func() {
		res.ElapsedMillis = time.Since(start).Milliseconds()
	}()

	if len(req.Argv) == 0 {
		res.ExecError = "no command given"
		return res
	}

	dir, err := r.resolveDir(req.Dir)
	if err != nil {
		res.ExecError = err.Error()
		return res
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.Timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var c *capture
	if r.IsInterpreterCommand(req.Argv) {
		c, err = r.runIsolated(ctx, req, dir)
	} else {
		c, err = r.runDirect(ctx, req, dir)
	}

	if err != nil {
		r.classifyError(res, err, req.Argv[0], timeout)
		return res
	}

	res.ExitCode = c.exitCode
	res.Stdout = string(c.stdout)
	res.Stderr = string(c.stderr)
	res.Truncated = c.truncated
	return res
}

// classifyError maps an executor failure onto the closed outcome set.
// The exit code stays at the sentinel value 1 in every branch.
func (r *Runner) classifyError(res *Result, err error, name string, timeout time.Duration) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		res.TimedOut = true
		res.ExecError = fmt.Sprintf("command timed out after %g second(s)", timeout.Seconds())
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, os.ErrNotExist):
		res.ExecError = fmt.Sprintf("executable not found: %s", name)
	case errors.Is(err, os.ErrPermission):
		res.ExecError = fmt.Sprintf("permission error running %s: %v", name, err)
	default:
		res.ExecError = fmt.Sprintf("unexpected error running %s: %v", name, err)
	}
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// capBytes truncates b to the configured output cap.
func (r *Runner) capBytes(b []byte) ([]byte, bool) {
	if r.MaxOutput > 0 && len(b) >= r.MaxOutput {
		return b[:r.MaxOutput], true
	}
	return b, false
}
