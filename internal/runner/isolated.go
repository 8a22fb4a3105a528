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
)

// waitDelay bounds how long Wait blocks on lingering I/O after the child
// has been killed.
const waitDelay = 5 * time.Second

// runIsolated executes an interpreter command without ever attaching the
// host's stdio to the child. Output is redirected to files in a private
// temporary directory, the child runs in its own process group, and the
// whole group is killed when the context expires. The output files are
// read back before the directory is removed; the removal itself runs on
// every exit path.
func (r *Runner) runIsolated(ctx context.Context, req Request, dir string) (*capture, error) {
	cmd := exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	cmd.Dir = dir
	cmd.Env = interpreterEnv(req.Env)
	cmd.WaitDelay = waitDelay
	setProcessGroup(cmd)
	cmd.Cancel = func() error {
		return terminateTree(cmd)
	}

	// Stdin is either the supplied input or the null device, never the
	// host's own stdin.
	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var outPath, errPath string
	if req.CaptureOutput {
		tmpDir, err := os.MkdirTemp("", "proctor-exec-*")
		if err != nil {
			return nil, fmt.Errorf("creating capture dir: %w", err)
		}
		defer os.RemoveAll(tmpDir)

		outPath = filepath.Join(tmpDir, "stdout")
		errPath = filepath.Join(tmpDir, "stderr")

		outFile, err := os.Create(outPath)
		if err != nil {
			return nil, fmt.Errorf("creating stdout capture: %w", err)
		}
		errFile, err := os.Create(errPath)
		if err != nil {
			outFile.Close()
			return nil, fmt.Errorf("creating stderr capture: %w", err)
		}
		cmd.Stdout = outFile
		cmd.Stderr = errFile
		defer outFile.Close()
		defer errFile.Close()
	}

	runErr := cmd.Run()

	// Close before reading so buffered writes are visible.
	if f, ok := cmd.Stdout.(*os.File); ok {
		f.Close()
	}
	if f, ok := cmd.Stderr.(*os.File); ok {
		f.Close()
	}

	if ctx.Err() == context.DeadlineExceeded {
		return nil, context.DeadlineExceeded
	}

	exit := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exit = exitErr.ExitCode()
		} else {
			return nil, runErr
		}
	}

	c := &capture{exitCode: exit}
	if req.CaptureOutput {
		stdout, err := os.ReadFile(outPath)
		if err != nil {
			return nil, fmt.Errorf("reading captured stdout: %w", err)
		}
		stderr, err := os.ReadFile(errPath)
		if err != nil {
			return nil, fmt.Errorf("reading captured stderr: %w", err)
		}
		var outTrunc, errTrunc bool
		c.stdout, outTrunc = r.capBytes(stdout)
		c.stderr, errTrunc = r.capBytes(stderr)
		c.truncated = outTrunc || errTrunc
	}
	return c, nil
}
