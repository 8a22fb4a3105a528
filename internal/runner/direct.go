package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// runDirect executes an ordinary command with pipe-based capture. No
// temporary files and no process-group isolation: non-interpreter commands
// are assumed not to race with the host's stdio. That is a simplification,
// not a guarantee; re-entrant interpreter invocations must go through
// runIsolated.
func (r *Runner) runDirect(ctx context.Context, req Request, dir string) (*capture, error) {
	cmd := exec.CommandContext(ctx, req.Argv[0], req.Argv[1:]...)
	cmd.Dir = dir
	cmd.Env = plainEnv(req.Env)
	cmd.WaitDelay = waitDelay

	if req.Stdin != "" {
		cmd.Stdin = strings.NewReader(req.Stdin)
	}

	var stdout, stderr bytes.Buffer
	if req.CaptureOutput {
		cmd.Stdout = &limitWriter{buf: &stdout, limit: r.MaxOutput}
		cmd.Stderr = &limitWriter{buf: &stderr, limit: r.MaxOutput}
	}

	runErr := cmd.Run()

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

	return &capture{
		exitCode:  exit,
		stdout:    stdout.Bytes(),
		stderr:    stderr.Bytes(),
		truncated: r.MaxOutput > 0 && (stdout.Len() >= r.MaxOutput || stderr.Len() >= r.MaxOutput),
	}, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
