//go:build !windows

package runner

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so host-directed
// signals do not reach it and it cannot attach to the host's controlling
// terminal.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateTree kills the child's entire process group. Negative PID
// addresses the group, taking any descendants down with it.
func terminateTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		// Group already gone or never created; fall back to the process.
		return cmd.Process.Kill()
	}
	return nil
}
