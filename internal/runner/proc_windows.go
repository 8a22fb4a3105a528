//go:build windows

package runner

import (
	"os/exec"
	"strconv"
	"syscall"
)

// setProcessGroup starts the child in a new process group so console
// control events aimed at the host do not propagate to it.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}

// terminateTree kills the child and its descendants. Windows has no group
// signal, so taskkill walks the tree by parent PID.
func terminateTree(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(cmd.Process.Pid))
	if err := kill.Run(); err != nil {
		return cmd.Process.Kill()
	}
	return nil
}
