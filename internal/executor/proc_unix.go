//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// configureProcessGroup puts the command in its own process group so that a
// timeout kills everything it spawned (cargo, rustc, test binaries).
func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		killProcessGroup(cmd)
		return nil
	}
}

// killProcessGroup kills whatever is left in the command's process group.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
