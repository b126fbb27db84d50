//go:build !windows

package server

import (
	"fmt"
	"os/exec"
	"syscall"

	"thunderctl/pkg/logging"
)

// configureProcAttr puts the child in its own process group so the whole
// tree (Thunder plus anything it spawns) can be signalled at once.
func configureProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}
}

// killProcessGroup signals an entire process group. A negative PID addresses
// the group; when that fails the individual process is signalled as a
// fallback.
func killProcessGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil {
		if err2 := syscall.Kill(pid, sig); err2 != nil {
			return fmt.Errorf("failed to signal process group -%d: %v, process %d: %v", pid, err, pid, err2)
		}
		logging.Debug("Server", "Process group signal failed for %d, individual signal succeeded", pid)
	}
	return nil
}
