//go:build !windows

package server

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"thunderctl/pkg/logging"
)

// ReleasePort force-kills whatever still listens on the given TCP port.
// Best effort: a Thunder left behind by a crashed run would otherwise hold
// the port and block the next start. Errors are logged, not returned,
// because an already-free port looks exactly like a failed lookup.
func ReleasePort(port int) {
	output, err := exec.Command("lsof", "-ti", fmt.Sprintf("tcp:%d", port)).Output()
	if err != nil {
		// lsof exits 1 when nothing listens on the port.
		logging.Debug("Server", "Port %d has no listeners", port)
		return
	}

	currentPID := os.Getpid()

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		pid, err := strconv.Atoi(line)
		if err != nil || pid == currentPID {
			continue
		}

		if err := syscall.Kill(pid, syscall.SIGKILL); err != nil {
			logging.Debug("Server", "Could not kill PID %d on port %d: %v", pid, port, err)
			continue
		}
		logging.Warn("Server", "Killed stale process PID %d holding port %d", pid, port)
	}
}
