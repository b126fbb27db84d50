//go:build windows

package server

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"thunderctl/pkg/logging"
)

// ReleasePort force-kills whatever still listens on the given TCP port.
// Windows has no lsof, so listeners are found by parsing netstat output and
// terminated with taskkill. Best effort, errors are logged only.
func ReleasePort(port int) {
	output, err := exec.Command("netstat", "-ano", "-p", "tcp").Output()
	if err != nil {
		logging.Debug("Server", "netstat failed while releasing port %d: %v", port, err)
		return
	}

	suffix := fmt.Sprintf(":%d", port)
	currentPID := os.Getpid()
	seen := make(map[int]bool)

	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		// Expected row: TCP <local> <remote> LISTENING <pid>
		if len(fields) < 5 || !strings.EqualFold(fields[3], "LISTENING") {
			continue
		}
		if !strings.HasSuffix(fields[1], suffix) {
			continue
		}

		pid, err := strconv.Atoi(fields[4])
		if err != nil || pid == currentPID || seen[pid] {
			continue
		}
		seen[pid] = true

		if err := exec.Command("taskkill", "/F", "/PID", strconv.Itoa(pid)).Run(); err != nil {
			logging.Debug("Server", "taskkill failed for PID %d on port %d: %v", pid, port, err)
			continue
		}
		logging.Warn("Server", "Killed stale process PID %d holding port %d", pid, port)
	}
}
