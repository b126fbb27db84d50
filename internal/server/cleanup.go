package server

import (
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"

	"thunderctl/pkg/logging"
)

// CleanupStaleServers terminates Thunder processes left behind by previous
// runs. Candidates are found by matching the full binary path on the command
// line, so unrelated processes that merely share the executable name are not
// touched.
//
// Best effort: cleanup failures are logged rather than returned, since a
// failed sweep should not block the run. The port release during Start
// catches whatever this misses.
func CleanupStaleServers(binaryPath string) int {
	if binaryPath == "" {
		return 0
	}

	output, err := exec.Command("pgrep", "-f", binaryPath).Output()
	if err != nil {
		// pgrep exits 1 when no processes match.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			logging.Debug("Server", "No stale Thunder processes found")
			return 0
		}
		logging.Debug("Server", "Could not check for stale processes: %v", err)
		return 0
	}

	currentPID := os.Getpid()
	killed := 0

	for _, line := range strings.Split(strings.TrimSpace(string(output)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		pid, err := strconv.Atoi(line)
		if err != nil || pid == currentPID {
			continue
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			continue
		}

		if err := process.Signal(syscall.SIGTERM); err != nil {
			logging.Debug("Server", "Could not send SIGTERM to PID %d: %v", pid, err)
			continue
		}

		killed++
		logging.Warn("Server", "Terminated stale Thunder process PID %d", pid)
	}

	return killed
}
