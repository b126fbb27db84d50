// Package server manages the lifecycle of one Thunder server process.
//
// A Manager owns exactly one process and walks it through the phases
//
//	Stopped -> Starting -> Ready -> Running -> Stopping -> Stopped
//
// Start launches the binary in its own process group with Thunder's security
// checks disabled via an environment override. The override is written into
// the child's environment only; the thunderctl process never mutates its own
// environment, so there is nothing to restore and concurrent invocations
// cannot leak the override into each other.
//
// WaitForReady polls GET /health/readiness until the server answers 200. An
// unreachable server is the normal state while Thunder boots and keeps the
// poll going; the poll fails when the ready timeout elapses or the process
// exits early, and in both cases the captured process output is available
// through Logs for diagnosis.
//
// Stop sends SIGTERM to the process group, waits for the shutdown timeout,
// and escalates to SIGKILL. Teardown runs exactly once regardless of how
// many exit paths reach it (normal completion, bootstrap failure, readiness
// timeout, interrupt); later calls return the first result.
//
// ReleasePort and CleanupStaleServers are best-effort sweeps for leftovers
// of crashed runs: the former frees a TCP port by killing its listener, the
// latter terminates Thunder processes matched by binary path. Both are
// platform-aware (lsof/kill and pgrep on Unix, netstat/taskkill on Windows).
package server
