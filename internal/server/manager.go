package server

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"thunderctl/internal/api"
	"thunderctl/pkg/logging"
)

// Phase is the lifecycle phase of the managed Thunder server.
type Phase string

const (
	PhaseStopped  Phase = "Stopped"
	PhaseStarting Phase = "Starting"
	PhaseReady    Phase = "Ready"
	PhaseRunning  Phase = "Running"
	PhaseStopping Phase = "Stopping"
)

// securityOverrideEnv disables Thunder's security checks for the lifetime of
// the managed process. It is injected into the child environment only, never
// into the thunderctl process itself, so nothing has to be restored
// afterwards and concurrent runs cannot observe each other's override.
const securityOverrideEnv = "THUNDER_DISABLE_SECURITY_CHECKS=true"

// readinessPath is Thunder's readiness probe endpoint.
const readinessPath = "/health/readiness"

// Options configures a Manager.
type Options struct {
	Binary          string
	Args            []string
	Port            int
	Debug           bool
	DebugPort       int
	ReadyTimeout    time.Duration
	PollInterval    time.Duration
	ShutdownTimeout time.Duration
}

// Handle identifies the single server process owned by a Manager.
type Handle struct {
	PID       int
	BaseURL   string
	StartTime time.Time
}

// Logs holds the output captured from the managed process.
type Logs struct {
	Stdout string
	Stderr string
}

// LifecycleError wraps failures of the managed server lifecycle so callers
// can map them to a dedicated exit code.
type LifecycleError struct {
	Op  string
	Err error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("server %s: %v", e.Op, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// Manager owns exactly one Thunder server process: it starts the binary,
// polls readiness, and tears the process down exactly once no matter how
// many exit paths reach Stop.
type Manager struct {
	opts   Options
	client *api.Client

	mu      sync.RWMutex
	phase   Phase
	cmd     *exec.Cmd
	handle  *Handle
	capture *logCapture

	exited  chan struct{}
	exitErr error

	stopOnce sync.Once
	stopErr  error
}

// NewManager creates a manager for one server process. The client is used
// for readiness probing and must point at the server's base URL.
func NewManager(opts Options, client *api.Client) *Manager {
	return &Manager{
		opts:   opts,
		client: client,
		phase:  PhaseStopped,
	}
}

// Phase returns the current lifecycle phase.
func (m *Manager) Phase() Phase {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.phase
}

// Handle returns the handle of the running process, or nil before Start.
func (m *Manager) Handle() *Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.handle
}

// Logs returns everything the process wrote so far.
func (m *Manager) Logs() Logs {
	m.mu.RLock()
	capture := m.capture
	m.mu.RUnlock()

	if capture == nil {
		return Logs{}
	}
	return capture.logs()
}

// Start launches the server binary in its own process group. The port is
// released from stale listeners first, so a crashed previous run cannot block
// this one. In debug mode the binary runs under dlv with a headless listener
// on the debug port, and startup blocks until a debugger attaches only if
// dlv decides so (--continue keeps it running).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseStopped {
		return &LifecycleError{Op: "start", Err: fmt.Errorf("server already started (phase %s)", m.phase)}
	}

	if m.opts.Port > 0 {
		ReleasePort(m.opts.Port)
	}

	cmd, err := m.buildCommand(ctx)
	if err != nil {
		return &LifecycleError{Op: "start", Err: err}
	}

	// The override lives in the child environment only.
	cmd.Env = append(os.Environ(), securityOverrideEnv)
	configureProcAttr(cmd)

	capture := newLogCapture()
	cmd.Stdout = capture.stdoutWriter
	cmd.Stderr = capture.stderrWriter

	logging.Info("Server", "Starting %s (args: %v)", cmd.Path, cmd.Args[1:])

	if err := cmd.Start(); err != nil {
		capture.close()
		return &LifecycleError{Op: "start", Err: err}
	}

	m.cmd = cmd
	m.capture = capture
	m.phase = PhaseStarting
	m.handle = &Handle{
		PID:       cmd.Process.Pid,
		BaseURL:   m.client.BaseURL(),
		StartTime: time.Now(),
	}
	m.exited = make(chan struct{})

	go func() {
		err := cmd.Wait()
		capture.close()
		m.mu.Lock()
		m.exitErr = err
		m.mu.Unlock()
		close(m.exited)
	}()

	logging.Info("Server", "Started Thunder (PID %d)", m.handle.PID)
	return nil
}

func (m *Manager) buildCommand(ctx context.Context) (*exec.Cmd, error) {
	if !m.opts.Debug {
		return exec.CommandContext(ctx, m.opts.Binary, m.opts.Args...), nil
	}

	dlvPath, err := exec.LookPath("dlv")
	if err != nil {
		return nil, fmt.Errorf("debug mode requires dlv in PATH: %w", err)
	}

	args := []string{
		"exec", m.opts.Binary,
		"--headless",
		fmt.Sprintf("--listen=:%d", m.opts.DebugPort),
		"--api-version=2",
		"--accept-multiclient",
		"--continue",
	}
	if len(m.opts.Args) > 0 {
		args = append(args, "--")
		args = append(args, m.opts.Args...)
	}

	logging.Info("Server", "Debug mode: dlv listening on :%d", m.opts.DebugPort)
	return exec.CommandContext(ctx, dlvPath, args...), nil
}

// WaitForReady polls the readiness endpoint until the server answers 200,
// the process exits, or the ready timeout elapses. An unreachable server is
// expected while it boots and keeps the poll going; a timeout or early exit
// is fatal.
func (m *Manager) WaitForReady(ctx context.Context) error {
	m.mu.RLock()
	phase := m.phase
	exited := m.exited
	m.mu.RUnlock()

	if phase != PhaseStarting {
		return &LifecycleError{Op: "readiness", Err: fmt.Errorf("server not starting (phase %s)", phase)}
	}

	readyCtx, cancel := context.WithTimeout(ctx, m.opts.ReadyTimeout)
	defer cancel()

	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	logging.Info("Server", "Waiting for readiness at %s%s (poll %v, timeout %v)",
		m.client.BaseURL(), readinessPath, m.opts.PollInterval, m.opts.ReadyTimeout)

	for attempt := 1; ; attempt++ {
		resp := m.client.Get(readyCtx, readinessPath)
		switch {
		case resp.StatusCode == http.StatusOK:
			m.setPhase(PhaseReady)
			logging.Info("Server", "Ready after %d probe(s)", attempt)
			return nil
		case resp.Unreachable():
			logging.Debug("Server", "Probe %d: not listening yet", attempt)
		default:
			logging.Debug("Server", "Probe %d: status %d", attempt, resp.StatusCode)
		}

		select {
		case <-readyCtx.Done():
			return &LifecycleError{
				Op:  "readiness",
				Err: fmt.Errorf("not ready within %v", m.opts.ReadyTimeout),
			}
		case <-exited:
			m.mu.RLock()
			exitErr := m.exitErr
			m.mu.RUnlock()
			return &LifecycleError{
				Op:  "readiness",
				Err: fmt.Errorf("server exited before becoming ready: %v", exitErr),
			}
		case <-ticker.C:
		}
	}
}

// MarkRunning transitions the server from Ready to Running once bootstrap
// execution begins.
func (m *Manager) MarkRunning() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != PhaseReady {
		return &LifecycleError{Op: "run", Err: fmt.Errorf("server not ready (phase %s)", m.phase)}
	}
	m.phase = PhaseRunning
	return nil
}

// Stop tears the server down: SIGTERM to the process group, a grace period,
// then SIGKILL. It is safe to call from multiple exit paths; the teardown
// runs exactly once and later calls return the first result.
func (m *Manager) Stop() error {
	m.stopOnce.Do(func() {
		m.stopErr = m.stop()
	})
	return m.stopErr
}

func (m *Manager) stop() error {
	m.mu.Lock()
	cmd := m.cmd
	exited := m.exited
	m.phase = PhaseStopping
	m.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		m.setPhase(PhaseStopped)
		return nil
	}

	pid := cmd.Process.Pid
	logging.Info("Server", "Stopping Thunder (PID %d)", pid)

	if err := killProcessGroup(pid, syscall.SIGTERM); err != nil {
		logging.Warn("Server", "SIGTERM failed for PID %d: %v", pid, err)
	}

	select {
	case <-exited:
		// Graceful exit. Sweep any children that outlived the leader.
		killProcessGroup(pid, syscall.SIGKILL)
	case <-time.After(m.opts.ShutdownTimeout):
		logging.Warn("Server", "Shutdown timeout after %v, killing process group %d", m.opts.ShutdownTimeout, pid)
		if err := killProcessGroup(pid, syscall.SIGKILL); err != nil {
			m.setPhase(PhaseStopped)
			return &LifecycleError{Op: "stop", Err: err}
		}
		<-exited
	}

	m.setPhase(PhaseStopped)
	logging.Info("Server", "Stopped Thunder (PID %d)", pid)
	return nil
}

func (m *Manager) setPhase(phase Phase) {
	m.mu.Lock()
	m.phase = phase
	m.mu.Unlock()
}

// logCapture collects the stdout and stderr of the managed process.
type logCapture struct {
	stdoutBuf    bytes.Buffer
	stderrBuf    bytes.Buffer
	stdoutReader *io.PipeReader
	stderrReader *io.PipeReader
	stdoutWriter *io.PipeWriter
	stderrWriter *io.PipeWriter
	group        errgroup.Group
	mu           sync.RWMutex
}

func newLogCapture() *logCapture {
	lc := &logCapture{}
	lc.stdoutReader, lc.stdoutWriter = io.Pipe()
	lc.stderrReader, lc.stderrWriter = io.Pipe()

	lc.group.Go(func() error { return lc.capture(lc.stdoutReader, &lc.stdoutBuf) })
	lc.group.Go(func() error { return lc.capture(lc.stderrReader, &lc.stderrBuf) })

	return lc
}

func (lc *logCapture) capture(reader io.Reader, buffer *bytes.Buffer) error {
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		lc.mu.Lock()
		buffer.WriteString(scanner.Text() + "\n")
		lc.mu.Unlock()
	}
	return scanner.Err()
}

// close closes the capture pipes and waits for the readers to drain.
func (lc *logCapture) close() {
	lc.stdoutWriter.Close()
	lc.stderrWriter.Close()
	lc.group.Wait()
}

func (lc *logCapture) logs() Logs {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return Logs{
		Stdout: lc.stdoutBuf.String(),
		Stderr: lc.stderrBuf.String(),
	}
}
