package config

import "time"

// Config is the top-level configuration for a bootstrap run. It is built
// once at startup (defaults, then optional config file, then environment,
// then flags), validated once, and passed explicitly to every component.
// Nothing reads environment variables after startup.
type Config struct {
	// ServerBinary is the path to the Thunder server binary to launch.
	ServerBinary string `yaml:"serverBinary,omitempty"`
	// ServerArgs are extra arguments passed to the server binary.
	ServerArgs []string `yaml:"serverArgs,omitempty"`
	// ServerURL is the base URL the API listens on (default https://localhost:8090).
	ServerURL string `yaml:"serverURL,omitempty"`
	// Port is the port the server listens on, used for pre-start port release.
	Port int `yaml:"port,omitempty"`

	// StepsDir is the directory of provisioning step files (default "steps").
	StepsDir string `yaml:"stepsDir,omitempty"`
	// FailFast aborts the run on the first failed step (default true).
	FailFast bool `yaml:"failFast"`
	// Skip excludes steps whose name contains this pattern.
	Skip string `yaml:"skip,omitempty"`
	// Only restricts the run to steps whose name contains this pattern.
	Only string `yaml:"only,omitempty"`

	// ReadyTimeout bounds the whole readiness wait (default 60s).
	ReadyTimeout time.Duration `yaml:"readyTimeout,omitempty"`
	// PollInterval is the delay between readiness probes (default 2s).
	PollInterval time.Duration `yaml:"pollInterval,omitempty"`
	// StepTimeout bounds a single provisioning step (default 30s).
	StepTimeout time.Duration `yaml:"stepTimeout,omitempty"`
	// RequestTimeout bounds a single API request (default 30s).
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`
	// ShutdownTimeout is how long to wait for graceful server exit before
	// force-killing (default 10s).
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout,omitempty"`

	// Debug launches the server under a headless delve front-end so a
	// debugger can attach on DebugPort.
	Debug bool `yaml:"debug,omitempty"`
	// DebugPort is the listen port for the debugger front-end (default 2345).
	DebugPort int `yaml:"debugPort,omitempty"`

	// Verbose enables debug-level logging.
	Verbose bool `yaml:"verbose,omitempty"`
	// ReportPath, when set, receives the run summary as JSON.
	ReportPath string `yaml:"reportPath,omitempty"`
}

// Default returns the configuration defaults applied before any file,
// environment, or flag input.
func Default() Config {
	return Config{
		ServerURL:       "https://localhost:8090",
		Port:            8090,
		StepsDir:        "steps",
		FailFast:        true,
		ReadyTimeout:    60 * time.Second,
		PollInterval:    2 * time.Second,
		StepTimeout:     30 * time.Second,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		DebugPort:       2345,
	}
}
