package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"thunderctl/internal/api"
	"thunderctl/internal/bootstrap"
	"thunderctl/internal/config"
	"thunderctl/internal/server"
	"thunderctl/pkg/logging"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"
)

var (
	bootstrapConfigDir       string
	bootstrapServerBinary    string
	bootstrapServerArgs      []string
	bootstrapServerURL       string
	bootstrapPort            int
	bootstrapStepsDir        string
	bootstrapFailFast        bool
	bootstrapSkip            string
	bootstrapOnly            string
	bootstrapReadyTimeout    time.Duration
	bootstrapPollInterval    time.Duration
	bootstrapStepTimeout     time.Duration
	bootstrapRequestTimeout  time.Duration
	bootstrapShutdownTimeout time.Duration
	bootstrapDebug           bool
	bootstrapDebugPort       int
	bootstrapReportPath      string
	bootstrapVerbose         bool
)

// completeStepFlag provides shell completion for the skip and only flags by
// loading the available step names.
func completeStepFlag(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	steps, err := bootstrap.NewStepLoader().LoadSteps(bootstrapStepsDir)
	if err != nil {
		// Return empty completion on error
		return []string{}, cobra.ShellCompDirectiveDefault
	}

	var stepNames []string
	for _, step := range steps {
		stepNames = append(stepNames, step.Name)
	}

	return stepNames, cobra.ShellCompDirectiveDefault
}

// bootstrapCmd represents the bootstrap command
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Start a Thunder server and provision it from step files",
	Long: `The bootstrap command starts the Thunder server binary, waits for its
readiness endpoint to answer, and then executes every provisioning step
found in the steps directory, in filename order.

Each step file declares one or more resources. A resource is created
with a POST; if the server reports it already exists, the run adopts
the existing resource instead of failing. Identifiers stored by earlier
steps (for example the root organization unit ID) are available to
later steps through {{ name }} placeholders.

Run policy:
- Fail-fast (default): the first failed step aborts the remaining ones.
  Use --fail-fast=false to execute every step regardless.
- --skip and --only filter steps by substring match on the step name.
  Filtered steps are counted as skipped, never as failed.
- The run exits 0 exactly when no step failed.

Configuration is resolved in order: built-in defaults, then thunderctl.yaml
in the config directory, then THUNDER_BOOTSTRAP_* environment variables,
then flags. Flags always win. THUNDER_LOG_LEVEL (debug, info, warn, error)
controls log verbosity; --verbose forces debug.

Example usage:
  thunderctl bootstrap --server-binary ./thunder            # Full run
  thunderctl bootstrap --server-binary ./thunder --verbose  # Detailed output
  thunderctl bootstrap --skip sample                        # Skip sample data steps
  thunderctl bootstrap --only 01-default                    # Run a single step
  thunderctl bootstrap --fail-fast=false                    # Keep going on failure
  thunderctl bootstrap --debug --debug-port 2345            # Run server under dlv
  thunderctl bootstrap --report report.json                 # Save a JSON run report

The server is always torn down when the command exits, whether the run
succeeded, failed, or was interrupted.`,
	Args: cobra.NoArgs,
	RunE: runBootstrap,
}

func init() {
	rootCmd.AddCommand(bootstrapCmd)

	defaults := config.Default()

	// Server process
	bootstrapCmd.Flags().StringVar(&bootstrapServerBinary, "server-binary", "", "Path to the Thunder server binary (required unless set in config)")
	bootstrapCmd.Flags().StringSliceVar(&bootstrapServerArgs, "server-arg", nil, "Extra argument passed to the server binary (repeatable)")
	bootstrapCmd.Flags().StringVar(&bootstrapServerURL, "server-url", defaults.ServerURL, "Base URL of the Thunder API")
	bootstrapCmd.Flags().IntVar(&bootstrapPort, "port", defaults.Port, "Port the server listens on, released from stale listeners before start")

	// Step selection
	bootstrapCmd.Flags().StringVar(&bootstrapStepsDir, "steps", defaults.StepsDir, "Directory or file containing provisioning step files")
	bootstrapCmd.Flags().BoolVar(&bootstrapFailFast, "fail-fast", defaults.FailFast, "Abort the run on the first failed step")
	bootstrapCmd.Flags().StringVar(&bootstrapSkip, "skip", "", "Skip steps whose name contains this pattern")
	bootstrapCmd.Flags().StringVar(&bootstrapOnly, "only", "", "Run only steps whose name contains this pattern")

	// Timeouts
	bootstrapCmd.Flags().DurationVar(&bootstrapReadyTimeout, "ready-timeout", defaults.ReadyTimeout, "How long to wait for the server to become ready")
	bootstrapCmd.Flags().DurationVar(&bootstrapPollInterval, "poll-interval", defaults.PollInterval, "Delay between readiness probes")
	bootstrapCmd.Flags().DurationVar(&bootstrapStepTimeout, "step-timeout", defaults.StepTimeout, "Timeout per step unless the step declares its own")
	bootstrapCmd.Flags().DurationVar(&bootstrapRequestTimeout, "request-timeout", defaults.RequestTimeout, "Timeout per API request")
	bootstrapCmd.Flags().DurationVar(&bootstrapShutdownTimeout, "shutdown-timeout", defaults.ShutdownTimeout, "Grace period before the server is force-killed on teardown")

	// Debugging
	bootstrapCmd.Flags().BoolVar(&bootstrapDebug, "debug", false, "Run the server under a headless dlv so a debugger can attach")
	bootstrapCmd.Flags().IntVar(&bootstrapDebugPort, "debug-port", defaults.DebugPort, "Listen port for the dlv debugger front-end")

	// Output and reporting
	bootstrapCmd.Flags().BoolVar(&bootstrapVerbose, "verbose", false, "Enable verbose output and debug logging")
	bootstrapCmd.Flags().StringVar(&bootstrapReportPath, "report", "", "Path to save a JSON run report (default: stdout only)")

	// Configuration source
	bootstrapCmd.Flags().StringVar(&bootstrapConfigDir, "config-dir", ".", "Directory containing thunderctl.yaml")

	// Shell completion for step filters
	_ = bootstrapCmd.RegisterFlagCompletionFunc("skip", completeStepFlag)
	_ = bootstrapCmd.RegisterFlagCompletionFunc("only", completeStepFlag)

	bootstrapCmd.MarkFlagsMutuallyExclusive("skip", "only")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	cfg, err := resolveBootstrapConfig(cmd)
	if err != nil {
		return err
	}

	level := logging.ParseLevel(os.Getenv("THUNDER_LOG_LEVEL"))
	if cfg.Verbose {
		level = logging.LevelDebug
	}
	logging.InitForCLI(level, os.Stderr)

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := checkServerBinary(cfg.ServerBinary); err != nil {
		return err
	}

	// Handle interrupts gracefully: cancel the run, let the deferred
	// teardown stop the server.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, shutting down gracefully...")
		cancel()
	}()

	client := api.New(cfg.ServerURL, cfg.RequestTimeout)

	if killed := server.CleanupStaleServers(cfg.ServerBinary); killed > 0 {
		fmt.Printf("🧹 Cleaned up %d stale server process(es)\n", killed)
	}

	manager := server.NewManager(server.Options{
		Binary:          cfg.ServerBinary,
		Args:            cfg.ServerArgs,
		Port:            cfg.Port,
		Debug:           cfg.Debug,
		DebugPort:       cfg.DebugPort,
		ReadyTimeout:    cfg.ReadyTimeout,
		PollInterval:    cfg.PollInterval,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, client)

	// The server must outlive a canceled run context so teardown can
	// SIGTERM it instead of the context killing it outright. Stop owns
	// the process lifetime from here on.
	if err := manager.Start(context.Background()); err != nil {
		return err
	}
	defer func() {
		if stopErr := manager.Stop(); stopErr != nil {
			logging.Error("Bootstrap", stopErr, "Server teardown failed")
		}
	}()

	if cfg.Debug {
		fmt.Printf("🐛 Debugger front-end listening on :%d, attach with: dlv connect :%d\n", cfg.DebugPort, cfg.DebugPort)
	}

	if err := waitForServer(ctx, manager, cfg); err != nil {
		dumpServerLogs(manager)
		return err
	}
	if err := manager.MarkRunning(); err != nil {
		return err
	}

	loader := bootstrap.NewStepLoader()
	steps, err := loader.LoadSteps(cfg.StepsDir)
	if err != nil {
		return fmt.Errorf("failed to load steps from %s: %w", cfg.StepsDir, err)
	}

	reporter := bootstrap.NewConsoleReporter(cfg.Verbose, cfg.ReportPath)
	runner := bootstrap.NewRunner(client, loader, reporter)

	_, err = runner.Run(ctx, bootstrap.RunOptions{
		FailFast:    cfg.FailFast,
		Skip:        cfg.Skip,
		Only:        cfg.Only,
		StepTimeout: cfg.StepTimeout,
	}, steps)
	return err
}

// resolveBootstrapConfig builds the effective configuration: defaults, then
// the optional config file, then environment variables, then flags.
func resolveBootstrapConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(bootstrapConfigDir)
	if err != nil {
		return config.Config{}, err
	}
	if err := config.FromEnv(&cfg); err != nil {
		return config.Config{}, err
	}
	applyBootstrapFlags(cmd, &cfg)
	return cfg, nil
}

// applyBootstrapFlags overlays explicitly set flags onto cfg. Flags left at
// their default do not override file or environment values.
func applyBootstrapFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("server-binary") {
		cfg.ServerBinary = bootstrapServerBinary
	}
	if flags.Changed("server-arg") {
		cfg.ServerArgs = bootstrapServerArgs
	}
	if flags.Changed("server-url") {
		cfg.ServerURL = bootstrapServerURL
	}
	if flags.Changed("port") {
		cfg.Port = bootstrapPort
	}
	if flags.Changed("steps") {
		cfg.StepsDir = bootstrapStepsDir
	}
	if flags.Changed("fail-fast") {
		cfg.FailFast = bootstrapFailFast
	}
	if flags.Changed("skip") {
		cfg.Skip = bootstrapSkip
	}
	if flags.Changed("only") {
		cfg.Only = bootstrapOnly
	}
	if flags.Changed("ready-timeout") {
		cfg.ReadyTimeout = bootstrapReadyTimeout
	}
	if flags.Changed("poll-interval") {
		cfg.PollInterval = bootstrapPollInterval
	}
	if flags.Changed("step-timeout") {
		cfg.StepTimeout = bootstrapStepTimeout
	}
	if flags.Changed("request-timeout") {
		cfg.RequestTimeout = bootstrapRequestTimeout
	}
	if flags.Changed("shutdown-timeout") {
		cfg.ShutdownTimeout = bootstrapShutdownTimeout
	}
	if flags.Changed("debug") {
		cfg.Debug = bootstrapDebug
	}
	if flags.Changed("debug-port") {
		cfg.DebugPort = bootstrapDebugPort
	}
	if flags.Changed("verbose") {
		cfg.Verbose = bootstrapVerbose
	}
	if flags.Changed("report") {
		cfg.ReportPath = bootstrapReportPath
	}
}

// checkServerBinary verifies the configured binary exists before anything is
// started. Reported as a validation error so it maps to the config exit code.
func checkServerBinary(path string) error {
	var errs config.ValidationErrors

	if strings.TrimSpace(path) == "" {
		errs.Add("serverBinary", "is required (use --server-binary or set serverBinary in thunderctl.yaml)")
	} else if _, err := os.Stat(path); err != nil {
		errs.Add("serverBinary", fmt.Sprintf("not found: %v", err), path)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// waitForServer blocks until the server answers its readiness probe, showing
// a spinner unless verbose logging is on.
func waitForServer(ctx context.Context, manager *server.Manager, cfg config.Config) error {
	var s *spinner.Spinner
	if !cfg.Verbose {
		s = spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		s.Suffix = fmt.Sprintf(" Waiting for Thunder at %s (timeout %v)...", cfg.ServerURL, cfg.ReadyTimeout)
		s.FinalMSG = ""
		s.Start()
	}

	err := manager.WaitForReady(ctx)
	if s != nil {
		if err != nil {
			s.FinalMSG = text.FgRed.Sprint("✗ Thunder did not become ready\n")
		}
		s.Stop()
	}
	if err != nil {
		return err
	}

	handle := manager.Handle()
	fmt.Printf("🚀 Thunder ready at %s (PID %d)\n", handle.BaseURL, handle.PID)
	return nil
}

// dumpServerLogs prints the tail of the captured server output. Called when
// the server never became ready, where its own logs are the only clue.
func dumpServerLogs(manager *server.Manager) {
	tail := 20
	if logging.IsDebugEnabled() {
		tail = 200
	}

	logs := manager.Logs()
	if out := tailLines(logs.Stdout, tail); out != "" {
		fmt.Printf("\n📜 Server stdout (last lines):\n%s\n", out)
	}
	if errOut := tailLines(logs.Stderr, tail); errOut != "" {
		fmt.Printf("\n📜 Server stderr (last lines):\n%s\n", errOut)
	}
}

// tailLines returns the last n non-empty lines of s.
func tailLines(s string, n int) string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return ""
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
