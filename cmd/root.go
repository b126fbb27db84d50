package cmd

import (
	"errors"
	"os"

	"thunderctl/internal/bootstrap"
	"thunderctl/internal/config"
	"thunderctl/internal/server"

	"github.com/spf13/cobra"
)

// Exit codes for CLI commands.
// These follow common conventions so CI pipelines can distinguish a failed
// provisioning run from a broken invocation or a server that never came up.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error, including failed bootstrap steps.
	ExitCodeError = 1
	// ExitCodeConfigInvalid indicates the configuration did not validate.
	ExitCodeConfigInvalid = 2
	// ExitCodeServerLifecycle indicates the Thunder server could not be
	// started, never became ready, or could not be torn down.
	ExitCodeServerLifecycle = 3
)

// rootCmd represents the base command for the thunderctl application.
// It is the entry point when the application is called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "thunderctl",
	Short: "Bootstrap a WSO2 Thunder identity server with default resources",
	Long: `thunderctl launches a local WSO2 Thunder server, waits for it to become
ready, and provisions it from declarative YAML step files: organization
units, users, applications, and whatever else the steps describe.

Provisioning is idempotent. Resources that already exist on the server
are adopted instead of recreated, so the same steps can run against a
fresh server or one that was bootstrapped before.`,
	// SilenceUsage prevents Cobra from printing the usage message on errors that are handled by the application.
	// This is useful for providing cleaner error output to the user.
	SilenceUsage: true,
}

// SetVersion sets the version for the root command.
// This function is typically called from the main package to inject the application version at build time.
func SetVersion(v string) {
	rootCmd.Version = v
}

// GetVersion returns the current version of the application.
// This can be used by other commands to access the build version.
func GetVersion() string {
	return rootCmd.Version
}

// Execute is the main entry point for the CLI application.
// It initializes and executes the root command, which in turn handles subcommands and flags.
// This function is called by main.main().
func Execute() {
	// SetVersionTemplate defines a custom template for displaying the version.
	// This is used when the --version flag is invoked.
	rootCmd.SetVersionTemplate(`{{printf "thunderctl version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		// Check for specific error types and return appropriate exit codes
		exitCode := getExitCode(err)
		os.Exit(exitCode)
	}
}

// getExitCode determines the appropriate exit code based on the error type.
// This provides semantic exit codes for scripting and automation.
func getExitCode(err error) int {
	var validationErrs config.ValidationErrors
	if errors.As(err, &validationErrs) {
		return ExitCodeConfigInvalid
	}

	var lifecycleErr *server.LifecycleError
	if errors.As(err, &lifecycleErr) {
		return ExitCodeServerLifecycle
	}

	// A failed run already printed its summary; the exit code is the only
	// signal left to give.
	var runErr *bootstrap.RunError
	if errors.As(err, &runErr) {
		return ExitCodeError
	}

	// Default to general error
	return ExitCodeError
}

// init is a special Go function that is executed when the package is initialized.
// It is used here to add subcommands to the root command.
func init() {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSelfUpdateCmd())
}
