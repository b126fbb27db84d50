// Package logging provides a structured logging system for thunderctl with
// unified log handling and level filtering.
//
// This package implements a logging system built on Go's standard slog package,
// providing consistent logging behavior with structured output and level filtering.
//
// # Architecture
//
// The logging system is built around these core concepts:
//
// ## Log Levels
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// ## Structured Logging
// All log entries include:
//   - Timestamp
//   - Log level (Debug, Info, Warn, Error)
//   - Subsystem identifier for categorization
//   - Message content with optional formatting
//   - Optional error information
//
// # Usage Examples
//
//	import "thunderctl/pkg/logging"
//
//	// Initialize with Info level logging to stderr
//	logging.InitForCLI(logging.LevelInfo, os.Stderr)
//
//	// Log messages
//	logging.Info("Bootstrap", "Run starting")
//	logging.Debug("Config", "Loaded configuration from %s", configPath)
//	logging.Warn("Server", "Port %d still occupied, retrying", port)
//	logging.Error("APIClient", err, "Request to %s failed", path)
//
// # Subsystem Organization
//
// Logs are organized by subsystem to enable filtering and categorization:
//
//   - **Bootstrap**: Provisioning run execution and counters
//   - **Loader**: Step discovery, parsing, and validation
//   - **Provision**: Create-or-adopt resource calls
//   - **Server**: Server process lifecycle and readiness polling
//   - **APIClient**: HTTP calls against the Thunder API
//   - **Config**: Configuration loading and validation
//
// # Thread Safety
//
// The logging system is fully thread-safe: concurrent logging from multiple
// goroutines is safe, and level filtering happens at the handler so
// filtered-out messages allocate nothing.
package logging
