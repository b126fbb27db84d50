package cmd

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"thunderctl/internal/config"
)

// resetFlag restores a bootstrap flag to its default and clears the changed
// marker so tests do not leak flag state into each other.
func resetFlag(t *testing.T, name string) {
	t.Helper()
	f := bootstrapCmd.Flags().Lookup(name)
	if f == nil {
		t.Fatalf("flag %q not registered", name)
	}
	if err := f.Value.Set(f.DefValue); err != nil {
		t.Fatalf("failed to reset flag %q: %v", name, err)
	}
	f.Changed = false
}

func TestBootstrapCommand(t *testing.T) {
	if bootstrapCmd.Use != "bootstrap" {
		t.Errorf("Expected Use to be 'bootstrap', got %s", bootstrapCmd.Use)
	}

	if bootstrapCmd.Short == "" {
		t.Error("Expected Short description to be set")
	}

	if bootstrapCmd.Long == "" {
		t.Error("Expected Long description to be set")
	}

	if bootstrapCmd.RunE == nil {
		t.Error("Expected RunE function to be set")
	}
}

func TestBootstrapCommandFlags(t *testing.T) {
	defaults := config.Default()

	tests := []struct {
		name            string
		expectedDefault string
	}{
		{"server-binary", ""},
		{"server-url", defaults.ServerURL},
		{"steps", defaults.StepsDir},
		{"fail-fast", "true"},
		{"skip", ""},
		{"only", ""},
		{"ready-timeout", defaults.ReadyTimeout.String()},
		{"poll-interval", defaults.PollInterval.String()},
		{"step-timeout", defaults.StepTimeout.String()},
		{"request-timeout", defaults.RequestTimeout.String()},
		{"shutdown-timeout", defaults.ShutdownTimeout.String()},
		{"debug", "false"},
		{"debug-port", "2345"},
		{"verbose", "false"},
		{"report", ""},
		{"config-dir", "."},
	}

	for _, tt := range tests {
		flag := bootstrapCmd.Flags().Lookup(tt.name)
		if flag == nil {
			t.Errorf("Expected flag %q to be registered", tt.name)
			continue
		}
		if flag.DefValue != tt.expectedDefault {
			t.Errorf("Flag %q: expected default %q, got %q", tt.name, tt.expectedDefault, flag.DefValue)
		}
	}
}

func TestApplyBootstrapFlagsKeepsUnchangedValues(t *testing.T) {
	cfg := config.Default()
	cfg.ServerBinary = "/from/file"
	cfg.FailFast = false
	cfg.Skip = "sample"

	// No flags were explicitly set, so file values must survive even though
	// the flag defaults differ.
	applyBootstrapFlags(bootstrapCmd, &cfg)

	if cfg.ServerBinary != "/from/file" {
		t.Errorf("Expected serverBinary to stay '/from/file', got %q", cfg.ServerBinary)
	}
	if cfg.FailFast {
		t.Error("Expected failFast to stay false")
	}
	if cfg.Skip != "sample" {
		t.Errorf("Expected skip to stay 'sample', got %q", cfg.Skip)
	}
}

func TestApplyBootstrapFlagsOverridesChanged(t *testing.T) {
	flags := bootstrapCmd.Flags()

	if err := flags.Set("server-binary", "/from/flag"); err != nil {
		t.Fatalf("failed to set server-binary: %v", err)
	}
	defer resetFlag(t, "server-binary")

	if err := flags.Set("fail-fast", "false"); err != nil {
		t.Fatalf("failed to set fail-fast: %v", err)
	}
	defer resetFlag(t, "fail-fast")

	if err := flags.Set("step-timeout", "90s"); err != nil {
		t.Fatalf("failed to set step-timeout: %v", err)
	}
	defer resetFlag(t, "step-timeout")

	cfg := config.Default()
	cfg.ServerBinary = "/from/file"

	applyBootstrapFlags(bootstrapCmd, &cfg)

	if cfg.ServerBinary != "/from/flag" {
		t.Errorf("Expected flag to override serverBinary, got %q", cfg.ServerBinary)
	}
	if cfg.FailFast {
		t.Error("Expected flag to override failFast to false")
	}
	if cfg.StepTimeout != 90*time.Second {
		t.Errorf("Expected flag to override stepTimeout to 90s, got %v", cfg.StepTimeout)
	}
}

func TestResolveBootstrapConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	content := "skip: from-file\nport: 9443\n"
	if err := os.WriteFile(filepath.Join(dir, "thunderctl.yaml"), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	originalDir := bootstrapConfigDir
	defer func() { bootstrapConfigDir = originalDir }()
	bootstrapConfigDir = dir

	t.Setenv("THUNDER_BOOTSTRAP_SKIP", "from-env")

	cfg, err := resolveBootstrapConfig(bootstrapCmd)
	if err != nil {
		t.Fatalf("resolveBootstrapConfig failed: %v", err)
	}

	if cfg.Skip != "from-env" {
		t.Errorf("Expected environment to override file, got skip=%q", cfg.Skip)
	}
	if cfg.Port != 9443 {
		t.Errorf("Expected file to override default port, got %d", cfg.Port)
	}
	if cfg.ServerURL != config.Default().ServerURL {
		t.Errorf("Expected untouched values to keep defaults, got serverURL=%q", cfg.ServerURL)
	}
}

func TestCheckServerBinary(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "thunder")
	if err := os.WriteFile(existing, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatalf("failed to create fake binary: %v", err)
	}

	tests := []struct {
		name        string
		path        string
		expectError string
	}{
		{"existing binary", existing, ""},
		{"empty path", "", "is required"},
		{"missing binary", "/does/not/exist/thunder", "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkServerBinary(tt.path)
			if tt.expectError == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected an error")
			}
			var validationErrs config.ValidationErrors
			if !errors.As(err, &validationErrs) {
				t.Fatalf("Expected ValidationErrors, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.expectError) {
				t.Errorf("Expected error containing %q, got %q", tt.expectError, err.Error())
			}
		})
	}
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		n        int
		expected string
	}{
		{"empty", "", 5, ""},
		{"whitespace only", "  \n\t\n", 5, ""},
		{"fewer lines than limit", "one\ntwo", 5, "one\ntwo"},
		{"more lines than limit", "one\ntwo\nthree\nfour", 2, "three\nfour"},
		{"trailing newline trimmed", "one\ntwo\n", 2, "one\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tailLines(tt.input, tt.n); got != tt.expected {
				t.Errorf("tailLines(%q, %d) = %q, expected %q", tt.input, tt.n, got, tt.expected)
			}
		})
	}
}
