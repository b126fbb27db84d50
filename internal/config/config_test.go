package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.FailFast)
	assert.Equal(t, 60*time.Second, cfg.ReadyTimeout)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, "https://localhost:8090", cfg.ServerURL)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errField string
	}{
		{
			name:     "empty server URL",
			mutate:   func(c *Config) { c.ServerURL = "" },
			errField: "serverURL",
		},
		{
			name:     "bad scheme",
			mutate:   func(c *Config) { c.ServerURL = "ftp://localhost:8090" },
			errField: "serverURL",
		},
		{
			name:     "missing host",
			mutate:   func(c *Config) { c.ServerURL = "https://" },
			errField: "serverURL",
		},
		{
			name:     "port out of range",
			mutate:   func(c *Config) { c.Port = 0 },
			errField: "port",
		},
		{
			name:     "empty steps dir",
			mutate:   func(c *Config) { c.StepsDir = "  " },
			errField: "stepsDir",
		},
		{
			name:     "skip and only together",
			mutate:   func(c *Config) { c.Skip = "sample"; c.Only = "default" },
			errField: "skip",
		},
		{
			name:     "zero ready timeout",
			mutate:   func(c *Config) { c.ReadyTimeout = 0 },
			errField: "readyTimeout",
		},
		{
			name:     "poll interval exceeds ready timeout",
			mutate:   func(c *Config) { c.PollInterval = 2 * time.Minute },
			errField: "pollInterval",
		},
		{
			name:     "negative step timeout",
			mutate:   func(c *Config) { c.StepTimeout = -time.Second },
			errField: "stepTimeout",
		},
		{
			name:     "debug port out of range",
			mutate:   func(c *Config) { c.Debug = true; c.DebugPort = 70000 },
			errField: "debugPort",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			found := false
			for _, ve := range errs {
				if ve.Field == tt.errField {
					found = true
				}
			}
			assert.True(t, found, "expected a violation on field %q, got: %v", tt.errField, err)
		})
	}
}

func TestValidateCollectsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.ServerURL = ""
	cfg.StepsDir = ""
	cfg.ReadyTimeout = 0

	err := cfg.Validate()
	require.Error(t, err)

	var errs ValidationErrors
	require.ErrorAs(t, err, &errs)
	assert.GreaterOrEqual(t, len(errs), 3)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	content := []byte("serverURL: https://localhost:9443\nstepsDir: provisioning\nfailFast: false\nreadyTimeout: 90s\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), content, 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "https://localhost:9443", cfg.ServerURL)
	assert.Equal(t, "provisioning", cfg.StepsDir)
	assert.False(t, cfg.FailFast)
	assert.Equal(t, 90*time.Second, cfg.ReadyTimeout)
	// Untouched fields keep their defaults.
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("{not yaml"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestFromEnv(t *testing.T) {
	t.Setenv(envFailFast, "false")
	t.Setenv(envSkip, "sample")

	cfg := Default()
	require.NoError(t, FromEnv(&cfg))
	assert.False(t, cfg.FailFast)
	assert.Equal(t, "sample", cfg.Skip)
	assert.Empty(t, cfg.Only)
}

func TestFromEnvOnly(t *testing.T) {
	t.Setenv(envOnly, "01-default")

	cfg := Default()
	require.NoError(t, FromEnv(&cfg))
	assert.Equal(t, "01-default", cfg.Only)
}

func TestFromEnvInvalidBool(t *testing.T) {
	t.Setenv(envFailFast, "maybe")

	cfg := Default()
	err := FromEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), envFailFast)
	// The value stays untouched on error.
	assert.True(t, cfg.FailFast)
}

func TestFromEnvUnsetLeavesValues(t *testing.T) {
	cfg := Default()
	cfg.Skip = "preset"

	require.NoError(t, FromEnv(&cfg))
	assert.Equal(t, "preset", cfg.Skip)
}
