package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"thunderctl/pkg/logging"

	"gopkg.in/yaml.v3"
)

const configFileName = "thunderctl.yaml"

// Environment variables recognized by FromEnv. They cover the run policy
// knobs an operator flips between invocations without editing files.
const (
	envFailFast = "THUNDER_BOOTSTRAP_FAIL_FAST"
	envSkip     = "THUNDER_BOOTSTRAP_SKIP"
	envOnly     = "THUNDER_BOOTSTRAP_ONLY"
)

// Load reads the optional config file from dir on top of the defaults.
// A missing file is not an error; a malformed one is.
func Load(dir string) (Config, error) {
	cfg := Default()

	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Debug("Config", "No %s found at %s, using defaults", configFileName, dir)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("failed to read config from %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config from %s: %w", path, err)
	}

	logging.Info("Config", "Loaded configuration from %s", path)
	return cfg, nil
}

// FromEnv overlays the recognized environment variables onto cfg.
// Unset variables leave the current values untouched.
func FromEnv(cfg *Config) error {
	if v, ok := os.LookupEnv(envFailFast); ok {
		failFast, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s value %q: %w", envFailFast, v, err)
		}
		cfg.FailFast = failFast
	}

	if v, ok := os.LookupEnv(envSkip); ok {
		cfg.Skip = v
	}

	if v, ok := os.LookupEnv(envOnly); ok {
		cfg.Only = v
	}

	return nil
}
