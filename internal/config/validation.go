package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationError represents a single configuration violation with the field
// it concerns.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

// Error implements the error interface.
func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

// Error implements the error interface for multiple validation errors.
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	var messages []string
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// HasErrors returns true if there are any validation errors.
func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add appends a new validation error.
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{
		Field:   field,
		Value:   val,
		Message: message,
	})
}

// Validate checks the configuration once at startup. It returns a
// ValidationErrors collection listing every violation instead of stopping at
// the first, so an operator fixes a broken invocation in one pass.
func (c Config) Validate() error {
	var errs ValidationErrors

	u, err := url.Parse(c.ServerURL)
	switch {
	case strings.TrimSpace(c.ServerURL) == "":
		errs.Add("serverURL", "is required", c.ServerURL)
	case err != nil:
		errs.Add("serverURL", fmt.Sprintf("is not a valid URL: %v", err), c.ServerURL)
	case u.Scheme != "http" && u.Scheme != "https":
		errs.Add("serverURL", "must use http or https", c.ServerURL)
	case u.Host == "":
		errs.Add("serverURL", "must include a host", c.ServerURL)
	}

	if c.Port < 1 || c.Port > 65535 {
		errs.Add("port", "must be between 1 and 65535", c.Port)
	}

	if strings.TrimSpace(c.StepsDir) == "" {
		errs.Add("stepsDir", "is required", c.StepsDir)
	}

	if c.Skip != "" && c.Only != "" {
		errs.Add("skip", "cannot be combined with an only filter", c.Skip)
	}

	if c.ReadyTimeout <= 0 {
		errs.Add("readyTimeout", "must be positive", c.ReadyTimeout)
	}
	if c.PollInterval <= 0 {
		errs.Add("pollInterval", "must be positive", c.PollInterval)
	}
	if c.ReadyTimeout > 0 && c.PollInterval > 0 && c.PollInterval >= c.ReadyTimeout {
		errs.Add("pollInterval", "must be shorter than readyTimeout", c.PollInterval)
	}
	if c.StepTimeout <= 0 {
		errs.Add("stepTimeout", "must be positive", c.StepTimeout)
	}
	if c.RequestTimeout <= 0 {
		errs.Add("requestTimeout", "must be positive", c.RequestTimeout)
	}
	if c.ShutdownTimeout <= 0 {
		errs.Add("shutdownTimeout", "must be positive", c.ShutdownTimeout)
	}

	if c.Debug && (c.DebugPort < 1 || c.DebugPort > 65535) {
		errs.Add("debugPort", "must be between 1 and 65535", c.DebugPort)
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}
