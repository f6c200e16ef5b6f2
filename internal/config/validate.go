package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidationError represents a config validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation failures.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var b strings.Builder
	b.WriteString("config validation failed:\n")
	for _, err := range e {
		b.WriteString("  - ")
		b.WriteString(err.Error())
		b.WriteString("\n")
	}
	return b.String()
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validSchemas = map[string]bool{
	"AP203":   true,
	"AP214CD": true,
}

var validIGESVersions = map[string]bool{
	"5.1": true,
	"5.3": true,
}

// Validate checks the configuration for errors.
// Returns ValidationErrors if validation fails.
func Validate(cfg *Config) error {
	var errs ValidationErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if !validLogLevels[strings.ToLower(cfg.LogLevel)] {
		add("log_level", "must be one of: debug, info, warn, error; got %q", cfg.LogLevel)
	}

	if !validSchemas[strings.ToUpper(cfg.STEP.Schema)] {
		add("step.schema", "must be one of: AP203, AP214CD; got %q", cfg.STEP.Schema)
	}
	if cfg.STEP.Tolerance <= 0 {
		add("step.tolerance", "must be positive, got %g", cfg.STEP.Tolerance)
	}
	if !validIGESVersions[cfg.IGES.Version] {
		add("iges.version", "must be one of: 5.1, 5.3; got %q", cfg.IGES.Version)
	}
	if cfg.Convert.Jobs < 1 {
		add("convert.jobs", "must be at least 1, got %d", cfg.Convert.Jobs)
	}

	if len(cfg.Watch.Include) == 0 {
		add("watch.include", "must list at least one pattern")
	}
	for i, p := range cfg.Watch.Include {
		if !doublestar.ValidatePattern(p) {
			add(fmt.Sprintf("watch.include[%d]", i), "invalid pattern %q", p)
		}
	}
	if cfg.Watch.DebounceMs < 0 {
		add("watch.debounce_ms", "must not be negative, got %d", cfg.Watch.DebounceMs)
	}
	if cfg.Watch.RateLimit <= 0 {
		add("watch.rate_limit", "must be positive, got %g", cfg.Watch.RateLimit)
	}
	if cfg.Watch.Burst < 1 {
		add("watch.burst", "must be at least 1, got %d", cfg.Watch.Burst)
	}
	if cfg.Watch.LedgerPath == "" {
		add("watch.ledger_path", "must not be empty")
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool {
	var ve ValidationError
	var ves ValidationErrors
	return errors.As(err, &ve) || errors.As(err, &ves)
}
