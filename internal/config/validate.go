package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Validation errors.
var (
	ErrRelativePath        = errors.New("path must be absolute")
	ErrInvalidTargetSDK    = errors.New("target_sdk must not be negative")
	ErrInvalidScriptName   = errors.New("sandbox_script must be a file name")
	ErrInvalidMaxLineBytes = errors.New("max_line_bytes out of range")
	ErrInvalidDuration     = errors.New("invalid duration")
	ErrInvalidHistory      = errors.New("history limits must not be negative")
	ErrInvalidLogLevel     = errors.New("log level must be 'debug', 'info', 'warn', or 'error'")
)

// MaxMaxLineBytes is the largest accepted max_line_bytes (64 MiB).
const MaxMaxLineBytes = 64 * 1024 * 1024

// validLogLevels is the list of valid log level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidationError wraps a validation error with context.
type ValidationError struct {
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (got %q)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Validate checks every field and returns the first problem found.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	checks := []func() error{
		func() error { return validateAbsPath("environment.files_dir", c.Environment.FilesDir) },
		func() error { return validateAbsPath("environment.native_lib_dir", c.Environment.NativeLibDir) },
		func() error { return validateTargetSDK(c.Environment.TargetSDK) },
		func() error { return validateScriptName(c.Shell.SandboxScript) },
		func() error { return validateMaxLineBytes(c.Stream.MaxLineBytes) },
		func() error { return validateDuration("stream.drain_timeout", c.Stream.DrainTimeout) },
		func() error { return validateHistory(c.History) },
		func() error { return validateAbsPath("rules.path", c.Rules.Path) },
		func() error { return ValidateLogLevel(c.Log.Level) },
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

// validateAbsPath accepts empty (unset) or absolute paths.
func validateAbsPath(field, path string) error {
	if path == "" || filepath.IsAbs(path) {
		return nil
	}
	return &ValidationError{
		Field:   field,
		Value:   path,
		Message: "must be an absolute path",
		Err:     ErrRelativePath,
	}
}

func validateTargetSDK(sdk int) error {
	if sdk >= 0 {
		return nil
	}
	return &ValidationError{
		Field:   "environment.target_sdk",
		Value:   strconv.Itoa(sdk),
		Message: "must not be negative",
		Err:     ErrInvalidTargetSDK,
	}
}

// validateScriptName rejects anything that would escape $PREFIX or break
// the shell line the script is sourced from.
func validateScriptName(name string) error {
	if name == "" {
		return nil
	}
	if strings.ContainsAny(name, "/ \t\n;&|$`'\"") || name == "." || name == ".." {
		return &ValidationError{
			Field:   "shell.sandbox_script",
			Value:   name,
			Message: "must be a plain file name inside the files directory",
			Err:     ErrInvalidScriptName,
		}
	}
	return nil
}

func validateMaxLineBytes(n int) error {
	if n == 0 {
		return nil
	}
	if n < 0 || n > MaxMaxLineBytes {
		return &ValidationError{
			Field:   "stream.max_line_bytes",
			Value:   strconv.Itoa(n),
			Message: fmt.Sprintf("must be between 1 and %d", MaxMaxLineBytes),
			Err:     ErrInvalidMaxLineBytes,
		}
	}
	return nil
}

func validateDuration(field, s string) error {
	if s == "" {
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return &ValidationError{
			Field:   field,
			Value:   s,
			Message: "must be a positive duration such as \"2s\"",
			Err:     ErrInvalidDuration,
		}
	}
	return nil
}

func validateHistory(h HistoryConfig) error {
	if h.Lines < 0 {
		return &ValidationError{
			Field:   "history.lines",
			Value:   strconv.Itoa(h.Lines),
			Message: "must not be negative",
			Err:     ErrInvalidHistory,
		}
	}
	if h.RetainedExits != nil && *h.RetainedExits < 0 {
		return &ValidationError{
			Field:   "history.retained_exits",
			Value:   strconv.Itoa(*h.RetainedExits),
			Message: "must not be negative",
			Err:     ErrInvalidHistory,
		}
	}
	return nil
}

// ValidateLogLevel validates a log level string. Empty means the default.
func ValidateLogLevel(level string) error {
	if level == "" {
		return nil
	}
	if !validLogLevels[strings.ToLower(level)] {
		return &ValidationError{
			Field:   "log.level",
			Value:   level,
			Message: "must be 'debug', 'info', 'warn', or 'error'",
			Err:     ErrInvalidLogLevel,
		}
	}
	return nil
}

// DrainTimeout parses GetDrainTimeout. Validation guarantees it parses.
func (c *Config) DrainTimeout() time.Duration {
	d, err := time.ParseDuration(c.GetDrainTimeout())
	if err != nil {
		return 2 * time.Second
	}
	return d
}
