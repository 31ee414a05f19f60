// Package config loads the sandexec configuration file.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/tessro/sandexec/internal/paths"
)

// Config represents the sandexec configuration.
type Config struct {
	// Environment describes the host layout exported to every process.
	Environment EnvironmentConfig `toml:"environment"`

	// Shell controls how commands are invoked.
	Shell ShellConfig `toml:"shell"`

	// Stream controls output pumping.
	Stream StreamConfig `toml:"stream"`

	// History controls how much output the daemon retains per process.
	History HistoryConfig `toml:"history"`

	// Rules locates the launch rules file.
	Rules RulesConfig `toml:"rules"`

	// Log controls daemon logging.
	Log LogConfig `toml:"log"`
}

// EnvironmentConfig is exported to processes as PREFIX, NATIVE_DIR and FDROID.
type EnvironmentConfig struct {
	FilesDir     string `toml:"files_dir"`
	NativeLibDir string `toml:"native_lib_dir"`
	TargetSDK    int    `toml:"target_sdk"`
}

// ShellConfig selects the shell and the sandbox bootstrap script.
type ShellConfig struct {
	Path          string `toml:"path"`
	SandboxScript string `toml:"sandbox_script"`
}

// StreamConfig tunes the output pumps.
type StreamConfig struct {
	MaxLineBytes int `toml:"max_line_bytes"`
	// DrainTimeout is a Go duration string, e.g. "2s".
	DrainTimeout string `toml:"drain_timeout"`
}

// HistoryConfig bounds retained output. A zero RetainedExits is
// distinguished from unset by the pointer.
type HistoryConfig struct {
	Lines         int  `toml:"lines"`
	RetainedExits *int `toml:"retained_exits"`
}

// RulesConfig points at the launch rules file. Disabled turns checks off.
type RulesConfig struct {
	Path     string `toml:"path"`
	Disabled bool   `toml:"disabled"`
}

// LogConfig configures the daemon log file.
type LogConfig struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

// Defaults.
const (
	DefaultShell         = "sh"
	DefaultSandboxScript = "init-sandbox.sh"
	DefaultTargetSDK     = 35
	DefaultMaxLineBytes  = 1024 * 1024
	DefaultDrainTimeout  = "2s"
	DefaultLogLevel      = "info"
	DefaultHistoryLines  = 1000
	DefaultRetainedExits = 32
)

// Load loads the config from paths.ConfigPath().
// Returns nil config and nil error if the file doesn't exist.
func Load() (*Config, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath loads and validates the config at path.
// Returns nil config and nil error if the file doesn't exist.
func LoadFromPath(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetFilesDir returns the configured files dir, or the base directory.
func (c *Config) GetFilesDir() string {
	if c != nil && c.Environment.FilesDir != "" {
		return c.Environment.FilesDir
	}
	dir, err := paths.BaseDir()
	if err != nil {
		return os.TempDir()
	}
	return dir
}

// GetNativeLibDir returns the configured native library dir.
func (c *Config) GetNativeLibDir() string {
	if c == nil {
		return ""
	}
	return c.Environment.NativeLibDir
}

// GetTargetSDK returns the configured target SDK or the default.
func (c *Config) GetTargetSDK() int {
	if c != nil && c.Environment.TargetSDK != 0 {
		return c.Environment.TargetSDK
	}
	return DefaultTargetSDK
}

// GetShell returns the configured shell or the default.
func (c *Config) GetShell() string {
	if c != nil && c.Shell.Path != "" {
		return c.Shell.Path
	}
	return DefaultShell
}

// GetSandboxScript returns the configured sandbox script or the default.
func (c *Config) GetSandboxScript() string {
	if c != nil && c.Shell.SandboxScript != "" {
		return c.Shell.SandboxScript
	}
	return DefaultSandboxScript
}

// GetMaxLineBytes returns the configured line limit or the default.
func (c *Config) GetMaxLineBytes() int {
	if c != nil && c.Stream.MaxLineBytes > 0 {
		return c.Stream.MaxLineBytes
	}
	return DefaultMaxLineBytes
}

// GetDrainTimeout returns the configured drain timeout or the default.
func (c *Config) GetDrainTimeout() string {
	if c != nil && c.Stream.DrainTimeout != "" {
		return c.Stream.DrainTimeout
	}
	return DefaultDrainTimeout
}

// GetHistoryLines returns the configured per-process history or the default.
func (c *Config) GetHistoryLines() int {
	if c != nil && c.History.Lines > 0 {
		return c.History.Lines
	}
	return DefaultHistoryLines
}

// GetRetainedExits returns how many exited processes keep their output.
func (c *Config) GetRetainedExits() int {
	if c != nil && c.History.RetainedExits != nil {
		return *c.History.RetainedExits
	}
	return DefaultRetainedExits
}

// GetRulesPath returns the launch rules file, or empty when rules are
// disabled.
func (c *Config) GetRulesPath() string {
	if c != nil && c.Rules.Disabled {
		return ""
	}
	if c != nil && c.Rules.Path != "" {
		return c.Rules.Path
	}
	path, err := paths.RulesPath()
	if err != nil {
		return ""
	}
	return path
}

// GetLogLevel returns the configured log level or the default.
func (c *Config) GetLogLevel() string {
	if c != nil && c.Log.Level != "" {
		return c.Log.Level
	}
	return DefaultLogLevel
}

// GetLogPath returns the configured log path, or empty for the default.
func (c *Config) GetLogPath() string {
	if c == nil {
		return ""
	}
	return c.Log.Path
}
