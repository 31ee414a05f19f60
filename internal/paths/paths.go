// Package paths provides a single source of truth for sandexec file paths.
// All path helpers honor environment variable overrides for isolated testing.
//
// Path resolution precedence:
//  1. Specific env vars (SANDEXEC_SOCKET_PATH, SANDEXEC_PID_PATH, SANDEXEC_CONFIG) take highest priority
//  2. SANDEXEC_DIR sets the base directory (derives socket/pid/log/config)
//  3. Default behavior (~/.sandexec, ~/.config/sandexec) when no env vars are set
package paths

import (
	"os"
	"path/filepath"
)

// Environment variable names for path overrides.
const (
	// EnvDir is the base directory override (e.g., /tmp/sandexec-e2e).
	EnvDir = "SANDEXEC_DIR"

	// EnvSocketPath overrides the socket path directly.
	EnvSocketPath = "SANDEXEC_SOCKET_PATH"

	// EnvPIDPath overrides the PID file path directly.
	EnvPIDPath = "SANDEXEC_PID_PATH"

	// EnvConfigPath overrides the config file path directly.
	EnvConfigPath = "SANDEXEC_CONFIG"
)

// BaseDir returns the sandexec base directory (~/.sandexec by default).
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".sandexec"), nil
}

// ConfigDir returns the config directory (~/.config/sandexec by default).
// When SANDEXEC_DIR is set, returns SANDEXEC_DIR/config instead.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvDir); dir != "" {
		return filepath.Join(dir, "config"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "sandexec"), nil
}

// ConfigPath returns the path to the config file.
// Precedence: SANDEXEC_CONFIG > ConfigDir()/config.toml
func ConfigPath() (string, error) {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// RulesPath returns the path to the launch rules file, next to the config.
func RulesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "rules.toml"), nil
}

// SocketPath returns the daemon socket path.
// Precedence: SANDEXEC_SOCKET_PATH > SANDEXEC_DIR/sandexec.sock > ~/.sandexec/sandexec.sock
func SocketPath() string {
	if path := os.Getenv(EnvSocketPath); path != "" {
		return path
	}
	return inBaseDir("sandexec.sock")
}

// PIDPath returns the daemon PID file path.
// Precedence: SANDEXEC_PID_PATH > SANDEXEC_DIR/sandexec.pid > ~/.sandexec/sandexec.pid
func PIDPath() string {
	if path := os.Getenv(EnvPIDPath); path != "" {
		return path
	}
	return inBaseDir("sandexec.pid")
}

// LogPath returns the default daemon log path.
func LogPath() string {
	return inBaseDir("sandexec.log")
}

func inBaseDir(name string) string {
	base, err := BaseDir()
	if err != nil {
		return filepath.Join(os.TempDir(), name)
	}
	return filepath.Join(base, name)
}
