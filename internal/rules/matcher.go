package rules

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultScriptTimeout is the maximum time a script can run.
	DefaultScriptTimeout = 5 * time.Second
)

// MatchPattern checks if value matches the pattern.
// If pattern ends with ":*", it's a prefix match.
// Otherwise, it's an exact match.
// An empty pattern or ":*" alone matches everything.
func MatchPattern(pattern, value string) bool {
	if pattern == "" || pattern == ":*" {
		return true
	}

	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return strings.HasPrefix(value, prefix)
	}

	return pattern == value
}

// ExpandHomePath expands ~ to the user's home directory in a path string.
// Returns the path unchanged if it doesn't start with ~ or if there's an error.
func ExpandHomePath(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		return filepath.Join(home, rest)
	}
	// ~user syntax not supported
	return path
}

// ScriptMatch executes a validation script and returns its decision.
// The script receives "sandbox" or "plain" as its first argument and the
// command on stdin. Output should be "allow", "deny", or "pass" (default
// on error or other output).
func ScriptMatch(ctx context.Context, scriptPath string, req Request) (Action, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultScriptTimeout)
	defer cancel()

	mode := "plain"
	if req.Sandboxed {
		mode = "sandbox"
	}
	cmd := exec.CommandContext(ctx, ExpandHomePath(scriptPath), mode)
	cmd.Stdin = strings.NewReader(req.Command)

	output, err := cmd.Output()
	if err != nil {
		return ActionPass, err
	}

	switch strings.ToLower(strings.TrimSpace(string(output))) {
	case "allow":
		return ActionAllow, nil
	case "deny":
		return ActionDeny, nil
	default:
		return ActionPass, nil
	}
}
