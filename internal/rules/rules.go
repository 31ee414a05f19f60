// Package rules decides whether the daemon may launch a command.
//
// Rules are read from a TOML file and evaluated in order. The first rule
// that matches with allow or deny decides; pass rules fall through. When no
// rule decides, the file's default action applies, and launches are
// allowed if it has none.
package rules

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Action is the result of a rule evaluation.
type Action string

const (
	// ActionAllow permits the launch.
	ActionAllow Action = "allow"
	// ActionDeny blocks the launch.
	ActionDeny Action = "deny"
	// ActionPass skips to the next rule.
	ActionPass Action = "pass"
)

// ErrInvalidRule is returned when a rules file is malformed.
var ErrInvalidRule = errors.New("invalid rule")

// Rule defines a single launch rule.
type Rule struct {
	Action   Action   `toml:"action"`             // allow, deny, or pass
	Pattern  string   `toml:"pattern,omitempty"`  // Pattern to match (":*" suffix = prefix match)
	Patterns []string `toml:"patterns,omitempty"` // Multiple patterns (any match counts)
	Script   string   `toml:"script,omitempty"`   // Path to validation script
	// Sandbox limits the rule to sandboxed (true) or plain (false) launches.
	Sandbox *bool `toml:"sandbox,omitempty"`
}

// Config represents a rules file.
type Config struct {
	Default Action `toml:"default"`
	Rules   []Rule `toml:"rules"`
}

// Request describes a launch being checked.
type Request struct {
	Command   string
	Sandboxed bool
}

// LoadConfig loads and validates the rules file at path.
// Returns nil config and nil error if the file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks every action and that script rules carry no patterns.
func (c *Config) Validate() error {
	switch c.Default {
	case "", ActionAllow, ActionDeny:
	default:
		return fmt.Errorf("%w: default must be allow or deny, got %q", ErrInvalidRule, c.Default)
	}
	for i, r := range c.Rules {
		switch r.Action {
		case ActionAllow, ActionDeny, ActionPass:
		default:
			if r.Script == "" {
				return fmt.Errorf("%w: rule %d: unknown action %q", ErrInvalidRule, i+1, r.Action)
			}
		}
		if r.Script != "" && (r.Pattern != "" || len(r.Patterns) > 0) {
			return fmt.Errorf("%w: rule %d: script and pattern are exclusive", ErrInvalidRule, i+1)
		}
	}
	return nil
}

// applies reports whether r is scoped to req's launch mode.
func (r Rule) applies(req Request) bool {
	return r.Sandbox == nil || *r.Sandbox == req.Sandboxed
}

// matches reports whether r's patterns match the command. A rule with no
// patterns matches everything.
func (r Rule) matches(command string) bool {
	if r.Pattern == "" && len(r.Patterns) == 0 {
		return true
	}
	if r.Pattern != "" && MatchPattern(r.Pattern, command) {
		return true
	}
	for _, p := range r.Patterns {
		if MatchPattern(p, command) {
			return true
		}
	}
	return false
}
