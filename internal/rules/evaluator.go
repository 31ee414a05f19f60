package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// ErrDenied is matched by every error a Check refusal returns.
var ErrDenied = errors.New("denied by rule")

// DeniedError reports a launch refused by the rules file.
type DeniedError struct {
	Command string
	Reason  string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("launch %q denied: %s", e.Command, e.Reason)
}

func (e *DeniedError) Is(target error) bool { return target == ErrDenied }

// Evaluator loads and evaluates one rules file, reloading it when it
// changes on disk.
type Evaluator struct {
	path string

	mu sync.RWMutex
	// +checklocks:mu
	cached *cachedConfig
}

type cachedConfig struct {
	config   *Config
	modTime  time.Time
	loadedAt time.Time
}

// NewEvaluator creates an evaluator for the rules file at path. The file
// need not exist.
func NewEvaluator(path string) *Evaluator {
	return &Evaluator{path: path}
}

// Path returns the rules file path.
func (e *Evaluator) Path() string {
	return e.path
}

// Evaluate runs the rules against req. It returns the deciding action and
// whether any rule decided. Scripts that fail are skipped.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (Action, bool, error) {
	config, err := e.load()
	if err != nil {
		return ActionPass, false, err
	}
	if config == nil {
		return ActionPass, false, nil
	}

	for i, rule := range config.Rules {
		if !rule.applies(req) {
			continue
		}

		if rule.Script != "" {
			action, err := ScriptMatch(ctx, rule.Script, req)
			if err != nil {
				slog.Warn("rule script failed", "rule", i+1, "script", rule.Script, "error", err)
				continue
			}
			if action != ActionPass {
				return action, true, nil
			}
			continue
		}

		if rule.matches(req.Command) && rule.Action != ActionPass {
			return rule.Action, true, nil
		}
	}
	return ActionPass, false, nil
}

// Check returns a *DeniedError if req may not be launched. A rules file
// that cannot be read denies every launch until it is fixed.
func (e *Evaluator) Check(ctx context.Context, req Request) error {
	action, matched, err := e.Evaluate(ctx, req)
	if err != nil {
		return &DeniedError{Command: req.Command, Reason: "rules file unreadable: " + err.Error()}
	}
	if !matched {
		action = e.defaultAction()
	}
	if action == ActionDeny {
		reason := "matched deny rule"
		if !matched {
			reason = "no rule allows it"
		}
		return &DeniedError{Command: req.Command, Reason: reason}
	}
	return nil
}

func (e *Evaluator) defaultAction() Action {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.cached == nil || e.cached.config == nil || e.cached.config.Default == "" {
		return ActionAllow
	}
	return e.cached.config.Default
}

// load returns the rules file, reusing the cached copy while its
// modification time is unchanged.
func (e *Evaluator) load() (*Config, error) {
	info, err := os.Stat(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			e.InvalidateCache()
			return nil, nil
		}
		return nil, err
	}

	e.mu.RLock()
	cached := e.cached
	e.mu.RUnlock()

	if cached != nil && cached.modTime.Equal(info.ModTime()) {
		return cached.config, nil
	}

	config, err := LoadConfig(e.path)
	if err != nil || config == nil {
		return nil, err
	}

	e.mu.Lock()
	e.cached = &cachedConfig{
		config:   config,
		modTime:  info.ModTime(),
		loadedAt: time.Now(),
	}
	e.mu.Unlock()
	slog.Debug("rules loaded", "path", e.path, "rules", len(config.Rules))

	return config, nil
}

// InvalidateCache forces the next evaluation to reread the file.
func (e *Evaluator) InvalidateCache() {
	e.mu.Lock()
	e.cached = nil
	e.mu.Unlock()
}
