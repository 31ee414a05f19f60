package executor

import (
	"slices"
	"strconv"
	"strings"
)

// Variables injected into every launched process.
const (
	EnvPrefix    = "PREFIX"
	EnvNativeDir = "NATIVE_DIR"
	EnvFDroid    = "FDROID"
)

// FDroidMaxSDK is the highest target SDK that still counts as an F-Droid build.
const FDroidMaxSDK = 28

// Host describes the layout of the host application a launch environment
// is derived from.
type Host struct {
	// FilesDir is the private files directory, exported as PREFIX.
	FilesDir string
	// NativeLibDir is the native library directory, exported as NATIVE_DIR.
	NativeLibDir string
	// TargetSDK is the platform level the host targets.
	TargetSDK int
}

// FDroid reports whether the host counts as an F-Droid build.
func (h Host) FDroid() bool {
	return h.TargetSDK <= FDroidMaxSDK
}

// Environment is the immutable variable set for one launch.
type Environment struct {
	vars []string
}

// NewEnvironment merges the host variables over base, which is usually
// os.Environ(). Host variables replace any inherited value of the same name.
func NewEnvironment(host Host, base []string) Environment {
	overrides := []struct{ key, value string }{
		{EnvPrefix, host.FilesDir},
		{EnvNativeDir, host.NativeLibDir},
		{EnvFDroid, strconv.FormatBool(host.FDroid())},
	}

	vars := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if key == EnvPrefix || key == EnvNativeDir || key == EnvFDroid {
			continue
		}
		vars = append(vars, kv)
	}
	for _, o := range overrides {
		vars = append(vars, o.key+"="+o.value)
	}
	return Environment{vars: vars}
}

// Lookup returns the value of key. Later entries win, as with exec.Cmd.
func (e Environment) Lookup(key string) (string, bool) {
	for i := len(e.vars) - 1; i >= 0; i-- {
		k, v, _ := strings.Cut(e.vars[i], "=")
		if k == key {
			return v, true
		}
	}
	return "", false
}

// Vars returns a copy of the KEY=VALUE pairs.
func (e Environment) Vars() []string {
	return slices.Clone(e.vars)
}
