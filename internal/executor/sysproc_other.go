//go:build !linux

package executor

import "os/exec"

// configureSysProcAttr is a no-op on non-Linux platforms.
func configureSysProcAttr(_ *exec.Cmd) {}

// killProcess kills the child itself. Grandchildren are not reached.
func killProcess(cmd *exec.Cmd) error {
	return cmd.Process.Kill()
}
