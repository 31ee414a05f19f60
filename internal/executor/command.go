package executor

import (
	"os"
	"os/exec"
)

// Defaults for the shell invocation.
const (
	DefaultShell         = "sh"
	DefaultSandboxScript = "init-sandbox.sh"
)

// Invocation returns the script handed to the shell's -c flag.
// Sandboxed commands are sourced through the sandbox bootstrap script in
// $PREFIX, which receives the command as its arguments.
func Invocation(command string, sandboxed bool, script string) string {
	if !sandboxed {
		return command
	}
	if script == "" {
		script = DefaultSandboxScript
	}
	return "source $" + EnvPrefix + "/" + script + " " + command
}

// command builds the exec.Cmd for a launch. The command always runs
// through the shell, never as direct argv.
func (e *Executor) command(command string, sandboxed bool) *exec.Cmd {
	cmd := exec.Command(e.shell, "-c", Invocation(command, sandboxed, e.sandboxScript))
	cmd.Env = NewEnvironment(e.host, os.Environ()).Vars()
	configureSysProcAttr(cmd)
	return cmd
}
