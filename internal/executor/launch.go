package executor

import (
	"fmt"
	"os"
	"strings"

	"github.com/tessro/sandexec/internal/id"
)

// Start launches command and returns its handle without waiting for it to
// exit. Output lines and the exit event go to sink, or to the executor's
// default sink when sink is nil.
//
// A failed spawn returns a *LaunchError; no handle is minted and nothing is
// registered.
func (e *Executor) Start(command string, sandboxed bool, sink Sink) (Handle, error) {
	if strings.TrimSpace(command) == "" {
		return "", &LaunchError{Command: command, Err: errEmptyCommand}
	}
	if sink == nil {
		sink = e.sink
	}

	cmd := e.command(command, sandboxed)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stdout pipe: %w", err)}
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		stdin.Close()
		outR.Close()
		outW.Close()
		return "", &LaunchError{Command: command, Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		stdin.Close()
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		e.log.Warn("launch failed", "command", command, "sandboxed", sandboxed, "error", err)
		return "", &LaunchError{Command: command, Err: err}
	}

	// The child holds its own copies of the write ends.
	outW.Close()
	errW.Close()

	h := Handle(id.New())
	log := e.log.With("handle", h, "pid", cmd.Process.Pid)

	p := newProcess(h, cmd, command, sandboxed, sink, log)
	p.stdin = stdin
	p.stdout = outR
	p.stderr = errR
	p.state = StateRunning

	if err := e.procs.Add(h, p); err != nil {
		_ = killProcess(cmd)
		_ = cmd.Wait()
		p.closeReaders()
		return "", &LaunchError{Command: command, Err: err}
	}

	p.pumps.Add(2)
	go e.pump(p, EventStdout, outR)
	go e.pump(p, EventStderr, errR)
	go e.waitExit(p)

	log.Info("process started", "command", command, "sandboxed", sandboxed)
	return h, nil
}
