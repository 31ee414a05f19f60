package executor

import (
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"

	"github.com/tessro/sandexec/internal/logging"
)

// Status is the answer to IsRunning.
type Status string

const (
	StatusRunning  Status = "running"
	StatusExited   Status = "exited"
	StatusNotFound Status = "not_found"
)

// Write sends text followed by a newline to the process's stdin.
// Writes to one handle are serialized; writes to different handles never
// contend. An unknown or cleaned-up handle yields a *NotConnectedError.
func (e *Executor) Write(h Handle, text string) error {
	p, ok := e.procs.Get(h)
	if !ok {
		return &NotConnectedError{Handle: h}
	}
	return p.write(text)
}

// Stop requests forced termination and returns without waiting.
// It is idempotent while the handle is registered. The exit event still
// comes from the exit-wait goroutine.
func (e *Executor) Stop(h Handle) error {
	p, ok := e.procs.Get(h)
	if !ok {
		return &NotFoundError{Handle: h}
	}
	if err := p.kill(); err != nil {
		p.log.Warn("stop failed", "error", err)
		return err
	}
	p.log.Info("stop requested")
	return nil
}

// StopAndWait is Stop followed by waiting until the exit event has been
// delivered and the handle cleaned up, or ctx is done.
func (e *Executor) StopAndWait(ctx context.Context, h Handle) error {
	p, ok := e.procs.Get(h)
	if !ok {
		return &NotFoundError{Handle: h}
	}
	if err := p.kill(); err != nil {
		return err
	}
	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsRunning reports the status of h. When the process has exited but has
// not been cleaned up yet, the first caller gets StatusExited and performs
// the cleanup, so every later call gets StatusNotFound.
// The exit-wait goroutine cleans up right after delivering the exit event,
// so StatusExited is only seen while output drains or the exit Push runs.
func (e *Executor) IsRunning(h Handle) Status {
	p, ok := e.procs.Get(h)
	if !ok {
		return StatusNotFound
	}
	if !p.hasExited() {
		return StatusRunning
	}
	if e.cleanup(p) {
		return StatusExited
	}
	return StatusNotFound
}

// waitExit is the single owner of the exit event for p.
func (e *Executor) waitExit(p *process) {
	defer close(p.done)
	defer logging.LogPanic("executor-wait", nil)

	waitErr := p.cmd.Wait()
	code, err := exitStatus(waitErr)
	p.markExited()
	if err != nil {
		p.log.Error("wait failed", "error", err)
		p.emit(Event{
			Kind:   EventError,
			Handle: p.handle,
			Reason: (&IOError{Handle: p.handle, Op: "wait", Err: err}).Error(),
			At:     time.Now(),
		})
	}

	e.drain(p)
	p.seal()
	p.sink.Push(Event{
		Kind:   EventExit,
		Handle: p.handle,
		Code:   code,
		At:     time.Now(),
	})
	p.log.Info("process exited", "code", code)

	e.cleanup(p)
	p.closeReaders()
}

// drain waits for both pumps to reach end of stream. If output is still
// open after the drain timeout, the read ends are closed to release them.
func (e *Executor) drain(p *process) {
	pumped := make(chan struct{})
	go func() {
		p.pumps.Wait()
		close(pumped)
	}()

	timer := time.NewTimer(e.drainTimeout)
	defer timer.Stop()

	select {
	case <-pumped:
	case <-timer.C:
		p.log.Warn("output still open after exit, closing", "timeout", e.drainTimeout)
		p.closeReaders()
		<-pumped
	}
}

// cleanup removes p from the registry and releases stdin. It also seals p,
// so at most the terminal exit event follows it. It reports whether this
// call did the work.
func (e *Executor) cleanup(p *process) bool {
	did := false
	p.cleanOnce.Do(func() {
		did = true
		p.seal()
		e.procs.Remove(p.handle)
		p.closeStdin()
		p.setState(StateCleaned)
		p.log.Debug("process cleaned up")
	})
	return did
}

// exitStatus converts the result of Wait into an exit code. Processes
// killed by a signal report 128 plus the signal number, as a shell does.
// A non-nil error means Wait itself failed.
func exitStatus(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}
	return -1, err
}
