package executor

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a tracked process.
type State string

const (
	StateCreated    State = "created"
	StateRunning    State = "running"
	StateExited     State = "exited"
	StateTerminated State = "terminated" // exited after Stop
	StateCleaned    State = "cleaned"
)

// process is the registry record for one launched command.
// The registry owns it from registration until cleanup.
type process struct {
	handle     Handle
	cmd        *exec.Cmd
	command    string
	sandboxed  bool
	launchedAt time.Time
	sink       Sink
	log        *slog.Logger

	// stdinMu serializes writes so lines from concurrent callers never
	// interleave.
	stdinMu sync.Mutex
	// +checklocks:stdinMu
	stdin io.WriteCloser

	stdout *os.File // read end, owned by the stdout pump
	stderr *os.File // read end, owned by the stderr pump
	pumps  sync.WaitGroup

	mu sync.Mutex
	// +checklocks:mu
	state State
	// +checklocks:mu
	stopRequested bool

	sealed atomic.Bool

	exited    chan struct{} // closed once Wait has returned
	done      chan struct{} // closed once the exit event is delivered and cleanup ran
	cleanOnce sync.Once
	closeOnce sync.Once
}

func newProcess(h Handle, cmd *exec.Cmd, command string, sandboxed bool, sink Sink, log *slog.Logger) *process {
	return &process{
		handle:     h,
		cmd:        cmd,
		command:    command,
		sandboxed:  sandboxed,
		launchedAt: time.Now(),
		sink:       sink,
		log:        log,
		state:      StateCreated,
		exited:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (p *process) info() Info {
	p.mu.Lock()
	state := p.state
	p.mu.Unlock()

	pid := 0
	if p.cmd.Process != nil {
		pid = p.cmd.Process.Pid
	}
	return Info{
		Handle:     p.handle,
		PID:        pid,
		Command:    p.command,
		Sandboxed:  p.sandboxed,
		State:      state,
		LaunchedAt: p.launchedAt,
	}
}

func (p *process) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// emit delivers a stream or error event unless the record is sealed.
// No lock is held across Push, so a sink may call back into the executor.
// The exit event still comes last: waitExit drains the pumps, and with
// them any Push in flight, before it seals and delivers the exit.
func (p *process) emit(ev Event) bool {
	if p.sealed.Load() {
		return false
	}
	p.sink.Push(ev)
	return true
}

// seal stops all further stream and error events.
func (p *process) seal() {
	p.sealed.Store(true)
}

// markExited records the exit and closes the exited channel.
func (p *process) markExited() {
	p.mu.Lock()
	if p.stopRequested {
		p.state = StateTerminated
	} else {
		p.state = StateExited
	}
	p.mu.Unlock()
	close(p.exited)
}

func (p *process) hasExited() bool {
	select {
	case <-p.exited:
		return true
	default:
		return false
	}
}

// write sends text plus a newline to stdin.
func (p *process) write(text string) error {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	if p.stdin == nil {
		return &NotConnectedError{Handle: p.handle}
	}
	if _, err := io.WriteString(p.stdin, text+"\n"); err != nil {
		if errors.Is(err, os.ErrClosed) {
			return &NotConnectedError{Handle: p.handle}
		}
		return &IOError{Handle: p.handle, Op: "write", Err: err}
	}
	return nil
}

func (p *process) closeStdin() {
	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()
	if p.stdin != nil {
		_ = p.stdin.Close()
		p.stdin = nil
	}
}

// closeReaders closes both read ends, unblocking any pump still reading.
func (p *process) closeReaders() {
	p.closeOnce.Do(func() {
		_ = p.stdout.Close()
		_ = p.stderr.Close()
	})
}

// kill requests forced termination. It is a no-op once the process has exited.
func (p *process) kill() error {
	p.mu.Lock()
	p.stopRequested = true
	p.mu.Unlock()

	if p.hasExited() {
		return nil
	}
	if err := killProcess(p.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return &IOError{Handle: p.handle, Op: "kill", Err: err}
	}
	return nil
}
