// Package supervisor provides the daemon request handler for the executor.
package supervisor

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/event"
	"github.com/tessro/sandexec/internal/executor"
	"github.com/tessro/sandexec/internal/rules"
	"github.com/tessro/sandexec/internal/version"
)

// Version is the supervisor/daemon version.
var Version = version.Version

// Supervisor handles IPC requests against a single Executor.
// It implements the daemon.Handler interface.
type Supervisor struct {
	exec      *executor.Executor
	events    *event.Emitter[executor.Event]
	history   *history
	startedAt time.Time

	shutdownCh chan struct{} // Created at init, closed to signal shutdown
	shutdownMu sync.Mutex    // Protects closing shutdownCh exactly once

	// +checklocks:mu
	server *daemon.Server // Server reference for broadcasting process events
	// +checklocks:mu
	rules *rules.Evaluator // Launch rules; nil allows everything

	mu sync.RWMutex
}

// New creates a Supervisor and the Executor it drives. Every process event
// is published on Events, recorded for process.output and relayed to
// attached clients.
func New(host executor.Host, opts ...executor.Option) *Supervisor {
	return NewWithHistory(DefaultHistoryLines, DefaultRetainedExits, host, opts...)
}

// NewWithHistory is New with explicit output retention: lines per process
// and how many exited processes keep their output.
func NewWithHistory(lines, retainedExits int, host executor.Host, opts ...executor.Option) *Supervisor {
	s := &Supervisor{
		events:     &event.Emitter[executor.Event]{},
		history:    newHistory(lines, retainedExits),
		startedAt:  time.Now(),
		shutdownCh: make(chan struct{}),
	}
	opts = append(opts, executor.WithSink(executor.SinkFunc(s.events.Emit)))
	s.exec = executor.New(host, opts...)
	// Record before broadcasting so a client reacting to an event finds it
	// in process.output.
	s.events.Subscribe(s.relayProcessEvent)
	return s
}

// Handle processes IPC requests and returns responses.
// Implements daemon.Handler.
func (s *Supervisor) Handle(ctx context.Context, req *daemon.Request) *daemon.Response {
	slog.Debug("supervisor handling request", "type", req.Type)
	switch req.Type {
	// Server management
	case daemon.MsgPing:
		return s.handlePing(ctx, req)
	case daemon.MsgShutdown:
		return s.handleShutdown(ctx, req)
	case daemon.MsgStatus:
		return s.handleStatus(ctx, req)

	// Process control
	case daemon.MsgProcessStart:
		return s.handleStart(ctx, req)
	case daemon.MsgProcessWrite:
		return s.handleWrite(ctx, req)
	case daemon.MsgProcessStop:
		return s.handleStop(ctx, req)
	case daemon.MsgProcessRunning:
		return s.handleRunning(ctx, req)
	case daemon.MsgProcessExec:
		return s.handleExec(ctx, req)
	case daemon.MsgProcessList:
		return s.handleList(ctx, req)
	case daemon.MsgProcessOutput:
		return s.handleOutput(ctx, req)

	// Streaming
	case daemon.MsgAttach:
		return s.handleAttach(ctx, req)
	case daemon.MsgDetach:
		return s.handleDetach(ctx, req)

	default:
		return errorResponse(req, daemon.CodeInvalidRequest, "unknown message type: "+string(req.Type))
	}
}

// SetRules installs the launch rules checked before start and exec.
func (s *Supervisor) SetRules(ev *rules.Evaluator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = ev
}

// checkRules returns a *rules.DeniedError if command may not be launched.
func (s *Supervisor) checkRules(ctx context.Context, command string, sandboxed bool) error {
	s.mu.RLock()
	ev := s.rules
	s.mu.RUnlock()
	if ev == nil {
		return nil
	}
	err := ev.Check(ctx, rules.Request{Command: command, Sandboxed: sandboxed})
	if err != nil {
		slog.Info("launch denied", "command", truncate(command, 80), "sandboxed", sandboxed, "error", err)
	}
	return err
}

// Executor returns the executor this supervisor drives.
func (s *Supervisor) Executor() *executor.Executor {
	return s.exec
}

// Events returns the process event hub.
func (s *Supervisor) Events() *event.Emitter[executor.Event] {
	return s.events
}

// ShutdownCh returns a channel that is closed when shutdown is requested.
func (s *Supervisor) ShutdownCh() <-chan struct{} {
	return s.shutdownCh
}

// StartedAt returns when the supervisor was created.
func (s *Supervisor) StartedAt() time.Time {
	return s.startedAt
}

// Shutdown stops every tracked process and waits for their exit events.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	return s.exec.Shutdown(ctx)
}

func (s *Supervisor) requestShutdown() {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	select {
	case <-s.shutdownCh:
	default:
		close(s.shutdownCh)
	}
}

func (s *Supervisor) statusPayload() daemon.StatusResponse {
	host := s.exec.Host()

	var socket string
	var attached int
	if srv := s.Server(); srv != nil {
		socket = srv.SocketPath()
		attached = srv.AttachedCount()
	}

	return daemon.StatusResponse{
		Daemon: daemon.DaemonStatus{
			Running:   true,
			PID:       os.Getpid(),
			StartedAt: s.startedAt,
			Version:   Version,
			Socket:    socket,
			Attached:  attached,
		},
		Executor: daemon.ExecutorStatus{
			Tracked:      s.exec.Count(),
			Shell:        s.exec.Shell(),
			FilesDir:     host.FilesDir,
			NativeLibDir: host.NativeLibDir,
			TargetSDK:    host.TargetSDK,
			FDroid:       host.FDroid(),
		},
	}
}
