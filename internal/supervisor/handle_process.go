package supervisor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
)

// handleStart launches a long-running process.
func (s *Supervisor) handleStart(ctx context.Context, req *daemon.Request) *daemon.Response {
	var startReq daemon.StartRequest
	if err := unmarshalPayload(req.Payload, &startReq); err != nil {
		return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
	}

	if err := s.checkRules(ctx, startReq.Command, startReq.Sandboxed); err != nil {
		return failure(req, err)
	}

	h, err := s.exec.Start(startReq.Command, startReq.Sandboxed, nil)
	if err != nil {
		return failure(req, err)
	}
	slog.Debug("process started via ipc", "handle", h, "command", truncate(startReq.Command, 80))
	return successResponse(req, daemon.StartResponse{Handle: string(h)})
}

// handleWrite sends a line to a process's stdin.
func (s *Supervisor) handleWrite(ctx context.Context, req *daemon.Request) *daemon.Response {
	var writeReq daemon.WriteRequest
	if err := unmarshalPayload(req.Payload, &writeReq); err != nil {
		return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
	}

	if err := s.exec.Write(executor.Handle(writeReq.Handle), writeReq.Text); err != nil {
		return failure(req, err)
	}
	return successResponse(req, nil)
}

// handleStop kills a process, optionally waiting until its handle is released.
func (s *Supervisor) handleStop(ctx context.Context, req *daemon.Request) *daemon.Response {
	var stopReq daemon.StopRequest
	if err := unmarshalPayload(req.Payload, &stopReq); err != nil {
		return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
	}
	h := executor.Handle(stopReq.Handle)

	if !stopReq.Wait {
		if err := s.exec.Stop(h); err != nil {
			return failure(req, err)
		}
		return successResponse(req, nil)
	}

	if stopReq.Timeout != "" {
		d, err := time.ParseDuration(stopReq.Timeout)
		if err != nil || d <= 0 {
			return errorResponse(req, daemon.CodeInvalidRequest, "invalid timeout: "+stopReq.Timeout)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := s.exec.StopAndWait(ctx, h); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return errorResponse(req, daemon.CodeTimeout, "timed out waiting for "+stopReq.Handle+" to exit")
		}
		return failure(req, err)
	}
	return successResponse(req, nil)
}

// handleRunning reports whether a process is running.
func (s *Supervisor) handleRunning(ctx context.Context, req *daemon.Request) *daemon.Response {
	var runReq daemon.RunningRequest
	if err := unmarshalPayload(req.Payload, &runReq); err != nil {
		return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
	}

	status := s.exec.IsRunning(executor.Handle(runReq.Handle))
	return successResponse(req, daemon.RunningResponse{
		Handle: runReq.Handle,
		Status: string(status),
	})
}

// handleExec runs a command to completion on the connection's goroutine.
func (s *Supervisor) handleExec(ctx context.Context, req *daemon.Request) *daemon.Response {
	var execReq daemon.ExecRequest
	if err := unmarshalPayload(req.Payload, &execReq); err != nil {
		return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
	}

	if err := s.checkRules(ctx, execReq.Command, execReq.Sandboxed); err != nil {
		return failure(req, err)
	}

	out, err := s.exec.Exec(execReq.Command, execReq.Sandboxed)
	if err != nil {
		return failure(req, err)
	}
	return successResponse(req, daemon.ExecResponse{Output: out})
}

// handleList lists tracked processes in launch order.
func (s *Supervisor) handleList(ctx context.Context, req *daemon.Request) *daemon.Response {
	infos := s.exec.List()
	procs := make([]daemon.ProcessInfo, 0, len(infos))
	for _, info := range infos {
		procs = append(procs, daemon.ProcessInfo{
			Handle:     string(info.Handle),
			PID:        info.PID,
			Command:    info.Command,
			Sandboxed:  info.Sandboxed,
			State:      string(info.State),
			LaunchedAt: info.LaunchedAt,
		})
	}
	return successResponse(req, daemon.ProcessListResponse{Processes: procs})
}

// handleOutput returns the retained events of a process, including one that
// has already exited.
func (s *Supervisor) handleOutput(ctx context.Context, req *daemon.Request) *daemon.Response {
	var outReq daemon.OutputRequest
	if err := unmarshalPayload(req.Payload, &outReq); err != nil {
		return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
	}
	if outReq.Lines < 0 {
		return errorResponse(req, daemon.CodeInvalidRequest, "lines must not be negative")
	}

	events, ok := s.history.last(outReq.Handle, outReq.Lines)
	if !ok {
		// Tracked but silent so far.
		if _, tracked := s.exec.Lookup(executor.Handle(outReq.Handle)); !tracked {
			return failure(req, &executor.NotFoundError{Handle: executor.Handle(outReq.Handle)})
		}
	}
	if events == nil {
		events = []daemon.StreamEvent{}
	}
	return successResponse(req, daemon.OutputResponse{Handle: outReq.Handle, Events: events})
}
