package supervisor

import (
	"context"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
)

// handleAttach subscribes a client to process events.
func (s *Supervisor) handleAttach(ctx context.Context, req *daemon.Request) *daemon.Response {
	var attachReq daemon.AttachRequest
	if req.Payload != nil {
		if err := unmarshalPayload(req.Payload, &attachReq); err != nil {
			return errorResponse(req, daemon.CodeInvalidRequest, "invalid payload: "+err.Error())
		}
	}

	conn := daemon.ConnFromContext(ctx)
	srv := daemon.ServerFromContext(ctx)
	if conn == nil || srv == nil {
		return errorResponse(req, daemon.CodeInternal, "internal error: missing connection context")
	}

	if err := srv.Attach(conn, attachReq.Handles); err != nil {
		return errorResponse(req, daemon.CodeInternal, err.Error())
	}
	return successResponse(req, nil)
}

// handleDetach unsubscribes a client from process events.
func (s *Supervisor) handleDetach(ctx context.Context, req *daemon.Request) *daemon.Response {
	conn := daemon.ConnFromContext(ctx)
	srv := daemon.ServerFromContext(ctx)
	if conn == nil || srv == nil {
		return errorResponse(req, daemon.CodeInternal, "internal error: missing connection context")
	}

	srv.Detach(conn)
	return successResponse(req, nil)
}

// SetServer sets the daemon server for broadcasting events.
func (s *Supervisor) SetServer(srv *daemon.Server) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.server = srv
}

// Server returns the daemon server, or nil if not set.
func (s *Supervisor) Server() *daemon.Server {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.server
}

// relayProcessEvent records an executor event and relays it to attached
// clients.
func (s *Supervisor) relayProcessEvent(ev executor.Event) {
	wire := StreamEvent(ev)
	s.history.record(wire)
	if srv := s.Server(); srv != nil {
		srv.Broadcast(wire)
	}
}

// StreamEvent converts an executor event to its wire form.
func StreamEvent(ev executor.Event) *daemon.StreamEvent {
	return &daemon.StreamEvent{
		Type:   string(ev.Kind),
		Handle: string(ev.Handle),
		Line:   ev.Line,
		Code:   ev.Code,
		Reason: ev.Reason,
		At:     ev.At,
	}
}
