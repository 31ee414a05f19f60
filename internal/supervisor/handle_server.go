package supervisor

import (
	"context"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
)

// handlePing responds to ping requests.
func (s *Supervisor) handlePing(ctx context.Context, req *daemon.Request) *daemon.Response {
	uptime := time.Since(s.startedAt)
	return successResponse(req, daemon.PingResponse{
		Version:   Version,
		Uptime:    uptime.Round(time.Second).String(),
		StartedAt: s.startedAt,
	})
}

// handleShutdown initiates daemon shutdown. Processes are stopped by the
// daemon's run loop once it observes ShutdownCh.
func (s *Supervisor) handleShutdown(ctx context.Context, req *daemon.Request) *daemon.Response {
	s.requestShutdown()
	return successResponse(req, nil)
}

// handleStatus reports daemon health and the launch environment.
func (s *Supervisor) handleStatus(ctx context.Context, req *daemon.Request) *daemon.Response {
	return successResponse(req, s.statusPayload())
}
