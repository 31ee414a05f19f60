package tui

import (
	"time"

	"github.com/tessro/sandexec/internal/daemon"
)

// streamEventMsg wraps a daemon stream event for Bubble Tea.
type streamEventMsg struct {
	Event *daemon.StreamEvent
	Err   error
}

// processListMsg contains the tracked processes reported by the daemon.
type processListMsg struct {
	Processes []daemon.ProcessInfo
	Err       error
}

// outputMsg carries the daemon's recorded output for one process.
type outputMsg struct {
	Handle string
	Events []daemon.StreamEvent
	Err    error
}

// writeResultMsg is the result of writing a line to a process's stdin.
type writeResultMsg struct {
	Handle string
	Err    error
}

// stopResultMsg is the result of stopping a process.
type stopResultMsg struct {
	Handle string
	Err    error
}

// tickMsg is sent on regular intervals to drive spinner animation.
type tickMsg time.Time

// refreshMsg triggers a periodic process list refresh.
type refreshMsg time.Time

// clearErrorMsg is sent to clear the error display after a timeout.
type clearErrorMsg struct{}

// streamStartMsg is sent when the event stream is started successfully.
type streamStartMsg struct {
	EventChan <-chan daemon.EventResult
}

// reconnectMsg signals the result of a reconnection attempt.
type reconnectMsg struct {
	Success   bool
	Err       error
	EventChan <-chan daemon.EventResult
}
