package executor

import (
	"strconv"
	"time"
)

// Handle identifies a tracked process. Handles are UUID strings and are
// never reused.
type Handle string

// EventKind identifies the variant of an Event.
type EventKind string

const (
	EventStdout EventKind = "stdout"
	EventStderr EventKind = "stderr"
	EventExit   EventKind = "exit"
	EventError  EventKind = "error"
)

// Event is a single notification about a tracked process.
// Stream events carry Line, exit events carry Code and error events carry
// Reason. Events of one stream arrive in read order; there is no ordering
// between stdout and stderr. The exit event is always the last one for a
// handle.
type Event struct {
	Kind   EventKind `json:"kind"`
	Handle Handle    `json:"handle"`
	Line   string    `json:"line,omitempty"`
	Code   int       `json:"code"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// IsStream reports whether the event carries an output line.
func (e Event) IsStream() bool {
	return e.Kind == EventStdout || e.Kind == EventStderr
}

// String renders the event as a single prefixed line, e.g. "stdout:hello"
// or "exit:0".
func (e Event) String() string {
	switch e.Kind {
	case EventStdout, EventStderr:
		return string(e.Kind) + ":" + e.Line
	case EventExit:
		return "exit:" + strconv.Itoa(e.Code)
	default:
		return string(e.Kind) + ":" + e.Reason
	}
}

// Sink receives process events. Push is fire-and-forget and is called from
// the goroutines serving a process, so implementations must be safe for
// concurrent use. A slow Push delays that process's pumps; it never drops,
// and it never blocks Write, Stop, IsRunning or List. Push may call back
// into the executor, but must not wait for its own process's exit.
type Sink interface {
	Push(ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev Event)

// Push implements Sink.
func (f SinkFunc) Push(ev Event) { f(ev) }

// Discard is a Sink that drops every event.
var Discard Sink = SinkFunc(func(Event) {})
