// Package daemon provides the sandexec daemon server and IPC protocol.
package daemon

import "time"

// MessageType identifies the type of IPC message.
type MessageType string

const (
	// Server management
	MsgPing     MessageType = "ping"
	MsgShutdown MessageType = "shutdown"
	MsgStatus   MessageType = "status"

	// Process control
	MsgProcessStart   MessageType = "process.start"
	MsgProcessWrite   MessageType = "process.write"
	MsgProcessStop    MessageType = "process.stop"
	MsgProcessRunning MessageType = "process.running"
	MsgProcessExec    MessageType = "process.exec"
	MsgProcessList    MessageType = "process.list"
	MsgProcessOutput  MessageType = "process.output"

	// Event streaming
	MsgAttach MessageType = "attach" // Subscribe to process events
	MsgDetach MessageType = "detach" // Unsubscribe from process events
)

// Error codes carried in Response.Code.
const (
	CodeInvalidRequest = "invalid_request"
	CodeLaunch         = "launch_error"
	CodeNotFound       = "not_found"
	CodeNotConnected   = "not_connected"
	CodeIO             = "io_error"
	CodeCommandFailed  = "command_failed"
	CodeTimeout        = "timeout"
	CodeDenied         = "denied"
	CodeInternal       = "internal"
)

// Request is the envelope for all IPC requests.
type Request struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`      // Optional request ID for correlation
	Payload any         `json:"payload,omitempty"` // Type-specific payload
}

// Response is the envelope for all IPC responses.
type Response struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"` // Correlates with request ID
	Success bool        `json:"success"`
	Code    string      `json:"code,omitempty"` // Error kind when Success is false
	Error   string      `json:"error,omitempty"`
	Payload any         `json:"payload,omitempty"` // Type-specific payload
}

// PingResponse is the payload for ping responses.
type PingResponse struct {
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
	StartedAt time.Time `json:"started_at"`
}

// StatusResponse is the payload for status responses.
type StatusResponse struct {
	Daemon   DaemonStatus   `json:"daemon" yaml:"daemon"`
	Executor ExecutorStatus `json:"executor" yaml:"executor"`
}

// DaemonStatus contains daemon health info.
type DaemonStatus struct {
	Running   bool      `json:"running" yaml:"running"`
	PID       int       `json:"pid" yaml:"pid"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Version   string    `json:"version" yaml:"version"`
	Socket    string    `json:"socket" yaml:"socket"`
	Attached  int       `json:"attached" yaml:"attached"` // Streaming clients
}

// ExecutorStatus describes the launch environment and tracked processes.
type ExecutorStatus struct {
	Tracked      int    `json:"tracked" yaml:"tracked"`
	Shell        string `json:"shell" yaml:"shell"`
	FilesDir     string `json:"files_dir" yaml:"files_dir"`
	NativeLibDir string `json:"native_lib_dir" yaml:"native_lib_dir"`
	TargetSDK    int    `json:"target_sdk" yaml:"target_sdk"`
	FDroid       bool   `json:"fdroid" yaml:"fdroid"`
}

// StartRequest is the payload for process.start requests.
type StartRequest struct {
	Command   string `json:"command"`
	Sandboxed bool   `json:"sandboxed,omitempty"`
}

// StartResponse is the payload for process.start responses.
type StartResponse struct {
	Handle string `json:"handle"`
}

// WriteRequest is the payload for process.write requests.
// The daemon appends the newline.
type WriteRequest struct {
	Handle string `json:"handle"`
	Text   string `json:"text"`
}

// StopRequest is the payload for process.stop requests.
type StopRequest struct {
	Handle  string `json:"handle"`
	Wait    bool   `json:"wait,omitempty"`    // Block until the handle is cleaned up
	Timeout string `json:"timeout,omitempty"` // Go duration bounding Wait; empty waits indefinitely
}

// RunningRequest is the payload for process.running requests.
type RunningRequest struct {
	Handle string `json:"handle"`
}

// RunningResponse is the payload for process.running responses.
type RunningResponse struct {
	Handle string `json:"handle"`
	Status string `json:"status"` // running, exited, not_found
}

// ExecRequest is the payload for process.exec requests.
type ExecRequest struct {
	Command   string `json:"command"`
	Sandboxed bool   `json:"sandboxed,omitempty"`
}

// ExecResponse is the payload for successful process.exec responses.
type ExecResponse struct {
	Output string `json:"output"`
}

// ProcessInfo describes one tracked process.
type ProcessInfo struct {
	Handle     string    `json:"handle" yaml:"handle"`
	PID        int       `json:"pid" yaml:"pid"`
	Command    string    `json:"command" yaml:"command"`
	Sandboxed  bool      `json:"sandboxed" yaml:"sandboxed"`
	State      string    `json:"state" yaml:"state"`
	LaunchedAt time.Time `json:"launched_at" yaml:"launched_at"`
}

// ProcessListResponse is the payload for process.list responses.
type ProcessListResponse struct {
	Processes []ProcessInfo `json:"processes" yaml:"processes"`
}

// OutputRequest is the payload for process.output requests.
type OutputRequest struct {
	Handle string `json:"handle"`
	Lines  int    `json:"lines,omitempty"` // Most recent events to return; 0 means all retained
}

// OutputResponse is the payload for process.output responses.
type OutputResponse struct {
	Handle string        `json:"handle"`
	Events []StreamEvent `json:"events"`
}

// AttachRequest is the payload for attach requests.
type AttachRequest struct {
	Handles []string `json:"handles,omitempty"` // Filter: empty means all processes
}

// Stream event types.
const (
	EventStdout = "stdout"
	EventStderr = "stderr"
	EventExit   = "exit"
	EventError  = "error"
)

// StreamEvent is sent to attached clients for every process event.
type StreamEvent struct {
	Type   string    `json:"type"` // stdout, stderr, exit, error
	Handle string    `json:"handle"`
	Line   string    `json:"line,omitempty"`   // For stdout/stderr
	Code   int       `json:"code"`             // For exit
	Reason string    `json:"reason,omitempty"` // For error
	At     time.Time `json:"at"`
}
