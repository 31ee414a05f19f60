package daemon

import (
	"errors"
	"fmt"

	"github.com/tessro/sandexec/internal/executor"
	"github.com/tessro/sandexec/internal/rules"
)

// Sentinel errors for daemon client operations.
// These can be checked using errors.Is().
var (
	// ErrNotConnected is returned when an operation is attempted without a connection.
	ErrNotConnected = errors.New("daemon: not connected")

	// ErrConnectionFailed is returned when connecting to the daemon fails.
	ErrConnectionFailed = errors.New("daemon: connection failed")

	// ErrRequestTimeout is returned when a request times out.
	ErrRequestTimeout = errors.New("daemon: request timeout")
)

// ServerError represents an error returned by the daemon server.
// Code carries the error kind so callers can match executor sentinels
// across the socket.
type ServerError struct {
	Operation string
	Code      string
	Message   string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Operation, e.Message)
}

// Is maps the wire code back onto the executor sentinel it was produced from.
func (e *ServerError) Is(target error) bool {
	switch e.Code {
	case CodeLaunch:
		return target == executor.ErrLaunch
	case CodeNotFound:
		return target == executor.ErrNotFound
	case CodeNotConnected:
		return target == executor.ErrNotConnected
	case CodeIO:
		return target == executor.ErrIO
	case CodeCommandFailed:
		return target == executor.ErrCommandFailed
	case CodeTimeout:
		return target == ErrRequestTimeout
	case CodeDenied:
		return target == rules.ErrDenied
	}
	return false
}

// NewServerError creates a new ServerError for the given operation.
func NewServerError(operation, code, message string) *ServerError {
	return &ServerError{
		Operation: operation,
		Code:      code,
		Message:   message,
	}
}

// CodeFor returns the wire code for an error produced by the executor or
// the launch rules.
func CodeFor(err error) string {
	switch {
	case errors.Is(err, rules.ErrDenied):
		return CodeDenied
	case errors.Is(err, executor.ErrLaunch):
		return CodeLaunch
	case errors.Is(err, executor.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, executor.ErrNotConnected):
		return CodeNotConnected
	case errors.Is(err, executor.ErrCommandFailed):
		return CodeCommandFailed
	case errors.Is(err, executor.ErrIO):
		return CodeIO
	}
	return CodeInternal
}
