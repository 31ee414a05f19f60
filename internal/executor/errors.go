package executor

import (
	"errors"
	"fmt"
)

// Sentinel errors for executor operations.
// Every error returned by a public operation matches exactly one of these
// through errors.Is.
var (
	// ErrLaunch is returned when the OS refuses to start a process.
	ErrLaunch = errors.New("launch failed")

	// ErrNotFound is returned when stopping a handle that is unknown or already cleaned up.
	ErrNotFound = errors.New("process not found")

	// ErrNotConnected is returned when writing to a handle with no open stdin.
	ErrNotConnected = errors.New("process not connected")

	// ErrIO is returned when reading from or writing to a process fails.
	ErrIO = errors.New("process i/o failed")

	// ErrCommandFailed is returned by Exec when the command exits non-zero.
	ErrCommandFailed = errors.New("command failed")
)

// errEmptyCommand is wrapped in a LaunchError when the command is blank.
var errEmptyCommand = errors.New("Expected one non-empty string argument.")

// LaunchError reports a failed spawn. No handle exists for the command.
type LaunchError struct {
	Command string
	Err     error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch %q: %v", e.Command, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func (e *LaunchError) Is(target error) bool { return target == ErrLaunch }

// NotFoundError reports an operation on a handle the registry does not hold.
type NotFoundError struct {
	Handle Handle
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("process %s not found", e.Handle)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NotConnectedError reports a write to a handle whose stdin is gone.
type NotConnectedError struct {
	Handle Handle
}

func (e *NotConnectedError) Error() string {
	return fmt.Sprintf("process %s not connected", e.Handle)
}

func (e *NotConnectedError) Is(target error) bool { return target == ErrNotConnected }

// IOError reports a failed read, write or signal on a live process.
type IOError struct {
	Handle Handle
	Op     string
	Err    error
}

func (e *IOError) Error() string {
	if e.Handle == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// CommandError is the failure result of Exec for a non-zero exit.
// Message is the trimmed stderr, or a generic line naming the code.
type CommandError struct {
	Code    int
	Message string
}

func (e *CommandError) Error() string { return e.Message }

func (e *CommandError) Is(target error) bool { return target == ErrCommandFailed }
