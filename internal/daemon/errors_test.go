package daemon

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tessro/sandexec/internal/executor"
	"github.com/tessro/sandexec/internal/rules"
)

func TestSentinelMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrNotConnected, "daemon: not connected"},
		{ErrConnectionFailed, "daemon: connection failed"},
		{ErrRequestTimeout, "daemon: request timeout"},
		{ErrAlreadyRunning, "daemon: already running"},
	}
	for _, tt := range tests {
		if tt.err.Error() != tt.want {
			t.Errorf("Error() = %q, want %q", tt.err.Error(), tt.want)
		}
	}
}

func TestServerError(t *testing.T) {
	t.Run("basic error", func(t *testing.T) {
		err := NewServerError("stop", CodeNotFound, "process not found: abc")
		if err.Error() != "stop failed: process not found: abc" {
			t.Errorf("unexpected error message: %s", err.Error())
		}
		if err.Operation != "stop" {
			t.Errorf("unexpected operation: %s", err.Operation)
		}
		if err.Code != CodeNotFound {
			t.Errorf("unexpected code: %s", err.Code)
		}
	})

	t.Run("errors.As works", func(t *testing.T) {
		var err error = fmt.Errorf("wrapped: %w", NewServerError("exec", CodeCommandFailed, "boom"))

		var serverErr *ServerError
		if !errors.As(err, &serverErr) {
			t.Fatal("errors.As should match *ServerError")
		}
		if serverErr.Message != "boom" {
			t.Errorf("unexpected message: %s", serverErr.Message)
		}
	})

	t.Run("codes map to executor sentinels", func(t *testing.T) {
		tests := []struct {
			code   string
			target error
		}{
			{CodeLaunch, executor.ErrLaunch},
			{CodeNotFound, executor.ErrNotFound},
			{CodeNotConnected, executor.ErrNotConnected},
			{CodeIO, executor.ErrIO},
			{CodeCommandFailed, executor.ErrCommandFailed},
			{CodeTimeout, ErrRequestTimeout},
			{CodeDenied, rules.ErrDenied},
		}
		for _, tc := range tests {
			err := NewServerError("op", tc.code, "msg")
			if !errors.Is(err, tc.target) {
				t.Errorf("code %q should match %v", tc.code, tc.target)
			}
			if errors.Is(err, ErrNotConnected) {
				t.Errorf("code %q should not match daemon.ErrNotConnected", tc.code)
			}
		}

		if errors.Is(NewServerError("op", CodeInvalidRequest, "bad"), executor.ErrLaunch) {
			t.Error("invalid_request should not match any executor sentinel")
		}
	})
}

func TestCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"launch", &executor.LaunchError{Command: "x", Err: errors.New("no such file")}, CodeLaunch},
		{"not found", &executor.NotFoundError{Handle: "h"}, CodeNotFound},
		{"not connected", &executor.NotConnectedError{Handle: "h"}, CodeNotConnected},
		{"io", &executor.IOError{Op: "write", Handle: "h", Err: errors.New("broken pipe")}, CodeIO},
		{"command", &executor.CommandError{Code: 1, Message: "nope"}, CodeCommandFailed},
		{"denied", &rules.DeniedError{Command: "rm x", Reason: "matched deny rule"}, CodeDenied},
		{"other", errors.New("other"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeFor(tt.err); got != tt.want {
				t.Errorf("CodeFor() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSendNotConnectedError(t *testing.T) {
	c := NewClient("/tmp/test.sock")
	_, err := c.Send(&Request{Type: MsgPing})
	if err == nil {
		t.Fatal("expected error when not connected")
	}

	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got: %v", err)
	}
}
