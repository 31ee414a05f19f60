package supervisor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
	"github.com/tessro/sandexec/internal/rules"
)

// newTestSupervisor creates a supervisor rooted in a temp files dir.
func newTestSupervisor(t *testing.T) *Supervisor {
	t.Helper()
	sup := New(executor.Host{FilesDir: t.TempDir(), TargetSDK: 28},
		executor.WithDrainTimeout(500*time.Millisecond))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sup.Shutdown(ctx)
	})
	return sup
}

// recordEvents subscribes to sup and returns a channel of events.
func recordEvents(t *testing.T, sup *Supervisor) <-chan executor.Event {
	t.Helper()
	ch := make(chan executor.Event, 256)
	unsubscribe := sup.Events().Subscribe(func(ev executor.Event) { ch <- ev })
	t.Cleanup(unsubscribe)
	return ch
}

func waitExit(t *testing.T, events <-chan executor.Event, h string) executor.Event {
	t.Helper()
	timeout := time.After(10 * time.Second)
	for {
		select {
		case ev := <-events:
			if string(ev.Handle) == h && ev.Kind == executor.EventExit {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for exit of %s", h)
		}
	}
}

func call(t *testing.T, sup *Supervisor, typ daemon.MessageType, payload any) *daemon.Response {
	t.Helper()
	resp := sup.Handle(context.Background(), &daemon.Request{Type: typ, ID: "test", Payload: payload})
	if resp.Type != typ || resp.ID != "test" {
		t.Errorf("response correlation = %s/%s", resp.Type, resp.ID)
	}
	return resp
}

func TestSupervisor_HandlePing(t *testing.T) {
	sup := newTestSupervisor(t)

	resp := call(t, sup, daemon.MsgPing, nil)
	if !resp.Success {
		t.Fatalf("expected success, got error: %s", resp.Error)
	}

	payload, ok := resp.Payload.(daemon.PingResponse)
	if !ok {
		t.Fatalf("expected PingResponse payload, got %T", resp.Payload)
	}
	if payload.Version != Version {
		t.Errorf("expected version %s, got %s", Version, payload.Version)
	}
	if payload.StartedAt.IsZero() {
		t.Error("expected non-zero started_at")
	}
}

func TestSupervisor_HandleShutdown(t *testing.T) {
	sup := newTestSupervisor(t)

	for range 2 {
		if resp := call(t, sup, daemon.MsgShutdown, nil); !resp.Success {
			t.Fatalf("shutdown failed: %s", resp.Error)
		}
	}

	select {
	case <-sup.ShutdownCh():
	default:
		t.Error("shutdown channel should be closed")
	}
}

func TestSupervisor_HandleStatus(t *testing.T) {
	sup := newTestSupervisor(t)

	resp := call(t, sup, daemon.MsgStatus, nil)
	if !resp.Success {
		t.Fatalf("status failed: %s", resp.Error)
	}
	status := resp.Payload.(daemon.StatusResponse)
	if !status.Daemon.Running {
		t.Error("daemon should report running")
	}
	if status.Executor.Shell != executor.DefaultShell {
		t.Errorf("shell = %q", status.Executor.Shell)
	}
	if status.Executor.TargetSDK != 28 || !status.Executor.FDroid {
		t.Errorf("executor status = %+v, want target 28 and fdroid", status.Executor)
	}
}

func TestSupervisor_HandleUnknownType(t *testing.T) {
	sup := newTestSupervisor(t)

	resp := call(t, sup, "bogus", nil)
	if resp.Success {
		t.Fatal("unknown type should fail")
	}
	if resp.Code != daemon.CodeInvalidRequest {
		t.Errorf("code = %q, want %q", resp.Code, daemon.CodeInvalidRequest)
	}
}

func TestSupervisor_ProcessLifecycle(t *testing.T) {
	sup := newTestSupervisor(t)
	events := recordEvents(t, sup)

	resp := call(t, sup, daemon.MsgProcessStart, daemon.StartRequest{Command: "read line; echo got $line"})
	if !resp.Success {
		t.Fatalf("start failed: %s", resp.Error)
	}
	h := resp.Payload.(daemon.StartResponse).Handle

	resp = call(t, sup, daemon.MsgProcessRunning, daemon.RunningRequest{Handle: h})
	if got := resp.Payload.(daemon.RunningResponse).Status; got != "running" {
		t.Errorf("status = %q, want running", got)
	}

	resp = call(t, sup, daemon.MsgProcessList, nil)
	list := resp.Payload.(daemon.ProcessListResponse)
	if len(list.Processes) != 1 || list.Processes[0].Handle != h {
		t.Fatalf("list = %+v", list)
	}
	if list.Processes[0].PID <= 0 {
		t.Errorf("pid = %d", list.Processes[0].PID)
	}

	if resp := call(t, sup, daemon.MsgProcessWrite, daemon.WriteRequest{Handle: h, Text: "ping"}); !resp.Success {
		t.Fatalf("write failed: %s", resp.Error)
	}

	var lines []string
	timeout := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case ev := <-events:
			switch ev.Kind {
			case executor.EventStdout:
				lines = append(lines, ev.Line)
			case executor.EventExit:
				if ev.Code != 0 {
					t.Errorf("exit code = %d", ev.Code)
				}
				done = true
			}
		case <-timeout:
			t.Fatal("timed out waiting for exit")
		}
	}
	if len(lines) != 1 || lines[0] != "got ping" {
		t.Errorf("stdout = %v, want [got ping]", lines)
	}

	// The exit event precedes cleanup, so the first status query after it
	// may still see the exited process.
	resp = call(t, sup, daemon.MsgProcessRunning, daemon.RunningRequest{Handle: h})
	if got := resp.Payload.(daemon.RunningResponse).Status; got != "exited" && got != "not_found" {
		t.Errorf("status after exit = %q", got)
	}

	resp = call(t, sup, daemon.MsgProcessStop, daemon.StopRequest{Handle: h})
	if resp.Success || resp.Code != daemon.CodeNotFound {
		t.Errorf("stop after exit = %+v, want not_found", resp)
	}
}

func TestSupervisor_StopWait(t *testing.T) {
	sup := newTestSupervisor(t)
	events := recordEvents(t, sup)

	resp := call(t, sup, daemon.MsgProcessStart, daemon.StartRequest{Command: "sleep 30"})
	if !resp.Success {
		t.Fatalf("start failed: %s", resp.Error)
	}
	h := resp.Payload.(daemon.StartResponse).Handle

	resp = call(t, sup, daemon.MsgProcessStop, daemon.StopRequest{Handle: h, Wait: true, Timeout: "10s"})
	if !resp.Success {
		t.Fatalf("stop --wait failed: %s", resp.Error)
	}

	// The exit event has been delivered before StopAndWait returns.
	select {
	case ev := <-events:
		if ev.Kind != executor.EventExit || ev.Code != 128+9 {
			t.Errorf("event = %+v, want exit 137", ev)
		}
	default:
		t.Fatal("exit event not delivered before stop returned")
	}

	resp = call(t, sup, daemon.MsgProcessRunning, daemon.RunningRequest{Handle: h})
	if got := resp.Payload.(daemon.RunningResponse).Status; got != "not_found" {
		t.Errorf("status after stop --wait = %q, want not_found", got)
	}
}

func TestSupervisor_StopInvalidTimeout(t *testing.T) {
	sup := newTestSupervisor(t)
	resp := call(t, sup, daemon.MsgProcessStop, daemon.StopRequest{Handle: "x", Wait: true, Timeout: "soon"})
	if resp.Success || resp.Code != daemon.CodeInvalidRequest {
		t.Errorf("resp = %+v, want invalid_request", resp)
	}
}

func TestSupervisor_ErrorCodes(t *testing.T) {
	sup := newTestSupervisor(t)

	tests := []struct {
		name    string
		typ     daemon.MessageType
		payload any
		code    string
	}{
		{"empty start", daemon.MsgProcessStart, daemon.StartRequest{Command: "  "}, daemon.CodeLaunch},
		{"write unknown", daemon.MsgProcessWrite, daemon.WriteRequest{Handle: "nope", Text: "x"}, daemon.CodeNotConnected},
		{"stop unknown", daemon.MsgProcessStop, daemon.StopRequest{Handle: "nope"}, daemon.CodeNotFound},
		{"exec failure", daemon.MsgProcessExec, daemon.ExecRequest{Command: "exit 3"}, daemon.CodeCommandFailed},
		{"bad payload", daemon.MsgProcessStart, "not an object", daemon.CodeInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, sup, tt.typ, tt.payload)
			if resp.Success {
				t.Fatal("expected failure")
			}
			if resp.Code != tt.code {
				t.Errorf("code = %q, want %q (error %q)", resp.Code, tt.code, resp.Error)
			}
		})
	}

	resp := call(t, sup, daemon.MsgProcessStart, daemon.StartRequest{Command: ""})
	if resp.Error == "" {
		t.Error("launch failure should carry a message")
	}
}

func TestSupervisor_HandleExec(t *testing.T) {
	sup := newTestSupervisor(t)

	resp := call(t, sup, daemon.MsgProcessExec, daemon.ExecRequest{Command: "echo '  hello  '"})
	if !resp.Success {
		t.Fatalf("exec failed: %s", resp.Error)
	}
	if got := resp.Payload.(daemon.ExecResponse).Output; got != "hello" {
		t.Errorf("output = %q, want hello", got)
	}

	resp = call(t, sup, daemon.MsgProcessExec, daemon.ExecRequest{Command: "echo oops >&2; exit 2"})
	if resp.Success || resp.Error != "oops" {
		t.Errorf("resp = %+v, want failure with stderr message", resp)
	}

	resp = call(t, sup, daemon.MsgProcessExec, daemon.ExecRequest{Command: "exit 4"})
	if resp.Error != "Command exited with code: 4" {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestSupervisor_HandleOutput(t *testing.T) {
	sup := newTestSupervisor(t)
	events := recordEvents(t, sup)

	resp := call(t, sup, daemon.MsgProcessStart, daemon.StartRequest{Command: "echo one; echo two >&2; echo three"})
	if !resp.Success {
		t.Fatalf("start failed: %s", resp.Error)
	}
	h := resp.Payload.(daemon.StartResponse).Handle
	waitExit(t, events, h)

	resp = call(t, sup, daemon.MsgProcessOutput, daemon.OutputRequest{Handle: h})
	if !resp.Success {
		t.Fatalf("output failed: %s", resp.Error)
	}
	out := resp.Payload.(daemon.OutputResponse)
	if len(out.Events) != 4 {
		t.Fatalf("events = %+v, want 3 lines and an exit", out.Events)
	}
	if last := out.Events[3]; last.Type != daemon.EventExit || last.Code != 0 {
		t.Errorf("last event = %+v, want exit 0", last)
	}

	resp = call(t, sup, daemon.MsgProcessOutput, daemon.OutputRequest{Handle: h, Lines: 1})
	if got := resp.Payload.(daemon.OutputResponse).Events; len(got) != 1 || got[0].Type != daemon.EventExit {
		t.Errorf("last 1 = %+v", got)
	}

	resp = call(t, sup, daemon.MsgProcessOutput, daemon.OutputRequest{Handle: "nope"})
	if resp.Success || resp.Code != daemon.CodeNotFound {
		t.Errorf("unknown handle = %+v, want not_found", resp)
	}

	resp = call(t, sup, daemon.MsgProcessOutput, daemon.OutputRequest{Handle: h, Lines: -1})
	if resp.Success || resp.Code != daemon.CodeInvalidRequest {
		t.Errorf("negative lines = %+v, want invalid_request", resp)
	}
}

func TestSupervisor_HandleOutputSilentProcess(t *testing.T) {
	sup := newTestSupervisor(t)

	resp := call(t, sup, daemon.MsgProcessStart, daemon.StartRequest{Command: "sleep 30"})
	if !resp.Success {
		t.Fatalf("start failed: %s", resp.Error)
	}
	h := resp.Payload.(daemon.StartResponse).Handle

	resp = call(t, sup, daemon.MsgProcessOutput, daemon.OutputRequest{Handle: h})
	if !resp.Success {
		t.Fatalf("output failed: %s", resp.Error)
	}
	if got := resp.Payload.(daemon.OutputResponse).Events; got == nil || len(got) != 0 {
		t.Errorf("events = %#v, want empty slice", got)
	}
}

func TestSupervisor_LaunchRules(t *testing.T) {
	sup := newTestSupervisor(t)

	path := filepath.Join(t.TempDir(), "rules.toml")
	content := `
[[rules]]
action = "deny"
pattern = "rm :*"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	sup.SetRules(rules.NewEvaluator(path))

	tests := []struct {
		name    string
		typ     daemon.MessageType
		payload any
	}{
		{"start", daemon.MsgProcessStart, daemon.StartRequest{Command: "rm -rf /tmp/nothing"}},
		{"exec", daemon.MsgProcessExec, daemon.ExecRequest{Command: "rm -rf /tmp/nothing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := call(t, sup, tt.typ, tt.payload)
			if resp.Success || resp.Code != daemon.CodeDenied {
				t.Errorf("resp = %+v, want denied", resp)
			}
		})
	}
	if n := sup.Executor().Count(); n != 0 {
		t.Errorf("denied start left %d tracked processes", n)
	}

	resp := call(t, sup, daemon.MsgProcessExec, daemon.ExecRequest{Command: "echo allowed"})
	if !resp.Success {
		t.Errorf("allowed exec failed: %s", resp.Error)
	}
}

func TestSupervisor_StartedAt(t *testing.T) {
	before := time.Now()
	sup := newTestSupervisor(t)
	if sup.StartedAt().Before(before) {
		t.Error("StartedAt should be set at construction")
	}
}

func TestStreamEvent(t *testing.T) {
	at := time.Now()
	got := StreamEvent(executor.Event{Kind: executor.EventExit, Handle: "h", Code: 7, At: at})
	if got.Type != daemon.EventExit || got.Handle != "h" || got.Code != 7 || !got.At.Equal(at) {
		t.Errorf("StreamEvent() = %+v", got)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is too long", 10, "this is..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
