package daemon

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// shortTempDir creates a temp directory with a short path for socket tests.
// Unix sockets have a path limit (~104 chars on macOS), and t.TempDir()
// includes the full test name which can exceed this limit.
func shortTempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("/tmp", "sx-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// attachHandler attaches on MsgAttach and succeeds everything else.
func attachHandler(ctx context.Context, req *Request) *Response {
	if req.Type == MsgAttach {
		var handles []string
		if req.Payload != nil {
			p, err := decodePayload[AttachRequest](req.Payload)
			if err != nil {
				return &Response{Success: false, Code: CodeInvalidRequest, Error: err.Error()}
			}
			handles = p.Handles
		}
		if err := ServerFromContext(ctx).Attach(ConnFromContext(ctx), handles); err != nil {
			return &Response{Success: false, Code: CodeInternal, Error: err.Error()}
		}
	}
	return &Response{Success: true}
}

func startTestServer(t *testing.T, handler Handler) (*Server, string) {
	t.Helper()
	socketPath := filepath.Join(shortTempDir(t), "test.sock")
	srv := NewServer(socketPath, handler)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Stop() })
	return srv, socketPath
}

func dialJSON(t *testing.T, socketPath string) (net.Conn, *json.Encoder, *json.Decoder) {
	t.Helper()
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetDeadline(time.Now().Add(10 * time.Second))
	return conn, json.NewEncoder(conn), json.NewDecoder(conn)
}

func TestServer_StartStop(t *testing.T) {
	socketPath := filepath.Join(shortTempDir(t), "test.sock")

	srv := NewServer(socketPath, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return &Response{Success: true}
	}))

	if err := srv.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		t.Fatalf("socket file not created: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("socket permissions = %o, want 600", perm)
	}
	if srv.Addr() == "" {
		t.Error("Addr() should be set after Start")
	}

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	conn.Close()

	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if _, err := os.Stat(socketPath); !os.IsNotExist(err) {
		t.Fatal("socket file not removed after Stop()")
	}

	// Stopping twice is a no-op.
	if err := srv.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}

func TestServer_StaleSocketReplaced(t *testing.T) {
	socketPath := filepath.Join(shortTempDir(t), "test.sock")
	if err := os.WriteFile(socketPath, []byte("stale"), 0600); err != nil {
		t.Fatal(err)
	}

	srv := NewServer(socketPath, HandlerFunc(attachHandler))
	if err := srv.Start(); err != nil {
		t.Fatalf("Start() over stale socket error = %v", err)
	}
	defer func() { _ = srv.Stop() }()
}

func TestServer_RequestResponse(t *testing.T) {
	handler := HandlerFunc(func(ctx context.Context, req *Request) *Response {
		if req.Type == MsgPing {
			return &Response{
				Success: true,
				Payload: &PingResponse{Version: "1.0.0", Uptime: "1h", StartedAt: time.Now()},
			}
		}
		return &Response{Success: false, Code: CodeInvalidRequest, Error: "unknown message type"}
	})
	_, socketPath := startTestServer(t, handler)
	_, encoder, decoder := dialJSON(t, socketPath)

	if err := encoder.Encode(&Request{Type: MsgPing, ID: "test-1"}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !resp.Success {
		t.Errorf("expected Success=true, got false with error: %s", resp.Error)
	}
	if resp.Type != MsgPing {
		t.Errorf("expected Type=%s, got %s", MsgPing, resp.Type)
	}
	if resp.ID != "test-1" {
		t.Errorf("expected ID=test-1, got %s", resp.ID)
	}

	if err := encoder.Encode(&Request{Type: "bogus", ID: "test-2"}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	resp = Response{}
	if err := decoder.Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if resp.Success || resp.Code != CodeInvalidRequest || resp.ID != "test-2" {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestServer_NilResponse(t *testing.T) {
	_, socketPath := startTestServer(t, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		return nil
	}))
	_, encoder, decoder := dialJSON(t, socketPath)

	if err := encoder.Encode(&Request{Type: MsgStatus}); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Code != CodeInternal {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestServer_MalformedRequest(t *testing.T) {
	_, socketPath := startTestServer(t, HandlerFunc(attachHandler))
	conn, _, decoder := dialJSON(t, socketPath)

	if _, err := conn.Write([]byte("{not json\n")); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if resp.Success || resp.Code != CodeInvalidRequest {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestServer_DoubleStart(t *testing.T) {
	srv, _ := startTestServer(t, HandlerFunc(attachHandler))
	if err := srv.Start(); err == nil {
		t.Error("second Start() should fail")
	}
}

func TestServer_ContextContainsConnAndServer(t *testing.T) {
	got := make(chan *Server, 1)
	srv, socketPath := startTestServer(t, HandlerFunc(func(ctx context.Context, req *Request) *Response {
		if ConnFromContext(ctx) == nil {
			got <- nil
		} else {
			got <- ServerFromContext(ctx)
		}
		return &Response{Success: true}
	}))
	_, encoder, decoder := dialJSON(t, socketPath)

	if err := encoder.Encode(&Request{Type: MsgPing}); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if <-got != srv {
		t.Error("context should carry the connection and the server")
	}
}

func TestServer_AttachBroadcast(t *testing.T) {
	srv, socketPath := startTestServer(t, HandlerFunc(attachHandler))
	_, encoder, decoder := dialJSON(t, socketPath)

	if err := encoder.Encode(&Request{Type: MsgAttach}); err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !resp.Success {
		t.Fatalf("attach failed: %s", resp.Error)
	}
	if srv.AttachedCount() != 1 {
		t.Errorf("expected 1 attached client, got %d", srv.AttachedCount())
	}

	srv.Broadcast(&StreamEvent{Type: EventStdout, Handle: "h-1", Line: "hello world"})

	var ev StreamEvent
	if err := decoder.Decode(&ev); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if ev.Line != "hello world" || ev.Handle != "h-1" || ev.Type != EventStdout {
		t.Errorf("unexpected event: %+v", ev)
	}

	if err := encoder.Encode(&Request{Type: MsgDetach}); err != nil {
		t.Fatal(err)
	}
}

func TestServer_AttachWithHandleFilter(t *testing.T) {
	srv, socketPath := startTestServer(t, HandlerFunc(attachHandler))
	_, encoder, decoder := dialJSON(t, socketPath)

	if err := encoder.Encode(&Request{Type: MsgAttach, Payload: AttachRequest{Handles: []string{"wanted"}}}); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatal(err)
	}

	srv.Broadcast(&StreamEvent{Type: EventStdout, Handle: "other", Line: "skip"})
	srv.Broadcast(&StreamEvent{Type: EventExit, Handle: "wanted", Code: 3})

	var ev StreamEvent
	if err := decoder.Decode(&ev); err != nil {
		t.Fatal(err)
	}
	if ev.Handle != "wanted" || ev.Type != EventExit || ev.Code != 3 {
		t.Errorf("filtered client received %+v", ev)
	}
}

func TestServer_DetachOnDisconnect(t *testing.T) {
	srv, socketPath := startTestServer(t, HandlerFunc(attachHandler))
	conn, encoder, decoder := dialJSON(t, socketPath)

	if err := encoder.Encode(&Request{Type: MsgAttach}); err != nil {
		t.Fatal(err)
	}
	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	deadline := time.Now().Add(5 * time.Second)
	for srv.AttachedCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client still attached after disconnect")
		}
		srv.Broadcast(&StreamEvent{Type: EventStdout, Handle: "h", Line: "x"})
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServer_AttachUntracked(t *testing.T) {
	srv := NewServer(filepath.Join(shortTempDir(t), "test.sock"), HandlerFunc(attachHandler))
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()
	if err := srv.Attach(a, nil); err == nil {
		t.Error("Attach() on an untracked connection should fail")
	}
}

func TestDefaultSocketPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SANDEXEC_SOCKET_PATH", "")
	t.Setenv("SANDEXEC_DIR", dir)

	if got, want := DefaultSocketPath(), filepath.Join(dir, "sandexec.sock"); got != want {
		t.Errorf("DefaultSocketPath() = %s, want %s", got, want)
	}
}
