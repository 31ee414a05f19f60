package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tessro/sandexec/internal/paths"
)

// BroadcastWriteTimeout bounds a single event write to an attached client.
// Clients that cannot keep up are detached.
const BroadcastWriteTimeout = 5 * time.Second

// DefaultSocketPath returns the default Unix socket path.
func DefaultSocketPath() string {
	return paths.SocketPath()
}

// contextKey is a type for context keys to avoid collisions.
type contextKey string

const (
	connKey   contextKey = "conn"
	serverKey contextKey = "server"
)

// Handler processes IPC requests and returns responses.
// This interface is implemented by the supervisor or a stub for testing.
type Handler interface {
	// Handle processes a request and returns a response.
	// The context carries the connection and server for attach/detach.
	// Use ConnFromContext and ServerFromContext to retrieve them.
	Handle(ctx context.Context, req *Request) *Response
}

// ConnFromContext retrieves the client connection from the context.
func ConnFromContext(ctx context.Context) net.Conn {
	conn, _ := ctx.Value(connKey).(net.Conn)
	return conn
}

// ServerFromContext retrieves the server from the context.
func ServerFromContext(ctx context.Context) *Server {
	srv, _ := ctx.Value(serverKey).(*Server)
	return srv
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc func(ctx context.Context, req *Request) *Response

// Handle implements Handler.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) *Response {
	return f(ctx, req)
}

// Server is the Unix socket RPC server for the sandexec daemon.
type Server struct {
	socketPath string
	handler    Handler
	listener   net.Listener // Set in Start before goroutine, closed in Stop

	mu sync.Mutex
	// +checklocks:mu
	conns map[net.Conn]*clientConn
	// +checklocks:mu
	attached map[net.Conn]*attachedClient
	// +checklocks:mu
	started bool
	done    chan struct{}
}

// clientConn serializes writes to one connection. Responses and broadcast
// events share the encoder.
type clientConn struct {
	conn net.Conn
	mu   sync.Mutex
	// +checklocks:mu
	encoder *json.Encoder
}

func (c *clientConn) encode(v any, timeout time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.encodeLocked(v, timeout)
}

// +checklocks:c.mu
func (c *clientConn) encodeLocked(v any, timeout time.Duration) error {
	if timeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	return c.encoder.Encode(v)
}

// attachedClient tracks a client subscribed to streaming events.
type attachedClient struct {
	client  *clientConn
	handles map[string]struct{} // Filter: empty means all processes (immutable after creation)
}

func (a *attachedClient) wants(handle string) bool {
	if len(a.handles) == 0 {
		return true
	}
	_, ok := a.handles[handle]
	return ok
}

// NewServer creates a new daemon server.
func NewServer(socketPath string, handler Handler) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Server{
		socketPath: socketPath,
		handler:    handler,
		conns:      make(map[net.Conn]*clientConn),
		attached:   make(map[net.Conn]*attachedClient),
		done:       make(chan struct{}),
	}
}

// SocketPath returns the socket path this server listens on.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening on the Unix socket.
// Returns an error if the server is already running or cannot bind.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("server already started")
	}
	s.mu.Unlock()

	dir := filepath.Dir(s.socketPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create socket directory: %w", err)
	}

	// A stale socket is left behind when a previous daemon died. The
	// caller holds the daemon lock, so nobody else is listening on it.
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("set socket permissions: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.started = true
	s.mu.Unlock()

	slog.Info("daemon server started", "socket", s.socketPath)

	go s.acceptLoop()

	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				if errors.Is(err, net.ErrClosed) {
					return
				}
				slog.Error("accept connection failed", "error", err)
				continue
			}
		}

		client := &clientConn{conn: conn, encoder: json.NewEncoder(conn)}

		s.mu.Lock()
		s.conns[conn] = client
		connCount := len(s.conns)
		s.mu.Unlock()

		slog.Debug("client connected", "connections", connCount)

		go s.handleConnection(client)
	}
}

// handleConnection processes requests from a single client.
func (s *Server) handleConnection(client *clientConn) {
	conn := client.conn
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		delete(s.attached, conn)
		connCount := len(s.conns)
		s.mu.Unlock()
		slog.Debug("client disconnected", "connections", connCount)
	}()

	decoder := json.NewDecoder(conn)

	baseCtx := context.WithValue(context.Background(), connKey, conn)
	baseCtx = context.WithValue(baseCtx, serverKey, s)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Warn("decode request failed", "error", err)
			_ = client.encode(&Response{
				Success: false,
				Code:    CodeInvalidRequest,
				Error:   fmt.Sprintf("decode request: %v", err),
			}, 0)
			return
		}

		slog.Debug("request received", "type", req.Type, "id", req.ID)

		var err error
		if req.Type == MsgAttach {
			// The attach response must reach the client before the first
			// broadcast event, so hold the write lock across both.
			client.mu.Lock()
			resp := s.dispatch(baseCtx, &req)
			err = client.encodeLocked(resp, 0)
			client.mu.Unlock()
		} else {
			err = client.encode(s.dispatch(baseCtx, &req), 0)
		}
		if err != nil {
			slog.Debug("write response failed", "error", err)
			return
		}
	}
}

// dispatch runs the handler and fills in correlation info.
func (s *Server) dispatch(ctx context.Context, req *Request) *Response {
	resp := s.handler.Handle(ctx, req)
	if resp == nil {
		resp = &Response{
			Success: false,
			Code:    CodeInternal,
			Error:   "handler returned nil response",
		}
	}
	if resp.Type == "" {
		resp.Type = req.Type
	}
	if resp.ID == "" {
		resp.ID = req.ID
	}
	if !resp.Success {
		slog.Warn("request failed", "type", req.Type, "code", resp.Code, "error", resp.Error)
	}
	return resp
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	connCount := len(s.conns)
	s.mu.Unlock()

	slog.Info("daemon server stopping", "active_connections", connCount)

	close(s.done)

	if s.listener != nil {
		s.listener.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.conns = make(map[net.Conn]*clientConn)
	s.attached = make(map[net.Conn]*attachedClient)
	s.mu.Unlock()

	os.Remove(s.socketPath)

	slog.Info("daemon server stopped")

	return nil
}

// Addr returns the listener address, or empty string if not started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// Attach registers a connection for streaming events.
// An empty handles list subscribes to every process.
func (s *Server) Attach(conn net.Conn, handles []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.conns[conn]
	if !ok {
		return errors.New("connection not tracked")
	}
	filter := make(map[string]struct{}, len(handles))
	for _, h := range handles {
		filter[h] = struct{}{}
	}
	s.attached[conn] = &attachedClient{client: client, handles: filter}
	return nil
}

// Detach removes a connection from streaming events.
func (s *Server) Detach(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attached, conn)
}

// Broadcast sends a stream event to all attached clients subscribed to
// its handle. A client whose write fails or times out is detached.
func (s *Server) Broadcast(event *StreamEvent) {
	s.mu.Lock()
	clients := make([]*attachedClient, 0, len(s.attached))
	for _, client := range s.attached {
		clients = append(clients, client)
	}
	s.mu.Unlock()

	for _, client := range clients {
		if !client.wants(event.Handle) {
			continue
		}
		if err := client.client.encode(event, BroadcastWriteTimeout); err != nil {
			slog.Warn("broadcast failed, detaching client", "handle", event.Handle, "error", err)
			s.Detach(client.client.conn)
		}
	}
}

// AttachedCount returns the number of attached streaming clients.
func (s *Server) AttachedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.attached)
}
