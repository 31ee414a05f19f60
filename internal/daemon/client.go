package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Client connects to the sandexec daemon over Unix socket.
type Client struct {
	socketPath string

	mu sync.Mutex
	// +checklocks:mu
	conn net.Conn
	// +checklocks:mu
	encoder *json.Encoder
	// +checklocks:mu
	decoder *json.Decoder

	// ioMu serializes request/response cycles on the main connection.
	// Must be acquired AFTER mu if both are needed.
	ioMu sync.Mutex

	reqID atomic.Uint64

	// Event streaming via dedicated connection
	eventMu sync.Mutex
	// +checklocks:eventMu
	eventConn net.Conn
	// +checklocks:eventMu
	eventDone chan struct{}
}

// NewClient creates a new daemon client.
func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath()
	}
	return &Client{
		socketPath: socketPath,
	}
}

// ConnectTimeout is the default timeout for connecting to the daemon.
const ConnectTimeout = 5 * time.Second

// RequestTimeout is the default timeout for request/response operations.
const RequestTimeout = 30 * time.Second

// Connect establishes a connection to the daemon.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		return nil
	}

	conn, err := net.DialTimeout("unix", c.socketPath, ConnectTimeout)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.conn = conn
	c.encoder = json.NewEncoder(conn)
	c.decoder = json.NewDecoder(conn)
	return nil
}

// Close closes the connection to the daemon.
func (c *Client) Close() error {
	c.StopEventStream()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}

	err := c.conn.Close()
	c.conn = nil
	c.encoder = nil
	c.decoder = nil
	return err
}

// IsConnected returns true if the client is connected.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// SocketPath returns the socket path this client connects to.
func (c *Client) SocketPath() string {
	return c.socketPath
}

func (c *Client) nextID() string {
	return fmt.Sprintf("req-%d", c.reqID.Add(1))
}

// decodePayload decodes the response payload into the given type.
// If payload is nil, returns a pointer to the zero value of T.
func decodePayload[T any](payload any) (*T, error) {
	var result T
	if payload == nil {
		return &result, nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return &result, nil
}

// Send sends a request and waits for the response, bounded by RequestTimeout.
func (c *Client) Send(req *Request) (*Response, error) {
	return c.SendTimeout(req, RequestTimeout)
}

// SendTimeout sends a request and waits up to timeout for the response.
// A zero timeout waits indefinitely.
// On connection errors, the connection is closed so that IsConnected() returns false.
func (c *Client) SendTimeout(req *Request, timeout time.Duration) (*Response, error) {
	c.mu.Lock()
	if c.conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	conn := c.conn
	encoder := c.encoder
	decoder := c.decoder
	c.mu.Unlock()

	if req.ID == "" {
		req.ID = c.nextID()
	}

	c.ioMu.Lock()
	defer c.ioMu.Unlock()

	if timeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
			c.closeConn()
			return nil, fmt.Errorf("set deadline: %w", err)
		}
		defer func() { _ = conn.SetDeadline(time.Time{}) }()
	}

	if err := encoder.Encode(req); err != nil {
		c.closeConn()
		return nil, fmt.Errorf("encode request: %w", err)
	}

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		c.closeConn()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return nil, fmt.Errorf("%w: %s", ErrRequestTimeout, req.Type)
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &resp, nil
}

// closeConn closes the main connection and clears connection state.
// Caller must NOT hold c.mu.
func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
		c.encoder = nil
		c.decoder = nil
	}
}

// call sends req and converts an unsuccessful response into a ServerError.
func (c *Client) call(op string, req *Request, timeout time.Duration) (*Response, error) {
	resp, err := c.SendTimeout(req, timeout)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, NewServerError(op, resp.Code, resp.Error)
	}
	return resp, nil
}

// Ping sends a ping request to check daemon connectivity.
func (c *Client) Ping() (*PingResponse, error) {
	resp, err := c.call("ping", &Request{Type: MsgPing}, RequestTimeout)
	if err != nil {
		return nil, err
	}
	return decodePayload[PingResponse](resp.Payload)
}

// Shutdown requests the daemon to shut down.
func (c *Client) Shutdown() error {
	_, err := c.call("shutdown", &Request{Type: MsgShutdown}, RequestTimeout)
	return err
}

// Status gets the daemon and executor status.
func (c *Client) Status() (*StatusResponse, error) {
	resp, err := c.call("status", &Request{Type: MsgStatus}, RequestTimeout)
	if err != nil {
		return nil, err
	}
	return decodePayload[StatusResponse](resp.Payload)
}

// Start launches a long-running process and returns its handle.
func (c *Client) Start(command string, sandboxed bool) (string, error) {
	resp, err := c.call("start", &Request{
		Type:    MsgProcessStart,
		Payload: StartRequest{Command: command, Sandboxed: sandboxed},
	}, RequestTimeout)
	if err != nil {
		return "", err
	}
	out, err := decodePayload[StartResponse](resp.Payload)
	if err != nil {
		return "", err
	}
	return out.Handle, nil
}

// Write sends one line to a process's stdin.
func (c *Client) Write(handle, text string) error {
	_, err := c.call("write", &Request{
		Type:    MsgProcessWrite,
		Payload: WriteRequest{Handle: handle, Text: text},
	}, RequestTimeout)
	return err
}

// Stop kills a process. Returns as soon as the signal is sent.
func (c *Client) Stop(handle string) error {
	_, err := c.call("stop", &Request{
		Type:    MsgProcessStop,
		Payload: StopRequest{Handle: handle},
	}, RequestTimeout)
	return err
}

// StopWait kills a process and waits until its exit event has been
// delivered and the handle is released. A zero timeout waits indefinitely.
func (c *Client) StopWait(handle string, timeout time.Duration) error {
	payload := StopRequest{Handle: handle, Wait: true}
	var deadline time.Duration
	if timeout > 0 {
		payload.Timeout = timeout.String()
		deadline = timeout + RequestTimeout
	}
	_, err := c.call("stop", &Request{Type: MsgProcessStop, Payload: payload}, deadline)
	return err
}

// Running queries a process's status: running, exited or not_found.
func (c *Client) Running(handle string) (string, error) {
	resp, err := c.call("running", &Request{
		Type:    MsgProcessRunning,
		Payload: RunningRequest{Handle: handle},
	}, RequestTimeout)
	if err != nil {
		return "", err
	}
	out, err := decodePayload[RunningResponse](resp.Payload)
	if err != nil {
		return "", err
	}
	return out.Status, nil
}

// Exec runs a command to completion and returns its trimmed stdout.
// A nonzero exit surfaces as a ServerError matching executor.ErrCommandFailed.
func (c *Client) Exec(command string, sandboxed bool) (string, error) {
	resp, err := c.call("exec", &Request{
		Type:    MsgProcessExec,
		Payload: ExecRequest{Command: command, Sandboxed: sandboxed},
	}, 0)
	if err != nil {
		return "", err
	}
	out, err := decodePayload[ExecResponse](resp.Payload)
	if err != nil {
		return "", err
	}
	return out.Output, nil
}

// List returns every tracked process.
func (c *Client) List() (*ProcessListResponse, error) {
	resp, err := c.call("list", &Request{Type: MsgProcessList}, RequestTimeout)
	if err != nil {
		return nil, err
	}
	return decodePayload[ProcessListResponse](resp.Payload)
}

// Output returns up to lines recent events of a process, oldest first.
// Zero lines returns everything the daemon retained.
func (c *Client) Output(handle string, lines int) (*OutputResponse, error) {
	resp, err := c.call("output", &Request{
		Type:    MsgProcessOutput,
		Payload: OutputRequest{Handle: handle, Lines: lines},
	}, RequestTimeout)
	if err != nil {
		return nil, err
	}
	return decodePayload[OutputResponse](resp.Payload)
}

// EventResult contains either a stream event or an error.
type EventResult struct {
	Event *StreamEvent
	Err   error
}

// StreamEvents opens a dedicated connection for event streaming and returns a channel.
// An empty handles list streams events for every process.
// Events are received on the channel until an error occurs or StopEventStream is called.
func (c *Client) StreamEvents(handles []string) (<-chan EventResult, error) {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	if c.eventConn != nil {
		c.eventConn.Close()
		if c.eventDone != nil {
			close(c.eventDone)
		}
		c.eventConn = nil
		c.eventDone = nil
	}

	conn, err := net.DialTimeout("unix", c.socketPath, ConnectTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	encoder := json.NewEncoder(conn)
	decoder := json.NewDecoder(conn)

	req := &Request{
		ID:      "event-stream",
		Type:    MsgAttach,
		Payload: AttachRequest{Handles: handles},
	}
	_ = conn.SetDeadline(time.Now().Add(RequestTimeout))
	if err := encoder.Encode(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("encode attach request: %w", err)
	}

	var resp Response
	if err := decoder.Decode(&resp); err != nil {
		conn.Close()
		return nil, fmt.Errorf("decode attach response: %w", err)
	}
	_ = conn.SetDeadline(time.Time{})
	if !resp.Success {
		conn.Close()
		return nil, NewServerError("attach", resp.Code, resp.Error)
	}

	c.eventConn = conn
	c.eventDone = make(chan struct{})
	done := c.eventDone

	events := make(chan EventResult, 64)

	go func() {
		defer close(events)
		defer conn.Close()

		for {
			var event StreamEvent
			if err := decoder.Decode(&event); err != nil {
				select {
				case <-done:
				case events <- EventResult{Err: fmt.Errorf("decode event: %w", err)}:
				}
				return
			}

			select {
			case <-done:
				return
			case events <- EventResult{Event: &event}:
			}
		}
	}()

	return events, nil
}

// StopEventStream stops the event streaming goroutine and closes the event connection.
func (c *Client) StopEventStream() {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	if c.eventDone != nil {
		close(c.eventDone)
		c.eventDone = nil
	}
	if c.eventConn != nil {
		c.eventConn.Close()
		c.eventConn = nil
	}
}
