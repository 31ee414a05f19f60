package daemon

// ViewerClient is the subset of Client the TUI needs.
// It lets the viewer be tested without a running daemon.
type ViewerClient interface {
	Connect() error
	Close() error
	IsConnected() bool

	StreamEvents(handles []string) (<-chan EventResult, error)
	StopEventStream()

	List() (*ProcessListResponse, error)
	Output(handle string, lines int) (*OutputResponse, error)
	Write(handle, text string) error
	Stop(handle string) error
}

var _ ViewerClient = (*Client)(nil)
