// Package executor launches and supervises shell processes on behalf of a
// host application.
//
// Each tracked process is addressed by an opaque Handle and served by three
// goroutines: one pump per output stream and one exit-wait goroutine. Output
// lines, read errors and the single terminal exit event are delivered to a
// caller-supplied Sink. The exit-wait goroutine is the only place that
// emits the exit event, and cleanup runs exactly once per handle.
package executor

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tessro/sandexec/internal/registry"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxLineBytes is the longest output line a pump accepts.
const DefaultMaxLineBytes = 1024 * 1024

// DefaultDrainTimeout bounds how long the exit-wait goroutine waits for
// the pumps after the process has exited. A grandchild that inherited the
// output pipes can otherwise hold them open indefinitely.
const DefaultDrainTimeout = 2 * time.Second

// Executor tracks running processes.
type Executor struct {
	host          Host
	shell         string
	sandboxScript string
	maxLineBytes  int
	drainTimeout  time.Duration
	sink          Sink
	log           *slog.Logger

	procs *registry.Registry[Handle, *process]
}

// Option configures an Executor.
type Option func(*Executor)

// WithShell sets the shell used for every invocation.
func WithShell(path string) Option {
	return func(e *Executor) {
		if path != "" {
			e.shell = path
		}
	}
}

// WithSandboxScript sets the bootstrap script sourced from $PREFIX for
// sandboxed commands.
func WithSandboxScript(name string) Option {
	return func(e *Executor) {
		if name != "" {
			e.sandboxScript = name
		}
	}
}

// WithMaxLineBytes sets the longest line a pump accepts before failing.
func WithMaxLineBytes(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.maxLineBytes = n
		}
	}
}

// WithDrainTimeout sets how long output may stay open after exit.
func WithDrainTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.drainTimeout = d
		}
	}
}

// WithSink sets the sink used when Start is given a nil sink.
func WithSink(s Sink) Option {
	return func(e *Executor) {
		e.sink = s
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an Executor for the given host layout.
func New(host Host, opts ...Option) *Executor {
	e := &Executor{
		host:          host,
		shell:         DefaultShell,
		sandboxScript: DefaultSandboxScript,
		maxLineBytes:  DefaultMaxLineBytes,
		drainTimeout:  DefaultDrainTimeout,
		sink:          Discard,
		log:           slog.Default(),
		procs:         registry.New[Handle, *process](),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "executor")
	return e
}

// Host returns the host layout launches are configured from.
func (e *Executor) Host() Host {
	return e.host
}

// Shell returns the shell every command is run through.
func (e *Executor) Shell() string {
	return e.shell
}

// Info is a snapshot of a tracked process.
type Info struct {
	Handle     Handle    `json:"handle" yaml:"handle"`
	PID        int       `json:"pid" yaml:"pid"`
	Command    string    `json:"command" yaml:"command"`
	Sandboxed  bool      `json:"sandboxed" yaml:"sandboxed"`
	State      State     `json:"state" yaml:"state"`
	LaunchedAt time.Time `json:"launched_at" yaml:"launched_at"`
}

// List returns every tracked process in launch order.
func (e *Executor) List() []Info {
	procs := e.procs.List()
	out := make([]Info, 0, len(procs))
	for _, p := range procs {
		out = append(out, p.info())
	}
	return out
}

// Lookup returns a snapshot of the process tracked under h.
func (e *Executor) Lookup(h Handle) (Info, bool) {
	p, ok := e.procs.Get(h)
	if !ok {
		return Info{}, false
	}
	return p.info(), true
}

// Count returns the number of tracked processes.
func (e *Executor) Count() int {
	return e.procs.Count()
}

// Shutdown force-stops every tracked process and waits until each has
// delivered its exit event, or ctx is done.
func (e *Executor) Shutdown(ctx context.Context) error {
	procs := e.procs.List()
	if len(procs) == 0 {
		return nil
	}
	e.log.Info("stopping all processes", "count", len(procs))

	var g errgroup.Group
	for _, p := range procs {
		g.Go(func() error {
			err := e.StopAndWait(ctx, p.handle)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}
