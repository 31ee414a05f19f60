package supervisor

import (
	"sync"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/ringbuffer"
)

// Defaults for retained process output.
const (
	DefaultHistoryLines  = 1000
	DefaultRetainedExits = 32
)

// history keeps the recent events of every process so late clients can
// catch up. Output of exited processes is kept for the most recent
// maxExited handles.
type history struct {
	size      int
	maxExited int

	mu sync.Mutex
	// +checklocks:mu
	buffers map[string]*ringbuffer.RingBuffer[daemon.StreamEvent]
	// +checklocks:mu
	exited []string // oldest first
}

func newHistory(size, maxExited int) *history {
	if size <= 0 {
		size = DefaultHistoryLines
	}
	if maxExited < 0 {
		maxExited = 0
	}
	return &history{
		size:      size,
		maxExited: maxExited,
		buffers:   make(map[string]*ringbuffer.RingBuffer[daemon.StreamEvent]),
	}
}

// +checklocks:h.mu
func (h *history) bufferLocked(handle string) *ringbuffer.RingBuffer[daemon.StreamEvent] {
	buf, ok := h.buffers[handle]
	if !ok {
		buf = ringbuffer.New[daemon.StreamEvent](h.size)
		h.buffers[handle] = buf
	}
	return buf
}

func (h *history) record(ev *daemon.StreamEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.bufferLocked(ev.Handle).Push(*ev)

	if ev.Type != daemon.EventExit {
		return
	}
	h.exited = append(h.exited, ev.Handle)
	for len(h.exited) > h.maxExited {
		delete(h.buffers, h.exited[0])
		h.exited = h.exited[1:]
	}
}

// last returns up to n recent events for handle, oldest first.
func (h *history) last(handle string, n int) ([]daemon.StreamEvent, bool) {
	h.mu.Lock()
	buf, ok := h.buffers[handle]
	h.mu.Unlock()
	if !ok {
		return nil, false
	}
	return buf.Last(n), true
}
