package executor

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"

	"github.com/tessro/sandexec/internal/logging"
)

// pump reads r line by line and emits one event per line. It runs until
// end of stream. A read failure ends only this pump: it is reported as an
// error event, and the rest of the stream is discarded so the child never
// blocks on a full pipe.
func (e *Executor) pump(p *process, kind EventKind, r io.Reader) {
	defer p.pumps.Done()
	defer logging.LogPanic("executor-pump-"+string(kind), nil)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, min(64*1024, e.maxLineBytes)), e.maxLineBytes)

	var lines int
	for scanner.Scan() {
		lines++
		p.emit(Event{
			Kind:   kind,
			Handle: p.handle,
			Line:   scanner.Text(),
			At:     time.Now(),
		})
	}

	err := scanner.Err()
	if err == nil || errors.Is(err, os.ErrClosed) {
		p.log.Debug("output pump finished", "stream", kind, "lines", lines)
		return
	}

	ioErr := &IOError{Handle: p.handle, Op: "read " + string(kind), Err: err}
	p.log.Warn("output pump failed", "stream", kind, "lines", lines, "error", err)
	p.emit(Event{
		Kind:   EventError,
		Handle: p.handle,
		Reason: ioErr.Error(),
		At:     time.Now(),
	})

	_, _ = io.Copy(io.Discard, r)
}
