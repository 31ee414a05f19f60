package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"
	"github.com/tessro/sandexec/internal/paths"
)

// ErrAlreadyRunning is returned by AcquireLock when another daemon holds the lock.
var ErrAlreadyRunning = errors.New("daemon: already running")

// Lock is an exclusive advisory lock on the PID file, held for the
// lifetime of a daemon. The file records the holder's PID; whether a
// daemon is alive is answered by the lock, never by the file contents.
type Lock struct {
	fl  *flock.Flock
	pid int
}

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return paths.PIDPath()
}

// AcquireLock takes the daemon lock at path without blocking and records
// the current PID in it.
func AcquireLock(path string) (*Lock, error) {
	if path == "" {
		path = DefaultPIDPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create pid directory: %w", err)
	}

	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}

	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0600); err != nil {
		_ = fl.Unlock()
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &Lock{fl: fl, pid: pid}, nil
}

// Path returns the PID file path.
func (l *Lock) Path() string {
	return l.fl.Path()
}

// PID returns the PID recorded by this lock.
func (l *Lock) PID() int {
	return l.pid
}

// Release clears the recorded PID and drops the lock. The file stays in
// place so a racing daemon never locks an unlinked inode.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	truncErr := os.Truncate(l.Path(), 0)
	if err := l.fl.Unlock(); err != nil {
		return err
	}
	if truncErr != nil && !os.IsNotExist(truncErr) {
		return fmt.Errorf("clear pid file: %w", truncErr)
	}
	return nil
}

// RunningPID reports the PID of the daemon holding the lock at path.
// A PID file left behind by a dead daemon is not locked, so it reports
// false whatever the file says.
func RunningPID(path string) (int, bool) {
	if path == "" {
		path = DefaultPIDPath()
	}
	if _, err := os.Stat(path); err != nil {
		return 0, false
	}

	fl := flock.New(path)
	ok, err := fl.TryRLock()
	if err != nil {
		return 0, false
	}
	if ok {
		_ = fl.Unlock()
		return 0, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, true
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, true
	}
	return pid, true
}
