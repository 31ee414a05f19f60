package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
	"github.com/tessro/sandexec/internal/rules"
)

// DefaultShutdownTimeout bounds how long Run waits for processes to report
// their exit events after a shutdown request.
const DefaultShutdownTimeout = 10 * time.Second

// RunOptions configures Run. Empty paths use the defaults from
// internal/paths.
type RunOptions struct {
	SocketPath      string
	PIDPath         string
	ShutdownTimeout time.Duration

	Host     executor.Host
	Executor []executor.Option

	// HistoryLines and RetainedExits bound process.output retention.
	// Zero HistoryLines uses DefaultHistoryLines.
	HistoryLines  int
	RetainedExits int

	// RulesPath is the launch rules file. Empty disables rule checks.
	RulesPath string

	// Ready, if set, is called once the socket is accepting connections.
	Ready func(*Supervisor)
}

// Run holds the daemon lock on the PID file, serves IPC on the socket and
// blocks until ctx is done or a client requests shutdown. On the way out
// every tracked process is stopped so that attached clients still see the
// exit events.
func Run(ctx context.Context, opts RunOptions) error {
	lock, err := daemon.AcquireLock(opts.PIDPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			slog.Warn("release lock failed", "error", err)
		}
	}()

	sup := NewWithHistory(opts.HistoryLines, opts.RetainedExits, opts.Host, opts.Executor...)
	if opts.RulesPath != "" {
		sup.SetRules(rules.NewEvaluator(opts.RulesPath))
	}
	srv := daemon.NewServer(opts.SocketPath, sup)
	sup.SetServer(srv)

	if err := srv.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer func() { _ = srv.Stop() }()

	slog.Info("daemon running",
		"version", Version,
		"socket", srv.SocketPath(),
		"pid", lock.PID(),
		"files_dir", opts.Host.FilesDir,
		"target_sdk", opts.Host.TargetSDK,
		"rules", opts.RulesPath,
	)

	if opts.Ready != nil {
		opts.Ready(sup)
	}

	select {
	case <-ctx.Done():
		slog.Info("daemon interrupted", "cause", context.Cause(ctx))
	case <-sup.ShutdownCh():
		slog.Info("daemon shutdown requested")
	}

	timeout := opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := sup.Shutdown(shutdownCtx); err != nil {
		slog.Warn("processes did not exit cleanly", "error", err)
	}
	return nil
}
