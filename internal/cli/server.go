package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/config"
	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
	"github.com/tessro/sandexec/internal/logging"
	"github.com/tessro/sandexec/internal/supervisor"
)

var (
	serverLogLevel  string
	serverLogStderr bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Manage the sandexec daemon server",
	Long:  "Commands for managing the sandexec daemon server lifecycle.",
}

var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the sandexec daemon in the foreground",
	Long:  "Run the sandexec daemon until interrupted or until 'sandexec server stop' is called. All tracked processes are killed on exit.",
	Args:  cobra.NoArgs,
	RunE:  runServerStart,
}

var serverStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the sandexec daemon server",
	Long:  "Stop the running sandexec daemon server. This kills every tracked process.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		if err := client.Shutdown(); err != nil {
			// The daemon may close the socket before the reply is flushed.
			var serverErr *daemon.ServerError
			if errors.As(err, &serverErr) {
				return fmt.Errorf("shutdown daemon: %w", err)
			}
		}

		fmt.Println("🐚 sandexec daemon stopping")
		return nil
	},
}

func runServerStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.GetLogLevel()
	if serverLogLevel != "" {
		if err := config.ValidateLogLevel(serverLogLevel); err != nil {
			return err
		}
		level = serverLogLevel
	}

	var extra io.Writer
	if serverLogStderr {
		extra = os.Stderr
	}
	cleanup, err := logging.Setup(cfg.GetLogPath(), extra, logging.ParseLevel(level))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := runOptions(cfg)
	opts.SocketPath = getSocketPath()
	opts.Ready = func(*supervisor.Supervisor) {
		fmt.Printf("🐚 sandexec daemon listening on %s\n", opts.SocketPath)
	}

	if err := supervisor.Run(ctx, opts); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			return fmt.Errorf("sandexec daemon is already running")
		}
		return err
	}

	fmt.Println("🐚 sandexec daemon stopped")
	return nil
}

// runOptions translates the config file into daemon settings.
func runOptions(cfg *config.Config) supervisor.RunOptions {
	return supervisor.RunOptions{
		ShutdownTimeout: 10 * time.Second,
		HistoryLines:    cfg.GetHistoryLines(),
		RetainedExits:   cfg.GetRetainedExits(),
		RulesPath:       cfg.GetRulesPath(),
		Host: executor.Host{
			FilesDir:     cfg.GetFilesDir(),
			NativeLibDir: cfg.GetNativeLibDir(),
			TargetSDK:    cfg.GetTargetSDK(),
		},
		Executor: []executor.Option{
			executor.WithShell(cfg.GetShell()),
			executor.WithSandboxScript(cfg.GetSandboxScript()),
			executor.WithMaxLineBytes(cfg.GetMaxLineBytes()),
			executor.WithDrainTimeout(cfg.DrainTimeout()),
		},
	}
}

func init() {
	serverStartCmd.Flags().StringVar(&serverLogLevel, "log-level", "", "log level (debug, info, warn, error); overrides config")
	serverStartCmd.Flags().BoolVar(&serverLogStderr, "log-stderr", false, "also write logs to stderr")
	serverCmd.AddCommand(serverStartCmd)
	serverCmd.AddCommand(serverStopCmd)
	rootCmd.AddCommand(serverCmd)
}
