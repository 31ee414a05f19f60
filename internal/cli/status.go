package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long:  "Display the status of the sandexec daemon and the environment processes are launched with.",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	if err := validateFormat(statusFormat); err != nil {
		return err
	}

	client, err := ConnectClient()
	if err != nil {
		if errors.Is(err, ErrDaemonNotRunning) {
			fmt.Println("🐚 sandexec daemon is not running")
			return nil
		}
		return fmt.Errorf("connect to daemon: %w", err)
	}
	defer client.Close()

	status, err := client.Status()
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	if ok, err := writeStructured(os.Stdout, statusFormat, status); ok {
		return err
	}

	uptime := time.Since(status.Daemon.StartedAt).Truncate(time.Second)
	fmt.Printf("🐚 sandexec daemon running (pid %d, uptime %s, version %s)\n",
		status.Daemon.PID, uptime, status.Daemon.Version)
	fmt.Printf("   Processes: %d tracked, Clients: %d attached\n",
		status.Executor.Tracked, status.Daemon.Attached)
	fmt.Printf("   Shell: %s\n", status.Executor.Shell)
	fmt.Printf("   PREFIX=%s\n", status.Executor.FilesDir)
	fmt.Printf("   NATIVE_DIR=%s\n", status.Executor.NativeLibDir)
	fmt.Printf("   FDROID=%t (target SDK %d)\n", status.Executor.FDroid, status.Executor.TargetSDK)
	return nil
}

func init() {
	statusCmd.Flags().StringVarP(&statusFormat, "format", "f", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(statusCmd)
}
