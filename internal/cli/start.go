package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/daemon"
)

var (
	startSandbox bool
	startAttach  bool
)

var startCmd = &cobra.Command{
	Use:   "start <command>...",
	Short: "Launch a long-running process",
	Long: `Launch a command through the configured shell and print its handle.

With --sandbox the command runs after sourcing the sandbox bootstrap script
from $PREFIX. With --attach the output is streamed until the process exits,
and sandexec exits with the process's exit code.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	command := joinCommand(args)

	if !startAttach {
		handle, err := client.Start(command, startSandbox)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		fmt.Println(handle)
		return nil
	}

	// Subscribe before launching so no early output is missed.
	events, err := client.StreamEvents(nil)
	if err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	defer client.StopEventStream()

	handle, err := client.Start(command, startSandbox)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	fmt.Fprintf(os.Stderr, "🐚 Started %s (Ctrl+C to detach)\n", handle)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	code, err := followHandle(events, handle, sigCh)
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitCodeError{code: code}
	}
	return nil
}

// followHandle prints events for handle until its exit event arrives.
// A signal detaches without touching the process; the returned code is 0
// in that case.
func followHandle(events <-chan daemon.EventResult, handle string, sigCh <-chan os.Signal) (int, error) {
	for {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n🐚 Detached; process keeps running:", handle)
			return 0, nil

		case res, ok := <-events:
			if !ok {
				return 0, fmt.Errorf("event stream closed")
			}
			if res.Err != nil {
				return 0, fmt.Errorf("receive event: %w", res.Err)
			}
			ev := res.Event
			if ev.Handle != handle {
				continue
			}
			switch ev.Type {
			case daemon.EventStdout:
				fmt.Fprintln(os.Stdout, ev.Line)
			case daemon.EventStderr:
				fmt.Fprintln(os.Stderr, ev.Line)
			case daemon.EventError:
				fmt.Fprintln(os.Stderr, formatEvent(ev, false, false))
			case daemon.EventExit:
				return ev.Code, nil
			}
		}
	}
}

func init() {
	startCmd.Flags().BoolVarP(&startSandbox, "sandbox", "s", false, "run inside the sandbox bootstrap")
	startCmd.Flags().BoolVarP(&startAttach, "attach", "a", false, "stream output until the process exits")
	startCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(startCmd)
}
