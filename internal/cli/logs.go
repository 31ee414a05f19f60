package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tessro/sandexec/internal/daemon"
)

var (
	logsLines  int
	logsRaw    bool
	logsFollow bool
)

var logsCmd = &cobra.Command{
	Use:   "logs <handle>",
	Short: "Print recorded output of a process",
	Long: `Print the output the daemon recorded for a process, including one that has
already exited. With --follow, keep streaming new output until the process exits.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle := args[0]
		if logsLines < 0 {
			return fmt.Errorf("--lines must not be negative")
		}

		client := MustConnect()
		defer client.Close()

		// Attach first so nothing emitted between the history read and the
		// stream start is lost.
		var events <-chan daemon.EventResult
		if logsFollow {
			var err error
			events, err = client.StreamEvents([]string{handle})
			if err != nil {
				return fmt.Errorf("attach: %w", err)
			}
			defer client.StopEventStream()
		}

		out, err := client.Output(handle, logsLines)
		if err != nil {
			return fmt.Errorf("logs: %w", err)
		}

		var last time.Time
		for i := range out.Events {
			ev := &out.Events[i]
			fmt.Println(formatEvent(ev, logsRaw, false))
			last = ev.At
			if ev.Type == daemon.EventExit {
				return nil
			}
		}
		if !logsFollow {
			return nil
		}

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		for {
			select {
			case <-sigCh:
				return nil
			case res, ok := <-events:
				if !ok || res.Err != nil {
					fmt.Fprintln(os.Stderr, "🐚 Connection closed")
					return nil
				}
				if !res.Event.At.After(last) {
					continue
				}
				fmt.Println(formatEvent(res.Event, logsRaw, false))
				if res.Event.Type == daemon.EventExit {
					return nil
				}
			}
		}
	},
}

func init() {
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 0, "number of recent events to print (0 for all retained)")
	logsCmd.Flags().BoolVar(&logsRaw, "raw", false, "print events as stdout:/stderr:/exit: prefixed lines")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "keep streaming until the process exits")
	rootCmd.AddCommand(logsCmd)
}
