package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var attachRaw bool

var attachCmd = &cobra.Command{
	Use:   "attach [handles...]",
	Short: "Attach to process streams and watch output",
	Long:  "Connect to the daemon and stream live events from running processes. Optionally filter by handle.",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		events, err := client.StreamEvents(args)
		if err != nil {
			return fmt.Errorf("attach: %w", err)
		}
		defer client.StopEventStream()

		fmt.Fprintln(os.Stderr, "🐚 Attached to process streams (Ctrl+C to detach)")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		withHandle := len(args) != 1
		for {
			select {
			case <-sigCh:
				fmt.Fprintln(os.Stderr, "\n🐚 Detached")
				return nil

			case res, ok := <-events:
				if !ok {
					fmt.Fprintln(os.Stderr, "🐚 Connection closed")
					return nil
				}
				if res.Err != nil {
					fmt.Fprintln(os.Stderr, "🐚 Connection closed")
					return nil
				}
				fmt.Println(formatEvent(res.Event, attachRaw, withHandle))
			}
		}
	},
}

func init() {
	attachCmd.Flags().BoolVar(&attachRaw, "raw", false, "print events as stdout:/stderr:/exit: prefixed lines")
	rootCmd.AddCommand(attachCmd)
}
