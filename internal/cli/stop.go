package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	stopWait    bool
	stopTimeout time.Duration
)

var stopCmd = &cobra.Command{
	Use:   "stop <handle>",
	Short: "Kill a process",
	Long: `Kill a process and its process group.

By default stop returns as soon as the signal is sent. With --wait it
returns once the exit event has been delivered and the handle released.`,
	Args: cobra.ExactArgs(1),
	RunE: runStop,
}

func runStop(cmd *cobra.Command, args []string) error {
	client := MustConnect()
	defer client.Close()

	handle := args[0]
	var err error
	if stopWait {
		err = client.StopWait(handle, stopTimeout)
	} else {
		err = client.Stop(handle)
	}
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	if stopWait {
		fmt.Printf("🐚 Stopped %s\n", handle)
	} else {
		fmt.Printf("🐚 Stop requested for %s\n", handle)
	}
	return nil
}

func init() {
	stopCmd.Flags().BoolVarP(&stopWait, "wait", "w", false, "wait until the process has exited and been cleaned up")
	stopCmd.Flags().DurationVar(&stopTimeout, "timeout", 10*time.Second, "how long --wait may block (0 waits forever)")
	rootCmd.AddCommand(stopCmd)
}
