package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runningCmd = &cobra.Command{
	Use:   "running <handle>",
	Short: "Report whether a process is running",
	Long: `Print running, exited or not_found for a handle.

A process is released shortly after it exits. A query that catches it
before then prints exited and releases it; later queries print not_found.
Use 'sandexec logs' to read the output of a released process.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		status, err := client.Running(args[0])
		if err != nil {
			return fmt.Errorf("running: %w", err)
		}
		fmt.Println(status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runningCmd)
}
