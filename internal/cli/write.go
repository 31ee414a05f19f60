package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var writeCmd = &cobra.Command{
	Use:   "write <handle> <text>...",
	Short: "Send a line to a process's stdin",
	Long:  "Send text followed by a newline to the standard input of a running process.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		if err := client.Write(args[0], joinCommand(args[1:])); err != nil {
			return fmt.Errorf("write: %w", err)
		}
		return nil
	},
}

func init() {
	writeCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(writeCmd)
}
