package cli

import (
	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the terminal process viewer",
	Long:  "Launch the interactive TUI for watching and controlling tracked processes.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := ConnectClient()
		if err != nil {
			return err
		}
		defer client.Close()
		return tui.Run(client)
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
