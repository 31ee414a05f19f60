package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  "Print the version, commit, and build date of sandexec.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("🐚 sandexec %s\n", version.String())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
