package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/paths"
)

// baseDir is the global --dir flag value.
var baseDir string

var rootCmd = &cobra.Command{
	Use:   "sandexec",
	Short: "Sandboxed process supervisor",
	Long:  "sandexec launches shell commands, plain or inside a sandbox bootstrap, and streams their output to attached clients.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Export --dir so every path helper sees the override.
		if baseDir != "" {
			if err := os.Setenv(paths.EnvDir, baseDir); err != nil {
				return err
			}
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// BaseDir returns the value of the --dir flag.
func BaseDir() string {
	return baseDir
}

func init() {
	rootCmd.PersistentFlags().StringVar(&baseDir, "dir", "", "base directory for sandexec data (overrides ~/.sandexec)")
}

// exitCodeError carries a process exit status out of a command without
// printing anything further.
type exitCodeError struct {
	code int
}

func (e *exitCodeError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec *exitCodeError
	if errors.As(err, &ec) {
		return ec.code
	}
	return 1
}

// Execute runs the root command and reports errors on stderr.
func Execute() error {
	err := rootCmd.Execute()
	var ec *exitCodeError
	if err != nil && !errors.As(err, &ec) {
		fmt.Fprintf(os.Stderr, "🐚 Error: %v\n", err)
	}
	return err
}
