package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tessro/sandexec/internal/daemon"
	"github.com/tessro/sandexec/internal/executor"
)

var execSandbox bool

var execCmd = &cobra.Command{
	Use:   "exec <command>...",
	Short: "Run a command to completion and print its output",
	Long: `Run a command through the daemon and wait for it to finish.

On success the trimmed stdout is printed. On a nonzero exit the trimmed
stderr (or "Command exited with code: N") is printed to stderr and sandexec
exits with status 1.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := MustConnect()
		defer client.Close()

		out, err := client.Exec(joinCommand(args), execSandbox)
		if err != nil {
			if errors.Is(err, executor.ErrCommandFailed) {
				fmt.Fprintln(os.Stderr, commandMessage(err))
				return &exitCodeError{code: 1}
			}
			return fmt.Errorf("exec: %w", err)
		}
		if out != "" {
			fmt.Println(out)
		}
		return nil
	},
}

// commandMessage extracts the failure text the daemon sent for a failed command.
func commandMessage(err error) string {
	var serverErr *daemon.ServerError
	if errors.As(err, &serverErr) {
		return serverErr.Message
	}
	return err.Error()
}

func init() {
	execCmd.Flags().BoolVarP(&execSandbox, "sandbox", "s", false, "run inside the sandbox bootstrap")
	execCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(execCmd)
}
