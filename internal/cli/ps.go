package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var psFormat string

var psCmd = &cobra.Command{
	Use:   "ps",
	Short: "List tracked processes",
	Long:  "List every process the daemon is tracking, in launch order.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(psFormat); err != nil {
			return err
		}

		client := MustConnect()
		defer client.Close()

		list, err := client.List()
		if err != nil {
			return fmt.Errorf("list: %w", err)
		}

		if ok, err := writeStructured(os.Stdout, psFormat, list); ok {
			return err
		}

		if len(list.Processes) == 0 {
			fmt.Println("No processes running.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "HANDLE\tPID\tSTATE\tSANDBOX\tAGE\tCOMMAND")
		for _, p := range list.Processes {
			sandbox := "-"
			if p.Sandboxed {
				sandbox = "yes"
			}
			_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
				p.Handle, p.PID, p.State, sandbox, formatAge(p.LaunchedAt), p.Command)
		}
		return w.Flush()
	},
}

func init() {
	psCmd.Flags().StringVarP(&psFormat, "format", "f", formatTable, "output format: table, json or yaml")
	rootCmd.AddCommand(psCmd)
}
