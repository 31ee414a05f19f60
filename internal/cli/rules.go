package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tessro/sandexec/internal/config"
	"github.com/tessro/sandexec/internal/rules"
)

var rulesSandbox bool

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect launch rules",
	Long:  "Commands for inspecting the rules that decide which commands the daemon may launch.",
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check <command>...",
	Short: "Check whether a command would be allowed",
	Long: `Evaluate the configured rules file against a command without launching it.
Exits 1 if the command would be denied.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path := cfg.GetRulesPath()
		if path == "" {
			fmt.Println("allow (rules disabled)")
			return nil
		}

		req := rules.Request{Command: joinCommand(args), Sandboxed: rulesSandbox}
		err = rules.NewEvaluator(path).Check(cmd.Context(), req)
		var denied *rules.DeniedError
		if errors.As(err, &denied) {
			fmt.Printf("deny (%s)\n", denied.Reason)
			return &exitCodeError{code: 1}
		}
		if err != nil {
			return err
		}
		fmt.Println("allow")
		return nil
	},
}

func init() {
	rulesCheckCmd.Flags().BoolVarP(&rulesSandbox, "sandbox", "s", false, "check as a sandboxed launch")
	rulesCheckCmd.Flags().SetInterspersed(false)
	rulesCmd.AddCommand(rulesCheckCmd)
	rootCmd.AddCommand(rulesCmd)
}
