package main

import (
	"fmt"

	"github.com/aretw0/animgraph/internal/validator"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [name]",
	Short: "Check controllers for consistency",
	Long: `Compiles every controller (or the named one) and reports unreachable
states, missing clips, unbound blend parameters and masks that select nothing.
Exits non-zero when any error-level issue is found.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := engine(cmd)
		if err != nil {
			return err
		}

		var reports []*validator.Report
		var failed error
		if len(args) == 1 {
			report, err := eng.Validate(args[0])
			if err != nil {
				return err
			}
			reports = append(reports, report)
			failed = report.Err()
		} else {
			reports, failed = eng.ValidateAll()
		}

		out := cmd.OutOrStdout()
		for _, r := range reports {
			if len(r.Issues) == 0 {
				fmt.Fprintf(out, "%s: ok\n", r.Controller)
				continue
			}
			for _, issue := range r.Issues {
				fmt.Fprintf(out, "%s: %s\n", r.Controller, issue)
			}
		}
		if failed != nil {
			return fmt.Errorf("validation failed")
		}
		fmt.Fprintln(out, "All controllers are valid!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
