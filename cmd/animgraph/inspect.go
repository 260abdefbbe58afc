package main

import (
	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <name>",
	Short: "Describe a controller",
	Long:  `Renders a markdown summary of the controller: parameters, layers, states with their motion and duration, and transitions.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := engine(cmd)
		if err != nil {
			return err
		}
		md, err := eng.Inspect(args[0])
		if err != nil {
			return err
		}
		return tui.Print(cmd.OutOrStdout(), md)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
