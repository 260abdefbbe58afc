package main

import (
	"fmt"

	"github.com/aretw0/animgraph/internal/cli"
	"github.com/aretw0/animgraph/internal/presentation/graph"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:   "graph <name>",
	Short: "Export the state machine visualization",
	Long: `Outputs a Mermaid diagram of every layer of the controller: states, transitions
and their conditions. With --session the current and fading states of a saved
session are highlighted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, _, err := engine(cmd)
		if err != nil {
			return err
		}
		ctrl, err := eng.Controller(args[0])
		if err != nil {
			return err
		}
		defer eng.Release(args[0])

		var overlay *graph.Overlay
		if sessionID, _ := cmd.Flags().GetString("session"); sessionID != "" {
			store, err := cli.NewSnapshotStore(options(cmd))
			if err != nil {
				return err
			}
			snap, err := store.Load(cmd.Context(), sessionID)
			if err != nil {
				return fmt.Errorf("failed to load session %q: %w", sessionID, err)
			}
			overlay = graph.OverlayFromSnapshot(snap)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(ctrl, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().StringP("session", "s", "", "Highlight the state of a saved session")
}
