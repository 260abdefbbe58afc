package main

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/animgraph/internal/cli"
	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage saved animator sessions",
	Long:  `List, inspect and remove animator snapshots saved by simulate --session or the HTTP server.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore(cmd)
		if err != nil {
			return err
		}
		ids, err := store.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(ids) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}
		for _, id := range ids {
			fmt.Fprintln(out, id)
		}
		return nil
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the snapshot of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore(cmd)
		if err != nil {
			return err
		}
		snap, err := store.Load(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load session %q: %w", args[0], err)
		}

		data, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := getStore(cmd)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		failed := 0
		for _, id := range args {
			if err := store.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(out, "Error removing '%s': %v\n", id, err)
				failed++
				continue
			}
			fmt.Fprintf(out, "Removed session '%s'\n", id)
		}
		if failed > 0 {
			return fmt.Errorf("%d session(s) could not be removed", failed)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}

func getStore(cmd *cobra.Command) (ports.SnapshotStore, error) {
	return cli.NewSnapshotStore(options(cmd))
}
