package main

import (
	"context"
	"errors"
	"os"

	"github.com/aretw0/animgraph/internal/cli"
	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/aretw0/animgraph/pkg/runner"
	"github.com/spf13/cobra"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate <scenario.yaml>",
	Short: "Play a scenario against a controller",
	Long: `Runs the steps of a YAML scenario (parameter changes, forced transitions,
ticks and expectations) and prints a frame per tick. Exits non-zero when an
expectation fails.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, log, err := engine(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		jsonMode, _ := flags.GetBool("json")
		step, _ := flags.GetBool("step")
		breakpoints, _ := flags.GetStringSlice("break")
		sessionID, _ := flags.GetString("session")
		fresh, _ := flags.GetBool("fresh")

		if !jsonMode && tui.IsTerminal(os.Stdout) {
			tui.PrintBanner(os.Stdout)
		}

		ctx, stop := runner.SignalContext(context.Background())
		defer stop()

		_, err = cli.Simulate(ctx, eng, options(cmd), cli.SimulateOptions{
			Scenario:    args[0],
			JSON:        jsonMode,
			Step:        step || len(breakpoints) > 0,
			Breakpoints: breakpoints,
			SessionID:   sessionID,
			Fresh:       fresh,
		}, os.Stdin, os.Stdout, log)
		if errors.Is(err, runner.ErrStopped) || errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	simulateCmd.Flags().Bool("json", false, "Emit JSON lines instead of text frames")
	simulateCmd.Flags().Bool("step", false, "Confirm before every step")
	simulateCmd.Flags().StringSlice("break", nil, "Confirm only before the named steps")
	simulateCmd.Flags().StringP("session", "s", "", "Persist the animator under this session id")
	simulateCmd.Flags().Bool("fresh", false, "Discard the saved session before running")
}
