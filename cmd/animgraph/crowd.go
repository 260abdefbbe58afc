package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/animgraph/internal/cli"
	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/aretw0/animgraph/pkg/runner"
	"github.com/spf13/cobra"
)

var crowdCmd = &cobra.Command{
	Use:   "crowd <name>",
	Short: "Tick many animators of a controller and report the cost",
	Long: `Creates --count animators of the controller and advances them --ticks times,
in parallel on a worker pool or, with --ecs, as entities of an ECS world.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, log, err := engine(cmd)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		count, _ := flags.GetInt("count")
		ticks, _ := flags.GetInt("ticks")
		dt, _ := flags.GetFloat32("dt")
		workers, _ := flags.GetInt("workers")
		useECS, _ := flags.GetBool("ecs")
		raw, _ := flags.GetStringSlice("set")

		params, err := parseParams(raw)
		if err != nil {
			return err
		}

		ctx, stop := runner.SignalContext(context.Background())
		defer stop()

		report, err := cli.Crowd(ctx, eng, cli.CrowdOptions{
			Controller: args[0],
			Count:      count,
			Ticks:      ticks,
			DT:         dt,
			Params:     params,
			ECS:        useECS,
			Workers:    workers,
		}, nil, log)
		if report == nil {
			return err
		}
		if perr := tui.Print(cmd.OutOrStdout(), report.Markdown()); perr != nil {
			return perr
		}
		return err
	},
}

// parseParams reads "name=value" pairs.
func parseParams(raw []string) (map[string]float32, error) {
	params := make(map[string]float32, len(raw))
	for _, kv := range raw {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("expected name=value, got %q", kv)
		}
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %w", name, err)
		}
		params[name] = float32(v)
	}
	return params, nil
}

func init() {
	rootCmd.AddCommand(crowdCmd)
	crowdCmd.Flags().Int("count", 1000, "Number of animators")
	crowdCmd.Flags().Int("ticks", 300, "Number of ticks")
	crowdCmd.Flags().Float32("dt", 1.0/30, "Tick length in seconds")
	crowdCmd.Flags().Int("workers", 0, "Worker pool size (default GOMAXPROCS)")
	crowdCmd.Flags().Bool("ecs", false, "Tick the crowd as ECS entities")
	crowdCmd.Flags().StringSlice("set", nil, "Parameter values as name=value")
}
