package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/aretw0/animgraph/pkg/runner"
)

// SimulateOptions configures the simulate command.
type SimulateOptions struct {
	// Scenario is the path of the scenario YAML.
	Scenario string
	// JSON emits JSON lines instead of text frames.
	JSON bool
	// Step asks for confirmation before every step, or only before the
	// Breakpoints steps when any are named.
	Step        bool
	Breakpoints []string
	// SessionID persists the animator between runs; Fresh discards the
	// saved state first.
	SessionID string
	Fresh     bool
}

// Simulate plays a scenario against the engine's controller, reading
// answers from in and writing frames to out.
func Simulate(ctx context.Context, engine *animgraph.Engine, opts Options, sim SimulateOptions, in io.Reader, out io.Writer, logger *slog.Logger) (*runner.Result, error) {
	data, err := os.ReadFile(sim.Scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	sc, err := runner.ParseScenario(data)
	if err != nil {
		return nil, err
	}

	ctrl, err := engine.Controller(sc.Controller)
	if err != nil {
		return nil, err
	}
	defer engine.Release(sc.Controller)

	var handler runner.Handler
	if sim.JSON {
		handler = runner.NewJSONHandler(in, out)
	} else {
		var textOpts []runner.TextHandlerOption
		if tui.IsTerminal(out) {
			textOpts = append(textOpts, runner.WithTextHandlerRenderer(tui.NewRenderer()))
		}
		handler = runner.NewTextHandler(in, out, textOpts...)
	}

	runnerOpts := []runner.Option{
		runner.WithHandler(handler),
		runner.WithLogger(logger),
	}
	if sim.Step {
		confirm := runner.ConfirmationMiddleware(handler)
		if len(sim.Breakpoints) > 0 {
			confirm = runner.BreakpointMiddleware(confirm, sim.Breakpoints...)
		}
		runnerOpts = append(runnerOpts, runner.WithInterceptor(confirm))
	}
	if sim.SessionID != "" {
		store, err := NewSnapshotStore(opts)
		if err != nil {
			return nil, err
		}
		if sim.Fresh {
			if err := store.Delete(ctx, sim.SessionID); err != nil {
				logger.Warn("failed to reset session", "session_id", sim.SessionID, "err", err)
			}
		}
		runnerOpts = append(runnerOpts, runner.WithStore(store), runner.WithSessionID(sim.SessionID))
		if !sim.JSON {
			printSystemMessage("Session '%s' active.", sim.SessionID)
		}
	}

	return runner.NewRunner(runnerOpts...).Run(ctx, ctrl, engine.Assets(), sc)
}
