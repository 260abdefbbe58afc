package runner

import (
	"context"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
)

// Frame is the animator state after one tick, or after a step that does not tick.
type Frame struct {
	Step       int                    `json:"step"`
	Name       string                 `json:"name"`
	Time       float64                `json:"time"`
	Parameters map[string]float32     `json:"parameters"`
	Layers     []domain.LayerSnapshot `json:"layers"`
	// Events holds the lifecycle events emitted since the previous frame.
	Events []observability.Event `json:"events,omitempty"`
}

// Failure is an expectation that did not hold.
type Failure struct {
	Step    int    `json:"step"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Result summarizes a run.
type Result struct {
	Scenario string          `json:"scenario"`
	Frames   int             `json:"frames"`
	Time     float64         `json:"time"`
	Failures []Failure       `json:"failures,omitempty"`
	Snapshot domain.Snapshot `json:"snapshot"`
}

// Passed reports whether every expectation held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Handler receives the trace of a run.
// This allows switching between Text (terminal) and JSON (structured) output.
type Handler interface {
	// Frame presents one frame of the trace.
	Frame(ctx context.Context, f Frame) error

	// SystemOutput presents a meta-message, such as a failed expectation.
	SystemOutput(ctx context.Context, msg string) error

	// Input reads a line from the user. Used by interactive stepping.
	Input(ctx context.Context) (string, error)

	// Summary presents the result once the run ends.
	Summary(ctx context.Context, r *Result) error
}
