package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"

	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
	"github.com/aretw0/animgraph/pkg/ports"
)

// ErrExpectationFailed is returned when at least one expectation did not hold.
var ErrExpectationFailed = errors.New("expectation failed")

// ErrStopped is returned when an interceptor stops the run.
var ErrStopped = errors.New("run stopped")

// Runner plays scenarios against fresh animators.
type Runner struct {
	// Handler receives the trace. If nil, a TextHandler on Stdin/Stdout is used.
	Handler Handler

	// Interceptor runs before each step. If nil, every step runs.
	Interceptor StepInterceptor

	// Logger is used for internal debug logging.
	Logger *slog.Logger

	// Store and SessionID make runs resumable.
	Store     ports.SnapshotStore
	SessionID string

	// Hooks are added to every animator the runner builds.
	Hooks domain.LifecycleHooks
}

// NewRunner creates a Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// recorder buffers lifecycle events between frames.
type recorder struct {
	events []observability.Event
}

func (rec *recorder) hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			rec.events = append(rec.events, observability.Event{Type: e.Type, Transition: e})
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			rec.events = append(rec.events, observability.Event{Type: e.Type, State: e})
		},
		OnStateExit: func(_ context.Context, e *domain.StateEvent) {
			rec.events = append(rec.events, observability.Event{Type: e.Type, State: e})
		},
		OnTimeEvent: func(_ context.Context, e *domain.TimeEventFired) {
			rec.events = append(rec.events, observability.Event{Type: e.Type, TimeEvent: e})
		},
	}
}

func (rec *recorder) take() []observability.Event {
	out := rec.events
	rec.events = nil
	return out
}

// Run builds an animator for ctrl and plays sc against it. The returned
// result is non-nil whenever the animator could be built, even on error.
func (r *Runner) Run(ctx context.Context, ctrl *domain.Controller, clips ports.ClipSource, sc *Scenario) (*Result, error) {
	handler := r.resolveHandler()
	interceptor := r.Interceptor
	if interceptor == nil {
		interceptor = AutoApproveMiddleware()
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}

	rec := &recorder{}
	anim, err := runtime.NewAnimator(ctrl, clips,
		runtime.WithLogger(r.Logger),
		runtime.WithLifecycleHooks(rec.hooks().Merge(r.Hooks)),
	)
	if err != nil {
		return nil, err
	}
	if err := r.resume(ctx, anim); err != nil {
		return nil, err
	}

	res := &Result{Scenario: sc.Name}
	if res.Scenario == "" {
		res.Scenario = sc.Controller
	}

	runErr := r.play(ctx, anim, sc, handler, interceptor, rec, res)

	res.Time = anim.Time()
	res.Snapshot = anim.Snapshot()
	if err := r.save(ctx, &res.Snapshot); err != nil && runErr == nil {
		runErr = err
	}
	if err := handler.Summary(ctx, res); err != nil && runErr == nil {
		runErr = fmt.Errorf("summary error: %w", err)
	}

	if runErr != nil {
		return res, runErr
	}
	if !res.Passed() {
		return res, fmt.Errorf("%w: %d failure(s)", ErrExpectationFailed, len(res.Failures))
	}
	return res, nil
}

func (r *Runner) play(ctx context.Context, anim *runtime.Animator, sc *Scenario, handler Handler, interceptor StepInterceptor, rec *recorder, res *Result) error {
	var fired []string

	emit := func(i int, st Step) error {
		events := rec.take()
		for _, e := range events {
			if e.TimeEvent != nil {
				fired = append(fired, e.TimeEvent.Name)
			}
		}
		snap := anim.Snapshot()
		res.Frames++
		return handler.Frame(ctx, Frame{
			Step:       i,
			Name:       st.Label(i),
			Time:       snap.Time,
			Parameters: snap.Parameters,
			Layers:     snap.Layers,
			Events:     events,
		})
	}

	for i, st := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := interceptor(ctx, i, st)
		if err != nil {
			return fmt.Errorf("interceptor error: %w", err)
		}
		if !ok {
			r.Logger.Info("run stopped", "step", st.Label(i))
			return ErrStopped
		}

		if err := apply(ctx, anim, st); err != nil {
			return fmt.Errorf("step %s: %w", st.Label(i), err)
		}

		dt := sc.DT
		if st.DT > 0 {
			dt = st.DT
		}
		if st.Tick == 0 {
			if err := emit(i, st); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
		for range st.Tick {
			if err := ctx.Err(); err != nil {
				return err
			}
			anim.UpdateContext(ctx, dt)
			if err := emit(i, st); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}

		if st.Expect == nil {
			continue
		}
		for _, msg := range check(anim, st.Expect, fired) {
			f := Failure{Step: i, Name: st.Label(i), Message: msg}
			res.Failures = append(res.Failures, f)
			if err := handler.SystemOutput(ctx, fmt.Sprintf("FAIL step %s: %s", f.Name, f.Message)); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
		fired = nil
	}
	return nil
}

func apply(ctx context.Context, anim *runtime.Animator, st Step) error {
	for _, name := range sortedKeys(st.Set) {
		if err := anim.SetParameter(name, st.Set[name]); err != nil {
			return err
		}
	}
	if st.Reset {
		anim.ResetContext(ctx)
	}
	if t := st.Transit; t != nil {
		layer := t.Layer
		if layer == "" {
			layer = domain.BaseLayerName
		}
		li := anim.Controller().LayerIndex(layer)
		if li < 0 {
			return fmt.Errorf("%w: %s", domain.ErrLayerNotFound, layer)
		}
		if err := anim.TransitStateContext(ctx, li, t.State, t.Offset, t.Duration, t.Atomic); err != nil {
			return err
		}
	}
	return nil
}

func check(anim *runtime.Animator, exp *Expectation, fired []string) []string {
	var out []string
	tol := exp.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	for _, layer := range sortedKeys(exp.States) {
		li := anim.Controller().LayerIndex(layer)
		if li < 0 {
			out = append(out, fmt.Sprintf("unknown layer %q", layer))
			continue
		}
		if got := anim.CurrentState(li); got != exp.States[layer] {
			out = append(out, fmt.Sprintf("layer %q is in %q, want %q", layer, got, exp.States[layer]))
		}
	}

	for _, name := range sortedKeys(exp.Parameters) {
		got, ok := anim.Parameter(name)
		if !ok {
			out = append(out, fmt.Sprintf("unknown parameter %q", name))
			continue
		}
		if want := exp.Parameters[name]; math.Abs(float64(got-want)) > float64(tol) {
			out = append(out, fmt.Sprintf("parameter %q is %v, want %v", name, got, want))
		}
	}

	for _, name := range exp.Events {
		if !slices.Contains(fired, name) {
			out = append(out, fmt.Sprintf("event %q did not fire", name))
		}
	}
	return out
}

func (r *Runner) resume(ctx context.Context, anim *runtime.Animator) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	snap, err := r.Store.Load(ctx, r.SessionID)
	if errors.Is(err, domain.ErrSessionNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session %s: %w", r.SessionID, err)
	}
	if err := anim.Restore(*snap); err != nil {
		return fmt.Errorf("failed to resume session %s: %w", r.SessionID, err)
	}
	r.Logger.Debug("session resumed", "session_id", r.SessionID, "time", snap.Time)
	return nil
}

func (r *Runner) save(ctx context.Context, snap *domain.Snapshot) error {
	if r.Store == nil || r.SessionID == "" {
		return nil
	}
	if err := r.Store.Save(ctx, r.SessionID, snap); err != nil {
		return fmt.Errorf("failed to save session %s: %w", r.SessionID, err)
	}
	return nil
}

func (r *Runner) resolveHandler() Handler {
	if r.Handler != nil {
		return r.Handler
	}
	return NewTextHandler(os.Stdin, os.Stdout)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
