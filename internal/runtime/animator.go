package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
)

// ErrNoController is returned when an animator is built without a controller.
var ErrNoController = errors.New("animator requires a controller")

// ErrSnapshotMismatch is returned when restoring a snapshot taken from another controller.
var ErrSnapshotMismatch = errors.New("snapshot belongs to another controller")

type stack [domain.MaxBlendersPerLayer]blender

// Animator evaluates one instance of a controller: parameter values, the
// crossfade stack of every layer, a clock and the resulting pose.
//
// The controller is shared and only read. An Animator is not safe for
// concurrent use.
type Animator struct {
	ctrl   *domain.Controller
	clips  ports.ClipSource
	logger *slog.Logger
	hooks  domain.LifecycleHooks

	params []float32
	stacks []stack
	clock  float64

	rest    []domain.JointPose
	pose    []domain.JointPose
	scratch []domain.JointPose
	sample  []domain.JointPose
	leaf    []domain.JointPose
	rooted  []domain.JointPose
	model   []domain.JointPose
}

// Option configures an Animator.
type Option func(*Animator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Animator) {
		a.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(a *Animator) {
		a.hooks = a.hooks.Merge(hooks)
	}
}

// NewAnimator creates an animator for ctrl, sampling clips from clips.
// Without a clip source every state has zero duration and the pose stays
// at the bind pose. Every layer starts in its default state.
func NewAnimator(ctrl *domain.Controller, clips ports.ClipSource, opts ...Option) (*Animator, error) {
	if ctrl == nil {
		return nil, ErrNoController
	}
	a := &Animator{
		ctrl:   ctrl,
		clips:  clips,
		logger: logging.NewNop(),
		params: ctrl.Defaults(),
		stacks: make([]stack, ctrl.NumLayers()),
	}
	for _, opt := range opts {
		opt(a)
	}

	if ctrl.Skeleton != nil {
		n := ctrl.Skeleton.NumJoints()
		a.rest = ctrl.Skeleton.RestPose()
		a.pose = make([]domain.JointPose, n)
		a.scratch = make([]domain.JointPose, n)
		a.sample = make([]domain.JointPose, n)
		a.leaf = make([]domain.JointPose, n)
		a.rooted = make([]domain.JointPose, n)
		a.model = make([]domain.JointPose, n)
		copy(a.pose, a.rest)
	}

	a.reset(context.Background())
	return a, nil
}

// Controller returns the controller being evaluated.
func (a *Animator) Controller() *domain.Controller {
	return a.ctrl
}

// Time returns the accumulated clock in seconds.
func (a *Animator) Time() float64 {
	return a.clock
}

// --- Parameters ---

// SetParameter sets the named parameter.
func (a *Animator) SetParameter(name string, v float32) error {
	i := a.ctrl.FindParameterIndex(name)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrParameterNotFound, name)
	}
	a.params[i] = v
	return nil
}

// SetParameterIndex sets parameter i. Out of range indices are ignored.
func (a *Animator) SetParameterIndex(i int, v float32) {
	if i >= 0 && i < len(a.params) {
		a.params[i] = v
	}
}

// Parameter returns the value of the named parameter.
func (a *Animator) Parameter(name string) (float32, bool) {
	i := a.ctrl.FindParameterIndex(name)
	if i < 0 {
		return 0, false
	}
	return a.params[i], true
}

// Parameters returns a copy of every parameter value, by index.
func (a *Animator) Parameters() []float32 {
	out := make([]float32, len(a.params))
	copy(out, a.params)
	return out
}

// --- State machine ---

// Reset empties every layer's stack and puts each layer back in its default
// state, or its first state when no default is set. Parameters are kept.
func (a *Animator) Reset() {
	a.ResetContext(context.Background())
}

// ResetContext is Reset with a context passed to lifecycle hooks.
func (a *Animator) ResetContext(ctx context.Context) {
	a.reset(ctx)
}

func (a *Animator) reset(ctx context.Context) {
	for li, l := range a.ctrl.Layers() {
		st := &a.stacks[li]
		for i := range st {
			if !st[i].empty() {
				a.emitStateExit(ctx, l, st[i].state)
			}
			st[i].clear()
		}

		s := initialState(l)
		if s == nil {
			continue
		}
		st[0].blendIn(s, a.clock, 0, 0, false)
		st[0].setDuration(a.clock, a.stateDuration(l, s))
		a.emitStateEnter(ctx, l, s)
	}
	a.computePose()
}

func initialState(l *domain.Layer) *domain.State {
	if s := l.DefaultState(); s != nil {
		return s
	}
	if states := l.States(); len(states) > 0 {
		return states[0]
	}
	return nil
}

// CurrentState returns the name of the state on top of layer's stack, or "".
func (a *Animator) CurrentState(layer int) string {
	if layer < 0 || layer >= len(a.stacks) || a.stacks[layer][0].empty() {
		return ""
	}
	return a.stacks[layer][0].state.Name
}

// NormalizedTime returns the normalized time of layer's current state.
func (a *Animator) NormalizedTime(layer int) float32 {
	if layer < 0 || layer >= len(a.stacks) {
		return 0
	}
	return a.stacks[layer][0].normalizedTime(a.clock)
}

// TransitState crossfades layer into the named state over duration seconds,
// starting it at normalized time startOffset.
func (a *Animator) TransitState(layer int, state string, startOffset, duration float32, atomic bool) error {
	return a.TransitStateContext(context.Background(), layer, state, startOffset, duration, atomic)
}

// TransitStateContext is TransitState with a context passed to lifecycle hooks.
func (a *Animator) TransitStateContext(ctx context.Context, layer int, state string, startOffset, duration float32, atomic bool) error {
	l := a.ctrl.Layer(layer)
	if l == nil || layer >= len(a.stacks) {
		return fmt.Errorf("%w: index %d", domain.ErrLayerNotFound, layer)
	}
	s := l.FindState(state)
	if s == nil {
		return fmt.Errorf("layer %q: %w: %s", l.Name, domain.ErrStateNotFound, state)
	}
	a.transit(ctx, layer, s, startOffset, duration, atomic)
	return nil
}

// transit pushes the stack when the current top carries weight, so the
// outgoing state fades out while s fades in. A top that has not faded in at
// all is replaced.
func (a *Animator) transit(ctx context.Context, li int, s *domain.State, startOffset, duration float32, atomic bool) {
	l := a.ctrl.Layer(li)
	st := &a.stacks[li]
	top := &st[0]

	var from string
	if !top.empty() {
		from = top.state.Name
	}

	switch {
	case top.empty():
	case top.weight > 0:
		if last := &st[len(st)-1]; !last.empty() {
			a.emitStateExit(ctx, l, last.state)
		}
		old := top.state
		copy(st[1:], st[:len(st)-1])
		st[1].blendOut(duration)
		if st[1].empty() {
			a.emitStateExit(ctx, l, old)
		}
	default:
		a.emitStateExit(ctx, l, top.state)
	}

	top.blendIn(s, a.clock, startOffset, duration, atomic)
	top.setDuration(a.clock, a.stateDuration(l, s))

	a.logger.Debug("transition", "controller", a.ctrl.Name, "layer", l.Name,
		"from", from, "to", s.Name, "duration", duration, "atomic", atomic)
	a.emitTransition(ctx, l, from, s.Name, duration, atomic)
	a.emitStateEnter(ctx, l, s)
}

// --- Update ---

// Update advances the animator by dt seconds.
func (a *Animator) Update(dt float32) {
	a.UpdateContext(context.Background(), dt)
}

// UpdateContext is Update with a context passed to lifecycle hooks.
func (a *Animator) UpdateContext(ctx context.Context, dt float32) {
	if dt < 0 {
		dt = 0
	}
	prev := a.clock
	a.clock += float64(dt)

	for li, l := range a.ctrl.Layers() {
		st := &a.stacks[li]

		for i := range st {
			b := &st[i]
			if b.empty() {
				continue
			}
			b.advance(dt)
			if b.target == 0 && b.ramp == nil {
				a.emitStateExit(ctx, l, b.state)
				b.clear()
				continue
			}
			if b.weight <= 0 {
				continue
			}
			b.setDuration(a.clock, a.stateDuration(l, b.state))
			a.fireEvents(ctx, l, b, max(prev, b.start))
		}

		a.selectTransition(ctx, li, l)
	}

	a.computePose()
}

func (a *Animator) fireEvents(ctx context.Context, l *domain.Layer, b *blender, from float64) {
	if len(b.state.Events) == 0 {
		return
	}
	t1 := b.normalizedTime(from)
	t2 := b.normalizedTime(a.clock)
	for _, e := range b.state.Events {
		for range crossings(t1, t2, e.Time) {
			a.emitTimeEvent(ctx, l, b, e)
		}
	}
}

// selectTransition takes the first satisfied transition out of the current
// state of layer li.
func (a *Animator) selectTransition(ctx context.Context, li int, l *domain.Layer) {
	top := &a.stacks[li][0]
	if top.empty() {
		return
	}
	if top.atomic && top.blending() {
		return
	}

	t := top.normalizedTime(a.clock)
	for _, tr := range l.TransitionsFrom(top.state.Name) {
		if !tr.ConditionsMet(a.params) {
			continue
		}
		if tr.HasExitTime && !top.exitReached(t, tr.ExitTime) {
			continue
		}
		dst := l.FindState(tr.Dst)
		if dst == nil {
			continue
		}
		a.transit(ctx, li, dst, tr.StartTime, tr.BlendDuration(a.stateDuration(l, dst)), tr.Atomic)
		return
	}
}

// stateDuration is the weighted sum of the lengths of the clips s blends.
func (a *Animator) stateDuration(l *domain.Layer, s *domain.State) float32 {
	if a.clips == nil {
		return 0
	}
	var d float32
	for _, lw := range l.StateLeaves(s, a.params, nil) {
		d += lw.Weight * a.clips.ClipLength(lw.Clip)
	}
	return d
}
