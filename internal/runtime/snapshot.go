package runtime

import (
	"fmt"

	"github.com/aretw0/animgraph/pkg/domain"
)

// Snapshot captures the parameters, clock and crossfade stacks.
func (a *Animator) Snapshot() domain.Snapshot {
	snap := domain.Snapshot{
		Controller: a.ctrl.Name,
		Time:       a.clock,
		Parameters: make(map[string]float32, len(a.params)),
	}
	for i, p := range a.ctrl.Parameters() {
		snap.Parameters[p.Name] = a.params[i]
	}

	for li, l := range a.ctrl.Layers() {
		ls := domain.LayerSnapshot{Name: l.Name}
		for i := range a.stacks[li] {
			b := &a.stacks[li][i]
			if b.empty() {
				continue
			}
			ls.Blenders = append(ls.Blenders, domain.BlenderSnapshot{
				State:          b.state.Name,
				Weight:         b.weight,
				NormalizedTime: b.normalizedTime(a.clock),
				Blending:       b.blending(),
				Target:         b.target,
				Remaining:      b.remaining(),
				Atomic:         b.atomic,
				ExitTime:       b.exitTime,
				ExitPending:    b.exitPending,
			})
		}
		snap.Layers = append(snap.Layers, ls)
	}
	return snap
}

// Restore replaces the animator's runtime state with snap. Unknown
// parameters, layers and states are skipped with a warning.
func (a *Animator) Restore(snap domain.Snapshot) error {
	if snap.Controller != a.ctrl.Name {
		return fmt.Errorf("%w: %q is not %q", ErrSnapshotMismatch, snap.Controller, a.ctrl.Name)
	}

	a.clock = snap.Time
	a.params = a.ctrl.Defaults()
	for name, v := range snap.Parameters {
		if err := a.SetParameter(name, v); err != nil {
			a.logger.Warn("snapshot parameter skipped", "controller", a.ctrl.Name, "parameter", name)
		}
	}

	for i := range a.stacks {
		for j := range a.stacks[i] {
			a.stacks[i][j].clear()
		}
	}

	for _, ls := range snap.Layers {
		li := a.ctrl.LayerIndex(ls.Name)
		if li < 0 {
			a.logger.Warn("snapshot layer skipped", "controller", a.ctrl.Name, "layer", ls.Name)
			continue
		}
		l := a.ctrl.Layer(li)
		st := &a.stacks[li]
		n := 0
		for _, bs := range ls.Blenders {
			s := l.FindState(bs.State)
			if s == nil {
				a.logger.Warn("snapshot state skipped", "controller", a.ctrl.Name, "layer", l.Name, "state", bs.State)
				continue
			}
			if n == len(st) {
				break
			}
			b := &st[n]
			n++

			b.state = s
			b.atomic = bs.Atomic
			b.exitTime = bs.ExitTime
			b.exitPending = bs.ExitPending
			b.start = a.clock
			b.offset = bs.NormalizedTime
			b.weight = bs.Weight
			b.target = bs.Weight
			if bs.Blending && bs.Remaining > 0 {
				b.rampTo(bs.Target, bs.Remaining)
			}
			b.setDuration(a.clock, a.stateDuration(l, s))
		}
	}

	a.computePose()
	return nil
}
