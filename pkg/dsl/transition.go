package dsl

import (
	"github.com/aretw0/animgraph/internal/textfmt"
	"github.com/aretw0/animgraph/pkg/domain"
)

type condition struct {
	param   string
	compare domain.CompareFunc
	value   float32
}

// TransitionBuilder configures a transition. Unset fields keep the
// parser's defaults.
type TransitionBuilder struct {
	layer      *LayerBuilder
	src, dst   string
	conditions []condition
	atomic     bool
	exit       *float32
	fixed      *bool
	start      *float32
	duration   *float32
}

// When adds a condition. Every condition must hold for the transition to fire.
func (t *TransitionBuilder) When(param string, cmp domain.CompareFunc, v float32) *TransitionBuilder {
	t.conditions = append(t.conditions, condition{param: param, compare: cmp, value: v})
	return t
}

// Duration sets the crossfade length, normalized unless Fixed is set.
func (t *TransitionBuilder) Duration(d float32) *TransitionBuilder {
	t.duration = &d
	return t
}

// Fixed makes the duration absolute seconds.
func (t *TransitionBuilder) Fixed(fixed bool) *TransitionBuilder {
	t.fixed = &fixed
	return t
}

// ExitTime makes the transition wait for the source's normalized time to
// reach at.
func (t *TransitionBuilder) ExitTime(at float32) *TransitionBuilder {
	t.exit = &at
	return t
}

// StartTime sets the destination's starting normalized time.
func (t *TransitionBuilder) StartTime(at float32) *TransitionBuilder {
	t.start = &at
	return t
}

// Atomic makes the transition uninterruptible while it blends.
func (t *TransitionBuilder) Atomic() *TransitionBuilder {
	t.atomic = true
	return t
}

// Layer returns the owning layer.
func (t *TransitionBuilder) Layer() *LayerBuilder {
	return t.layer
}

func (t *TransitionBuilder) write(w *textfmt.Writer) {
	w.Open("transition %s %s", textfmt.Quote(t.src), textfmt.Quote(t.dst))
	for _, c := range t.conditions {
		w.Line("condition %s %s %s", textfmt.Quote(c.param), c.compare, textfmt.Num(c.value))
	}
	if t.atomic {
		w.Line("atomic")
	}
	if t.exit != nil {
		w.Line("hasExitTime")
		w.Line("exitTime %s", textfmt.Num(*t.exit))
	}
	if t.fixed != nil {
		w.Line("fixedDuration %t", *t.fixed)
	}
	if t.start != nil {
		w.Line("startTime %s", textfmt.Num(*t.start))
	}
	if t.duration != nil {
		w.Line("duration %s", textfmt.Num(*t.duration))
	}
	w.Close()
}
