package domain

// Transition defines a guarded crossfade from one state to another.
// States are referenced by name, so renumbering or removing other states
// never invalidates a transition.
type Transition struct {
	Src string `json:"src"`
	Dst string `json:"dst"`

	// Conditions must all hold for the transition to fire. An empty list always holds.
	Conditions []Condition `json:"conditions,omitempty"`

	// HasExitTime delays the transition until the source reaches ExitTime
	// (normalized, counted from the loop in which the transition was first considered).
	HasExitTime bool    `json:"has_exit_time"`
	ExitTime    float32 `json:"exit_time"`

	// FixedDuration makes Duration a length in seconds. Otherwise Duration is a
	// fraction of the destination state's duration.
	FixedDuration bool    `json:"fixed_duration"`
	Duration      float32 `json:"duration"`

	// StartTime is the normalized time at which the destination starts playing.
	StartTime float32 `json:"start_time"`

	// Atomic transitions cannot be interrupted while blending.
	Atomic bool `json:"atomic"`
}

func newTransition(src, dst string) *Transition {
	return &Transition{
		Src:           src,
		Dst:           dst,
		FixedDuration: true,
		Duration:      DefaultTransitionDuration,
	}
}

// AddCondition appends a condition to the conjunction.
func (t *Transition) AddCondition(param int, cmp CompareFunc, value float32) {
	t.Conditions = append(t.Conditions, Condition{Parameter: param, Compare: cmp, Value: value})
}

// ConditionsMet reports whether every condition holds for params.
func (t *Transition) ConditionsMet(params []float32) bool {
	for _, c := range t.Conditions {
		if !c.Evaluate(params) {
			return false
		}
	}
	return true
}

// BlendDuration returns the crossfade length in seconds given the
// destination state's duration.
func (t *Transition) BlendDuration(dstDuration float32) float32 {
	if t.FixedDuration {
		return t.Duration
	}
	return t.Duration * dstDuration
}

func (t *Transition) clone() *Transition {
	c := *t
	c.Conditions = append([]Condition(nil), t.Conditions...)
	return &c
}
