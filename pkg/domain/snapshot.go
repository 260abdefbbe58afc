package domain

// BlenderSnapshot captures one entry of a layer's crossfade stack.
type BlenderSnapshot struct {
	State          string  `json:"state"`
	Weight         float32 `json:"weight"`
	NormalizedTime float32 `json:"normalized_time"`
	Blending       bool    `json:"blending,omitempty"`
	// Target and Remaining describe an unfinished weight ramp.
	Target    float32 `json:"target,omitempty"`
	Remaining float32 `json:"remaining,omitempty"`
	Atomic    bool    `json:"atomic,omitempty"`
	// ExitTime is the exit point recorded by the first exit-time check of
	// the state, valid while ExitPending is set.
	ExitTime    float32 `json:"exit_time,omitempty"`
	ExitPending bool    `json:"exit_pending,omitempty"`
}

// LayerSnapshot captures the crossfade stack of one layer, most recent first.
type LayerSnapshot struct {
	Name     string            `json:"name"`
	Blenders []BlenderSnapshot `json:"blenders"`
}

// Snapshot is the serializable runtime state of an animator.
type Snapshot struct {
	Controller string `json:"controller"`
	// Revision counts the saves of a session. Zero means unversioned.
	Revision   uint64             `json:"revision,omitempty"`
	Time       float64            `json:"time"`
	Parameters map[string]float32 `json:"parameters"`
	Layers     []LayerSnapshot    `json:"layers"`
	// Sealed carries an encrypted snapshot. A sealed envelope keeps only
	// Controller in the clear.
	Sealed string `json:"sealed,omitempty"`
}

// CurrentState returns the state name on top of the named layer's stack, or "".
func (s *Snapshot) CurrentState(layer string) string {
	for _, l := range s.Layers {
		if l.Name == layer && len(l.Blenders) > 0 {
			return l.Blenders[0].State
		}
	}
	return ""
}

// Clone returns a deep copy of s.
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Parameters = make(map[string]float32, len(s.Parameters))
	for k, v := range s.Parameters {
		out.Parameters[k] = v
	}
	out.Layers = make([]LayerSnapshot, len(s.Layers))
	for i, l := range s.Layers {
		out.Layers[i] = LayerSnapshot{Name: l.Name, Blenders: append([]BlenderSnapshot(nil), l.Blenders...)}
	}
	return &out
}
