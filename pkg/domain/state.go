package domain

import "sort"

// TimeEvent is a named marker at a normalized time of a state.
type TimeEvent struct {
	Time float32 `json:"time"`
	Name string  `json:"name"`
}

// State is a node of a layer's state machine. It plays either a single clip
// or a blend tree, never both.
type State struct {
	Name string
	Clip ClipHandle
	Tree Handle

	// Events are kept sorted by time.
	Events []TimeEvent

	// Position is the editor location of the state.
	Position Vec2
}

// HasTree reports whether the state plays a blend tree.
func (s *State) HasTree() bool {
	return !s.Tree.IsZero()
}

// AddEvent inserts a time event, keeping Events ordered by time.
func (s *State) AddEvent(time float32, name string) {
	i := sort.Search(len(s.Events), func(i int) bool { return s.Events[i].Time > time })
	s.Events = append(s.Events, TimeEvent{})
	copy(s.Events[i+1:], s.Events[i:])
	s.Events[i] = TimeEvent{Time: time, Name: name}
}

// RemoveEvent deletes every event with the given name and reports whether any matched.
func (s *State) RemoveEvent(name string) bool {
	kept := s.Events[:0]
	for _, e := range s.Events {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	removed := len(kept) != len(s.Events)
	s.Events = kept
	return removed
}

func (s *State) clone() *State {
	c := *s
	c.Events = append([]TimeEvent(nil), s.Events...)
	return &c
}
