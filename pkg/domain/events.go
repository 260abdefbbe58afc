package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventTransition EventType = "transition"
	EventStateEnter EventType = "state_enter"
	EventStateExit  EventType = "state_exit"
	EventTimeEvent  EventType = "time_event"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	// Controller is the name of the controller the animator was built from.
	Controller string `json:"controller"`
	Layer      string `json:"layer"`
	// Clock is the animator's accumulated time in seconds.
	Clock float64 `json:"clock"`
}

// TransitionEvent is emitted when a layer starts crossfading between states.
type TransitionEvent struct {
	EventBase
	From     string  `json:"from"`
	To       string  `json:"to"`
	Duration float32 `json:"duration"`
	Atomic   bool    `json:"atomic,omitempty"`
}

// StateEvent represents a state becoming current or leaving the blend stack.
type StateEvent struct {
	EventBase
	State string `json:"state"`
}

// TimeEventFired is emitted when playback crosses a state's time event.
type TimeEventFired struct {
	EventBase
	State  string  `json:"state"`
	Name   string  `json:"name"`
	Time   float32 `json:"time"`
	Weight float32 `json:"weight"`
}

// LifecycleHooks defines callbacks for animator observability. Nil
// callbacks are skipped.
type LifecycleHooks struct {
	OnTransition func(context.Context, *TransitionEvent)
	OnStateEnter func(context.Context, *StateEvent)
	OnStateExit  func(context.Context, *StateEvent)
	OnTimeEvent  func(context.Context, *TimeEventFired)
}

// Merge returns hooks calling h first and then o for every event.
func (h LifecycleHooks) Merge(o LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnTransition: chain(h.OnTransition, o.OnTransition),
		OnStateEnter: chain(h.OnStateEnter, o.OnStateEnter),
		OnStateExit:  chain(h.OnStateExit, o.OnStateExit),
		OnTimeEvent:  chain(h.OnTimeEvent, o.OnTimeEvent),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
