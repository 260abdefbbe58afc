package observability

import (
	"context"
	"sync"

	"github.com/aretw0/animgraph/pkg/domain"
)

// Event is one lifecycle event delivered by a Stream. Exactly one of the
// pointer fields is set.
type Event struct {
	Type       domain.EventType        `json:"type"`
	Transition *domain.TransitionEvent `json:"transition,omitempty"`
	State      *domain.StateEvent      `json:"state,omitempty"`
	TimeEvent  *domain.TimeEventFired  `json:"time_event,omitempty"`
}

// Stream fans lifecycle events out to every subscriber. Slow subscribers
// drop events instead of blocking the animator.
type Stream struct {
	mu     sync.Mutex
	buffer int
	subs   map[int]chan Event
	next   int
	drops  int
}

// NewStream creates a stream whose subscriber channels hold buffer events.
func NewStream(buffer int) *Stream {
	if buffer < 1 {
		buffer = 1
	}
	return &Stream{buffer: buffer, subs: make(map[int]chan Event)}
}

// Subscribe returns a channel of events, closed when ctx is done.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, s.buffer)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()
	return ch
}

// Subscribers returns the number of live subscriptions.
func (s *Stream) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (s *Stream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drops
}

// Publish delivers e to every subscriber without blocking.
func (s *Stream) Publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
			s.drops++
		}
	}
}

// Hooks returns lifecycle hooks publishing into the stream.
func (s *Stream) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			s.Publish(Event{Type: e.Type, Transition: e})
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			s.Publish(Event{Type: e.Type, State: e})
		},
		OnStateExit: func(_ context.Context, e *domain.StateEvent) {
			s.Publish(Event{Type: e.Type, State: e})
		},
		OnTimeEvent: func(_ context.Context, e *domain.TimeEventFired) {
			s.Publish(Event{Type: e.Type, TimeEvent: e})
		},
	}
}
