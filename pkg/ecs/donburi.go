package ecs

import (
	"context"

	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
	"github.com/yohamta/donburi/filter"
)

// AnimatorData is the component state of an animated entity.
type AnimatorData struct {
	Animator *runtime.Animator
	// Speed scales the frame delta. Zero freezes the animator.
	Speed  float32
	Paused bool
}

// Animator is the component type holding AnimatorData.
var Animator = donburi.NewComponentType[AnimatorData](AnimatorData{Speed: 1})

// TransitionEvent is a layer transition raised by an entity's animator.
type TransitionEvent struct {
	Entity donburi.Entity
	domain.TransitionEvent
}

// StateEvent is a state entering or leaving an entity's blend stack.
type StateEvent struct {
	Entity donburi.Entity
	domain.StateEvent
}

// TimeEvent is a time event fired by an entity's animator.
type TimeEvent struct {
	Entity donburi.Entity
	domain.TimeEventFired
}

var (
	// TransitionEventType carries every TransitionEvent.
	TransitionEventType = events.NewEventType[TransitionEvent]()
	// StateEnterEventType and StateExitEventType carry StateEvents.
	StateEnterEventType = events.NewEventType[StateEvent]()
	StateExitEventType  = events.NewEventType[StateEvent]()
	// TimeEventType carries every TimeEvent.
	TimeEventType = events.NewEventType[TimeEvent]()
)

// Hooks returns lifecycle hooks publishing into world on behalf of entity.
// Events are queued until ProcessEvents runs.
func Hooks(world donburi.World, entity donburi.Entity) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			TransitionEventType.Publish(world, TransitionEvent{Entity: entity, TransitionEvent: *e})
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			StateEnterEventType.Publish(world, StateEvent{Entity: entity, StateEvent: *e})
		},
		OnStateExit: func(_ context.Context, e *domain.StateEvent) {
			StateExitEventType.Publish(world, StateEvent{Entity: entity, StateEvent: *e})
		},
		OnTimeEvent: func(_ context.Context, e *domain.TimeEventFired) {
			TimeEventType.Publish(world, TimeEvent{Entity: entity, TimeEventFired: *e})
		},
	}
}

// Spawn creates an entity with the Animator component. build receives the
// hooks bound to the new entity; on error the entity is removed.
func Spawn(world donburi.World, build func(hooks domain.LifecycleHooks) (*runtime.Animator, error), components ...donburi.IComponentType) (donburi.Entity, error) {
	entity := world.Create(append([]donburi.IComponentType{Animator}, components...)...)
	a, err := build(Hooks(world, entity))
	if err != nil {
		world.Remove(entity)
		return donburi.Null, err
	}
	Animator.SetValue(world.Entry(entity), AnimatorData{Animator: a, Speed: 1})
	return entity, nil
}

// ProcessEvents delivers every queued animator event to its subscribers.
func ProcessEvents(world donburi.World) {
	TransitionEventType.ProcessEvents(world)
	StateEnterEventType.ProcessEvents(world)
	StateExitEventType.ProcessEvents(world)
	TimeEventType.ProcessEvents(world)
}

// System advances every animated entity.
type System struct {
	query *donburi.Query
}

// NewSystem creates a system over entities with the Animator component.
func NewSystem() *System {
	return &System{query: donburi.NewQuery(filter.Contains(Animator))}
}

// Update advances each unpaused animator by dt scaled by its speed, then
// processes the events they raised.
func (s *System) Update(world donburi.World, dt float32) {
	s.UpdateContext(context.Background(), world, dt)
}

// UpdateContext is Update with a context passed to lifecycle hooks.
func (s *System) UpdateContext(ctx context.Context, world donburi.World, dt float32) {
	s.query.Each(world, func(e *donburi.Entry) {
		data := Animator.Get(e)
		if data.Animator == nil || data.Paused {
			return
		}
		data.Animator.UpdateContext(ctx, dt*data.Speed)
	})
	ProcessEvents(world)
}

// Count returns the number of animated entities.
func (s *System) Count(world donburi.World) int {
	return s.query.Count(world)
}
