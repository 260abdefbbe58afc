package runtime

import (
	"context"
	"time"

	"github.com/aretw0/animgraph/pkg/domain"
)

func (a *Animator) eventBase(typ domain.EventType, l *domain.Layer) domain.EventBase {
	return domain.EventBase{
		Timestamp:  time.Now(),
		Type:       typ,
		Controller: a.ctrl.Name,
		Layer:      l.Name,
		Clock:      a.clock,
	}
}

func (a *Animator) emitTransition(ctx context.Context, l *domain.Layer, from, to string, duration float32, atomic bool) {
	if a.hooks.OnTransition == nil {
		return
	}
	a.hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: a.eventBase(domain.EventTransition, l),
		From:      from,
		To:        to,
		Duration:  duration,
		Atomic:    atomic,
	})
}

func (a *Animator) emitStateEnter(ctx context.Context, l *domain.Layer, s *domain.State) {
	if a.hooks.OnStateEnter == nil {
		return
	}
	a.hooks.OnStateEnter(ctx, &domain.StateEvent{
		EventBase: a.eventBase(domain.EventStateEnter, l),
		State:     s.Name,
	})
}

func (a *Animator) emitStateExit(ctx context.Context, l *domain.Layer, s *domain.State) {
	if a.hooks.OnStateExit == nil {
		return
	}
	a.hooks.OnStateExit(ctx, &domain.StateEvent{
		EventBase: a.eventBase(domain.EventStateExit, l),
		State:     s.Name,
	})
}

func (a *Animator) emitTimeEvent(ctx context.Context, l *domain.Layer, b *blender, e domain.TimeEvent) {
	a.logger.Debug("time event", "controller", a.ctrl.Name, "layer", l.Name, "state", b.state.Name, "event", e.Name)
	if a.hooks.OnTimeEvent == nil {
		return
	}
	a.hooks.OnTimeEvent(ctx, &domain.TimeEventFired{
		EventBase: a.eventBase(domain.EventTimeEvent, l),
		State:     b.state.Name,
		Name:      e.Name,
		Time:      e.Time,
		Weight:    b.weight,
	})
}
