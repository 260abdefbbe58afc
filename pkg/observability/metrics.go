package observability

import (
	"context"
	"time"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records animator activity as Prometheus collectors.
type Metrics struct {
	Transitions *prometheus.CounterVec
	StateEnters *prometheus.CounterVec
	TimeEvents  *prometheus.CounterVec
	Updates     prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animgraph_transitions_total",
				Help: "Total number of state transitions started",
			},
			[]string{"controller", "layer", "from", "to"},
		),
		StateEnters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animgraph_state_enters_total",
				Help: "Total number of times a state became current",
			},
			[]string{"controller", "layer", "state"},
		),
		TimeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "animgraph_time_events_total",
				Help: "Total number of time events fired",
			},
			[]string{"controller", "state", "event"},
		),
		Updates: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "animgraph_update_seconds",
				Help:    "Wall time spent advancing an animator",
				Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Transitions, m.StateEnters, m.TimeEvents, m.Updates)
	}
	return m
}

// Hooks returns lifecycle hooks feeding the counters.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(_ context.Context, e *domain.TransitionEvent) {
			m.Transitions.WithLabelValues(e.Controller, e.Layer, e.From, e.To).Inc()
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateEnters.WithLabelValues(e.Controller, e.Layer, e.State).Inc()
		},
		OnTimeEvent: func(_ context.Context, e *domain.TimeEventFired) {
			m.TimeEvents.WithLabelValues(e.Controller, e.State, e.Name).Inc()
		},
	}
}

// ObserveUpdate records the duration of one animator update.
func (m *Metrics) ObserveUpdate(d time.Duration) {
	m.Updates.Observe(d.Seconds())
}

// Time runs fn and records its duration.
func (m *Metrics) Time(fn func()) {
	start := time.Now()
	fn()
	m.ObserveUpdate(time.Since(start))
}
