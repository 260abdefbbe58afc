package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsAnimatorActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)

	ctrl, assets := testutils.Hero(t)
	anim, err := runtime.NewAnimator(ctrl, assets, runtime.WithLifecycleHooks(m.Hooks()))
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateEnters.WithLabelValues("hero", domain.BaseLayerName, "Idle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StateEnters.WithLabelValues("hero", "upper", "Rest")))

	require.NoError(t, anim.SetParameter("speed", 1))
	for range 4 {
		m.Time(func() { anim.Update(0.1) })
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("hero", domain.BaseLayerName, "Idle", "Move")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TimeEvents.WithLabelValues("hero", "Move", "footstep")))

	n, err := testutil.GatherAndCount(reg, "animgraph_update_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMetrics_NilRegisterer(t *testing.T) {
	m := observability.NewMetrics(nil)
	m.ObserveUpdate(time.Millisecond)

	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { reg.MustRegister(m.Updates) }, "collectors stay unregistered")
}

func TestStream_FanOut(t *testing.T) {
	s := observability.NewStream(16)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := s.Subscribe(ctx)
	b := s.Subscribe(ctx)
	assert.Equal(t, 2, s.Subscribers())

	hooks := s.Hooks()
	hooks.OnTransition(ctx, &domain.TransitionEvent{
		EventBase: domain.EventBase{Type: domain.EventTransition},
		From:      "Idle",
		To:        "Move",
	})

	for _, ch := range []<-chan observability.Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, domain.EventTransition, e.Type)
			require.NotNil(t, e.Transition)
			assert.Equal(t, "Move", e.Transition.To)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestStream_DropsWhenFull(t *testing.T) {
	s := observability.NewStream(1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := s.Subscribe(ctx)

	s.Publish(observability.Event{Type: domain.EventStateEnter})
	s.Publish(observability.Event{Type: domain.EventStateExit})

	assert.Equal(t, 1, s.Dropped())
	assert.Equal(t, domain.EventStateEnter, (<-ch).Type)
}

func TestStream_UnsubscribeOnCancel(t *testing.T) {
	s := observability.NewStream(4)
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}
	assert.Equal(t, 0, s.Subscribers())
}
