package scheduler_test

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/observability"
	"github.com/aretw0/animgraph/pkg/scheduler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_TicksEveryAnimator(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	var transitions atomic.Int32
	hooks := domain.LifecycleHooks{
		OnTransition: func(context.Context, *domain.TransitionEvent) { transitions.Add(1) },
	}

	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	s := scheduler.New(scheduler.WithWorkers(4), scheduler.WithMetrics(metrics))

	const n = 32
	for i := range n {
		a, err := runtime.NewAnimator(ctrl, assets, runtime.WithLifecycleHooks(hooks))
		require.NoError(t, err)
		require.NoError(t, a.SetParameter("speed", 1))
		require.NoError(t, s.Add(fmt.Sprintf("p%d", i), a))
	}
	assert.Equal(t, n, s.Len())

	for range 3 {
		require.NoError(t, s.Tick(context.Background(), 0.1))
	}

	assert.Equal(t, int32(n), transitions.Load(), "each animator left Idle once")
	for _, id := range s.IDs() {
		a, ok := s.Get(id)
		require.True(t, ok)
		assert.InDelta(t, 0.3, a.Time(), 1e-5)
		assert.Equal(t, "Move", a.CurrentState(0))
	}

	count, err := testutil.GatherAndCount(reg, "animgraph_update_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestScheduler_AddRemove(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	a, err := runtime.NewAnimator(ctrl, assets)
	require.NoError(t, err)

	s := scheduler.New(scheduler.WithWorkers(1))
	require.NoError(t, s.Add("p1", a))
	assert.ErrorIs(t, s.Add("p1", a), scheduler.ErrDuplicate)

	assert.True(t, s.Remove("p1"))
	assert.False(t, s.Remove("p1"))
	require.NoError(t, s.Tick(context.Background(), 0.1))
	assert.Equal(t, float64(0), a.Time(), "removed animators are not ticked")
}

func TestScheduler_CancelledContext(t *testing.T) {
	s := scheduler.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, s.Tick(ctx, 0.1), context.Canceled)
	assert.ErrorIs(t, s.Run(ctx, time.Millisecond), context.Canceled)
}

func TestScheduler_Run(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	a, err := runtime.NewAnimator(ctrl, assets)
	require.NoError(t, err)

	s := scheduler.New(scheduler.WithWorkers(1))
	require.NoError(t, s.Add("p1", a))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx, 5*time.Millisecond), context.DeadlineExceeded)

	got, _ := s.Get("p1")
	assert.Greater(t, got.Time(), 0.0)
}
