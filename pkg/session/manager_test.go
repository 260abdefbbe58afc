package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/aretw0/animgraph/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctrl     *domain.Controller
	assets   *memory.Library
	built    atomic.Int32
	released atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	ctrl, assets := testutils.Hero(t)
	return &fixture{ctrl: ctrl, assets: assets}
}

func (f *fixture) factory(controller string) (*runtime.Animator, func(), error) {
	if controller != f.ctrl.Name {
		return nil, nil, domain.ErrDefinitionNotFound
	}
	a, err := runtime.NewAnimator(f.ctrl, f.assets)
	if err != nil {
		return nil, nil, err
	}
	f.built.Add(1)
	return a, func() { f.released.Add(1) }, nil
}

func TestManager_CreateUpdateGet(t *testing.T) {
	f := newFixture(t)
	mgr := session.NewManager(memory.NewStore(), f.factory)
	ctx := context.Background()

	snap, err := mgr.Create(ctx, "p1", "hero")
	require.NoError(t, err)
	assert.Equal(t, "hero", snap.Controller)
	assert.Equal(t, "Idle", snap.CurrentState(domain.BaseLayerName))

	_, err = mgr.Create(ctx, "p1", "hero")
	assert.ErrorIs(t, err, session.ErrSessionExists)

	snap, err = mgr.Update(ctx, "p1", func(s *session.Session) error {
		assert.Equal(t, "hero", s.Controller())
		if err := s.Animator.SetParameter("speed", 1); err != nil {
			return err
		}
		s.Animator.Update(0.1)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Move", snap.CurrentState(domain.BaseLayerName))

	stored, err := mgr.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, snap, stored)
	assert.Equal(t, float32(1), stored.Parameters["speed"])

	ids, err := mgr.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids)

	assert.Equal(t, int32(1), f.built.Load(), "the cached animator is reused")
}

func TestManager_UpdateErrorIsNotPersisted(t *testing.T) {
	f := newFixture(t)
	mgr := session.NewManager(memory.NewStore(), f.factory)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "p1", "hero")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = mgr.Update(ctx, "p1", func(s *session.Session) error {
		_ = s.Animator.SetParameter("speed", 1)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	snap, err := mgr.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, float32(0), snap.Parameters["speed"])
}

func TestManager_RebuildsFromStore(t *testing.T) {
	f := newFixture(t)
	store := memory.NewStore()
	ctx := context.Background()

	first := session.NewManager(store, f.factory)
	_, err := first.Create(ctx, "p1", "hero")
	require.NoError(t, err)
	_, err = first.Update(ctx, "p1", func(s *session.Session) error {
		_ = s.Animator.SetParameter("speed", 1)
		s.Animator.Update(0.1)
		return nil
	})
	require.NoError(t, err)

	// A second replica sharing the store resumes the session.
	second := session.NewManager(store, f.factory)
	snap, err := second.Update(ctx, "p1", func(s *session.Session) error {
		v, _ := s.Animator.Parameter("speed")
		assert.Equal(t, float32(1), v)
		assert.Equal(t, "Move", s.Animator.CurrentState(0))
		return nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.1, snap.Time, 1e-6)
	assert.Equal(t, int32(2), f.built.Load())
}

func TestManager_DeleteAndEvict(t *testing.T) {
	f := newFixture(t)
	mgr := session.NewManager(memory.NewStore(), f.factory)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "a", "hero")
	require.NoError(t, err)
	_, err = mgr.Create(ctx, "b", "hero")
	require.NoError(t, err)

	require.NoError(t, mgr.Delete(ctx, "a"))
	assert.Equal(t, int32(1), f.released.Load())
	_, err = mgr.Get(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	_, err = mgr.Update(ctx, "a", func(*session.Session) error { return nil })
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.Equal(t, 1, mgr.Evict("hero"))
	assert.Equal(t, int32(2), f.released.Load())

	_, err = mgr.Update(ctx, "b", func(*session.Session) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, int32(3), f.built.Load(), "evicted sessions are rebuilt on demand")
}

func TestManager_CreateUnknownController(t *testing.T) {
	f := newFixture(t)
	mgr := session.NewManager(memory.NewStore(), f.factory)

	_, err := mgr.Create(context.Background(), "x", "ghost")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)

	ids, err := mgr.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestManager_SerializesUpdates(t *testing.T) {
	f := newFixture(t)
	mgr := session.NewManager(memory.NewStore(), f.factory)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "p1", "hero")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := mgr.Update(ctx, "p1", func(s *session.Session) error {
				s.Animator.Update(0.5)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := mgr.Get(ctx, "p1")
	require.NoError(t, err)
	assert.InDelta(t, 10, snap.Time, 1e-6, "no update is lost")
}

type recordingLocker struct {
	mu    sync.Mutex
	keys  []string
	held  int
	fails bool
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	if l.fails {
		return nil, errors.New("unavailable")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys = append(l.keys, key)
	l.held++
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.held--
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	f := newFixture(t)
	locker := &recordingLocker{}
	mgr := session.NewManager(memory.NewStore(), f.factory,
		session.WithLocker(locker),
		session.WithLockTTL(time.Second),
	)
	ctx := context.Background()

	_, err := mgr.Create(ctx, "p1", "hero")
	require.NoError(t, err)
	_, err = mgr.Get(ctx, "p1")
	require.NoError(t, err)

	assert.Equal(t, []string{"p1", "p1"}, locker.keys)
	assert.Zero(t, locker.held)

	locker.fails = true
	_, err = mgr.Get(ctx, "p1")
	assert.Error(t, err)
}

const exitSource = `animController {
  skeleton "hero"
  baseLayer {
    state "Idle" {
      animClip "walk"
      default
    }
    state "Done" {
      animClip "idle"
    }
    transition "Idle" "Done" {
      hasExitTime
      exitTime 0.5
      duration 0
    }
  }
}`

func TestManager_ExitTimeSurvivesStepping(t *testing.T) {
	assets := testutils.Assets(t)
	ctrl := testutils.Compile(t, assets, "exit", exitSource)
	factory := func(string) (*runtime.Animator, func(), error) {
		a, err := runtime.NewAnimator(ctrl, assets)
		return a, func() {}, err
	}
	step := func(s *session.Session) error {
		s.Animator.Update(0.15)
		return nil
	}
	ctx := context.Background()

	t.Run("cached animator", func(t *testing.T) {
		mgr := session.NewManager(memory.NewStore(), factory)
		_, err := mgr.Create(ctx, "p1", "exit")
		require.NoError(t, err)

		var snap *domain.Snapshot
		for i := 0; i < 20; i++ {
			snap, err = mgr.Update(ctx, "p1", step)
			require.NoError(t, err)
		}
		assert.Equal(t, "Done", snap.CurrentState(domain.BaseLayerName))
		assert.Equal(t, uint64(21), snap.Revision)
	})

	t.Run("restored every step", func(t *testing.T) {
		store := memory.NewStore()
		replicas := []*session.Manager{
			session.NewManager(store, factory),
			session.NewManager(store, factory),
		}
		_, err := replicas[0].Create(ctx, "p1", "exit")
		require.NoError(t, err)

		snap, err := replicas[1].Update(ctx, "p1", step)
		require.NoError(t, err)
		top := snap.Layers[0].Blenders[0]
		assert.True(t, top.ExitPending)
		assert.InDelta(t, 0.5, top.ExitTime, 1e-6)

		for i := 0; i < 19; i++ {
			snap, err = replicas[i%2].Update(ctx, "p1", step)
			require.NoError(t, err)
		}
		assert.Equal(t, "Done", snap.CurrentState(domain.BaseLayerName))
	})
}
