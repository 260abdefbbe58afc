package registry_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCompiler struct {
	mu    sync.Mutex
	calls map[string]int
}

func (c *countingCompiler) compile(name string) (*domain.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.calls == nil {
		c.calls = make(map[string]int)
	}
	c.calls[name]++
	if name == "broken" {
		return nil, errors.New("syntax error")
	}
	return domain.NewController(name), nil
}

func TestRegistry_AcquireRelease(t *testing.T) {
	cc := &countingCompiler{}
	r := registry.NewRegistry(cc.compile)

	a, err := r.Acquire("hero")
	require.NoError(t, err)
	b, err := r.Acquire("hero")
	require.NoError(t, err)

	assert.Same(t, a, b, "controllers are shared")
	assert.Equal(t, 1, cc.calls["hero"], "compiled once")
	assert.Equal(t, 2, r.Refs("hero"))

	r.Release("hero")
	r.Release("hero")
	assert.Equal(t, 0, r.Refs("hero"))
	assert.Equal(t, []string{"hero"}, r.Names(), "released controllers stay cached")

	assert.Equal(t, []string{"hero"}, r.Purge())
	assert.Empty(t, r.Names())

	_, err = r.Acquire("hero")
	require.NoError(t, err)
	assert.Equal(t, 2, cc.calls["hero"])
}

func TestRegistry_ReleaseNow(t *testing.T) {
	r := registry.NewRegistry((&countingCompiler{}).compile)

	_, _ = r.Acquire("hero")
	_, _ = r.Acquire("hero")
	r.ReleaseNow("hero")
	assert.Equal(t, []string{"hero"}, r.Names())
	r.ReleaseNow("hero")
	assert.Empty(t, r.Names())

	r.Release("unknown")
}

func TestRegistry_DefaultFallback(t *testing.T) {
	r := registry.NewRegistry((&countingCompiler{}).compile)

	ctrl, err := r.Acquire("broken")
	assert.Error(t, err)
	assert.Same(t, r.Default(), ctrl)
	assert.Equal(t, registry.DefaultName, ctrl.Name)
	assert.NotNil(t, ctrl.BaseLayer())
	assert.Empty(t, r.Names(), "failed compiles are not cached")

	def, err := r.Acquire(registry.DefaultName)
	require.NoError(t, err)
	assert.Same(t, r.Default(), def)

	r.ReleaseNow(registry.DefaultName)
	got, ok := r.Lookup(registry.DefaultName)
	assert.True(t, ok)
	assert.Same(t, def, got, "the default controller is permanent")
}

func TestRegistry_Invalidate(t *testing.T) {
	cc := &countingCompiler{}
	r := registry.NewRegistry(cc.compile)

	old, _ := r.Acquire("hero")
	r.Invalidate("hero")

	fresh, err := r.Acquire("hero")
	require.NoError(t, err)
	assert.NotSame(t, old, fresh)
	assert.Equal(t, 2, cc.calls["hero"])
}

func TestRegistry_Rename(t *testing.T) {
	r := registry.NewRegistry((&countingCompiler{}).compile)
	ctrl, _ := r.Acquire("hero")
	_, _ = r.Acquire("npc")

	require.NoError(t, r.Rename("hero", "player"))
	assert.Equal(t, "player", ctrl.Name)
	got, ok := r.Lookup("player")
	assert.True(t, ok)
	assert.Same(t, ctrl, got)

	assert.ErrorIs(t, r.Rename("ghost", "x"), domain.ErrDefinitionNotFound)
	assert.Error(t, r.Rename("player", "npc"))
}

func TestRegistry_ConcurrentAcquire(t *testing.T) {
	cc := &countingCompiler{}
	r := registry.NewRegistry(cc.compile)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Acquire("hero")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, cc.calls["hero"])
	assert.Equal(t, 50, r.Refs("hero"))
}
