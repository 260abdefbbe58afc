package animgraph_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hero.anim"), []byte(testutils.HeroSource), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets.yaml"), []byte(testutils.AssetsYAML), 0o644))
	return dir
}

func TestEngine_Project(t *testing.T) {
	dir := project(t)
	eng, err := animgraph.New(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(dir), eng.Name)
	require.NotNil(t, eng.Assets())

	names, err := eng.ListControllers()
	require.NoError(t, err)
	assert.Equal(t, []string{"hero"}, names)

	c1, err := eng.Controller("hero")
	require.NoError(t, err)
	c2, err := eng.Controller("hero")
	require.NoError(t, err)
	assert.Same(t, c1, c2, "controllers are shared")
	assert.Equal(t, 2, eng.Registry().Refs("hero"))
	eng.Release("hero")
	eng.Release("hero")
	assert.Equal(t, 0, eng.Registry().Refs("hero"))

	eng.Invalidate("hero")
	c3, err := eng.Controller("hero")
	require.NoError(t, err)
	assert.NotSame(t, c1, c3, "invalidated controllers are recompiled")
	eng.Release("hero")

	_, err = eng.Controller("missing")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
}

func TestEngine_NewAnimator(t *testing.T) {
	var entered []string
	eng, err := animgraph.New(project(t), animgraph.WithLifecycleHooks(domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			entered = append(entered, e.Layer+"/"+e.State)
		},
	}))
	require.NoError(t, err)

	a, release, err := eng.NewAnimator("hero")
	require.NoError(t, err)
	assert.Equal(t, 1, eng.Registry().Refs("hero"))

	require.NoError(t, a.SetParameter("speed", 1))
	a.Update(0.1)
	assert.Equal(t, "Move", a.CurrentState(0))
	assert.Equal(t, []string{"Base Layer/Idle", "upper/Rest", "Base Layer/Move"}, entered)

	release()
	assert.Equal(t, 0, eng.Registry().Refs("hero"))
}

func TestEngine_Tools(t *testing.T) {
	eng, err := animgraph.New(project(t))
	require.NoError(t, err)

	report, err := eng.Validate("hero")
	require.NoError(t, err)
	assert.Empty(t, report.Issues)

	reports, err := eng.ValidateAll()
	require.NoError(t, err)
	require.Len(t, reports, 1)

	var buf bytes.Buffer
	require.NoError(t, eng.Format("hero", &buf))
	assert.Contains(t, buf.String(), `blendTree "locomotion" blend1D {`)

	md, err := eng.Inspect("hero")
	require.NoError(t, err)
	assert.Contains(t, md, "Idle")
}

func TestEngine_CustomLoader(t *testing.T) {
	_, err := animgraph.New("")
	assert.Error(t, err, "a loader or a directory is required")

	eng, err := animgraph.New("", animgraph.WithLoader(memory.NewLoader(map[string]string{
		"hero": testutils.HeroSource,
	})), animgraph.WithAssets(testutils.Assets(t)))
	require.NoError(t, err)

	ctrl, err := eng.Controller("hero")
	require.NoError(t, err)
	assert.Equal(t, 2, ctrl.NumLayers())
	eng.Release("hero")

	_, err = eng.Watch(context.Background())
	assert.ErrorIs(t, err, animgraph.ErrNotWatchable)
}

func TestEngine_Watch(t *testing.T) {
	dir := project(t)
	eng, err := animgraph.New(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := eng.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hero.anim"), []byte(testutils.HeroSource+"\n"), 0o644))

	select {
	case name := <-changes:
		assert.Equal(t, "hero", name)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}
