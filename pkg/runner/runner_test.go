package runner_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const heroScenario = `
name: hero run
controller: hero
dt: 0.1
steps:
  - name: idle
    tick: 1
    expect:
      states: {Base Layer: Idle, upper: Rest}
  - name: start running
    set: {speed: 1}
    tick: 4
    expect:
      states: {Base Layer: Move}
      parameters: {speed: 1}
      events: [footstep]
  - name: wave
    set: {wave: 1}
    tick: 1
    expect:
      states: {upper: Wave}
  - name: forced
    transit: {state: Idle, duration: 0}
    expect:
      states: {Base Layer: Idle}
`

func parse(t *testing.T, src string) *runner.Scenario {
	t.Helper()
	sc, err := runner.ParseScenario([]byte(src))
	require.NoError(t, err)
	return sc
}

func TestRunner_Passes(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	var out bytes.Buffer
	r := runner.NewRunner(runner.WithHandler(runner.NewTextHandler(strings.NewReader(""), &out)))

	res, err := r.Run(context.Background(), ctrl, assets, parse(t, heroScenario))
	require.NoError(t, err)
	assert.True(t, res.Passed())
	assert.Equal(t, "hero run", res.Scenario)
	assert.Equal(t, 7, res.Frames)
	assert.InDelta(t, 0.6, res.Time, 1e-5)
	assert.Equal(t, "Idle", res.Snapshot.CurrentState(domain.BaseLayerName))

	text := out.String()
	assert.Contains(t, text, "[start running] t=0.200")
	assert.Contains(t, text, "transition Base Layer: Idle -> Move (0.25s)")
	assert.Contains(t, text, `event "footstep" in Move`)
	assert.Contains(t, text, "## hero run: PASS")
}

func TestRunner_ReportsFailures(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	var out bytes.Buffer
	r := runner.NewRunner(runner.WithHandler(runner.NewTextHandler(nil, &out)))

	sc := parse(t, `
controller: hero
steps:
  - tick: 2
    expect:
      states: {Base Layer: Move, legs: Idle}
      parameters: {speed: 2, jump: 1}
      events: [footstep]
`)
	res, err := r.Run(context.Background(), ctrl, assets, sc)
	require.ErrorIs(t, err, runner.ErrExpectationFailed)
	require.Len(t, res.Failures, 5)
	assert.Equal(t, `layer "Base Layer" is in "Idle", want "Move"`, res.Failures[0].Message)
	assert.Equal(t, `unknown layer "legs"`, res.Failures[1].Message)
	assert.Equal(t, `unknown parameter "jump"`, res.Failures[2].Message)
	assert.Equal(t, `parameter "speed" is 0, want 2`, res.Failures[3].Message)
	assert.Equal(t, `event "footstep" did not fire`, res.Failures[4].Message)
	assert.Equal(t, "#1", res.Failures[0].Name)

	assert.Contains(t, out.String(), "[System] FAIL step #1")
	assert.Contains(t, out.String(), ": FAIL")
}

func TestRunner_StepErrors(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	r := runner.NewRunner(runner.WithHandler(runner.NewJSONHandler(nil, &bytes.Buffer{})))

	_, err := r.Run(context.Background(), ctrl, assets, parse(t, "steps:\n  - set: {jump: 1}\n"))
	assert.ErrorIs(t, err, domain.ErrParameterNotFound)

	_, err = r.Run(context.Background(), ctrl, assets, parse(t, "steps:\n  - transit: {layer: upper, state: Dance}\n"))
	assert.ErrorIs(t, err, domain.ErrStateNotFound)

	_, err = r.Run(context.Background(), ctrl, assets, parse(t, "steps:\n  - transit: {layer: legs, state: Idle}\n"))
	assert.ErrorIs(t, err, domain.ErrLayerNotFound)
}

func TestRunner_Interceptor(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	var out bytes.Buffer
	h := runner.NewTextHandler(strings.NewReader("y\nn\n"), &out)
	r := runner.NewRunner(
		runner.WithHandler(h),
		runner.WithInterceptor(runner.ConfirmationMiddleware(h)),
	)

	res, err := r.Run(context.Background(), ctrl, assets, parse(t, heroScenario))
	require.ErrorIs(t, err, runner.ErrStopped)
	assert.Equal(t, 1, res.Frames, "only the first step ran")
	assert.Contains(t, out.String(), "Next step start running. Continue? [Y/n]")
}

func TestRunner_Breakpoint(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	var seen []string
	spy := func(_ context.Context, _ int, st runner.Step) (bool, error) {
		seen = append(seen, st.Name)
		return true, nil
	}
	r := runner.NewRunner(
		runner.WithHandler(runner.NewJSONHandler(nil, &bytes.Buffer{})),
		runner.WithInterceptor(runner.MultiInterceptor(
			runner.AutoApproveMiddleware(),
			runner.BreakpointMiddleware(spy, "wave"),
		)),
	)

	_, err := r.Run(context.Background(), ctrl, assets, parse(t, heroScenario))
	require.NoError(t, err)
	assert.Equal(t, []string{"wave"}, seen)
}

func TestRunner_ResumesFromStore(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	store := memory.NewStore()
	sc := parse(t, "dt: 0.1\nsteps:\n  - set: {speed: 1}\n    tick: 3\n")

	newRunner := func() *runner.Runner {
		return runner.NewRunner(
			runner.WithHandler(runner.NewJSONHandler(nil, &bytes.Buffer{})),
			runner.WithStore(store),
			runner.WithSessionID("s1"),
		)
	}

	res, err := newRunner().Run(context.Background(), ctrl, assets, sc)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.Time, 1e-5)

	res, err = newRunner().Run(context.Background(), ctrl, assets, sc)
	require.NoError(t, err)
	assert.InDelta(t, 0.6, res.Time, 1e-5)

	snap, err := store.Load(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Move", snap.CurrentState(domain.BaseLayerName))
}

func TestRunner_Cancelled(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := runner.NewRunner(runner.WithHandler(runner.NewJSONHandler(nil, &bytes.Buffer{})))
	res, err := r.Run(ctx, ctrl, assets, parse(t, heroScenario))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Frames)
}

func TestJSONHandler_Trace(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	var out bytes.Buffer
	r := runner.NewRunner(runner.WithHandler(runner.NewJSONHandler(nil, &out)))

	_, err := r.Run(context.Background(), ctrl, assets, parse(t, heroScenario))
	require.NoError(t, err)

	dec := json.NewDecoder(&out)
	var types []string
	var last map[string]any
	for dec.More() {
		var msg map[string]any
		require.NoError(t, dec.Decode(&msg))
		types = append(types, msg["type"].(string))
		last = msg
	}
	require.Len(t, types, 8)
	assert.Equal(t, "frame", types[0])
	assert.Equal(t, "result", types[7])
	result := last["result"].(map[string]any)
	assert.Equal(t, float64(7), result["frames"])
}

func TestJSONHandler_Input(t *testing.T) {
	h := runner.NewJSONHandler(strings.NewReader("\"yes\"\nplain text\n"), &bytes.Buffer{})

	v, err := h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yes", v)

	v, err = h.Input(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "plain text", v)
}
