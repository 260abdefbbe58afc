package compiler

import (
	"bytes"
	"errors"
	"testing"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAssets struct {
	clips []string
}

func (s stubAssets) LoadClip(guid string) (domain.ClipHandle, error) {
	for i, g := range s.clips {
		if g == guid {
			return domain.NewClipHandle(guid, i), nil
		}
	}
	return domain.ClipHandle{}, domain.ErrClipNotFound
}

func (s stubAssets) LoadSkeleton(guid string) (*domain.Skeleton, error) {
	if guid != "hero" {
		return nil, domain.ErrSkeletonNotFound
	}
	return &domain.Skeleton{GUID: "hero", Joints: []domain.Joint{
		{Name: "root", Parent: -1},
		{Name: "spine", Parent: 0},
		{Name: "head", Parent: 1},
		{Name: "arm", Parent: 1},
		{Name: "leg", Parent: 0},
	}}, nil
}

const heroSource = `
// locomotion controller
animController {
  skeleton "hero"
  parameter "speed" 0
  parameter "direction" 0
  parameter "wave" 0
  offset ( 0 0.5 0 )

  baseLayer {
    state "Idle" {
      position 10 20
      default
      animClip "idle"
    }
    state "Move" {
      blendTree "locomotion" blend1D {
        parameter "speed"
        animClip ( 0 ) "walk"
        blendTree 1 "run" blendAngle {
          parameter direction
          animClip ( 0 ) "run_fwd"
          animClip ( 90 ) "run_left"
        }
      }
      events {
        "footstep" 0.25
        footstep 0.75
      }
    }
    transition "Idle" "Move" {
      condition "speed" GT 0.1
      duration 0.5
    }
    transition "Move" "Idle" {
      condition speed LE 0.1
      hasExitTime
      exitTime 0.9
      fixedDuration false
      duration 0.2
      atomic
    }
  }

  animLayer "Upper" {
    blending additive
    weight 0.5
    mask ( *spine -leg -head )
    state "Wave" { animClip "wave" default }
    state "None" { }
    /* block
       comment */
    transition "None" "Wave" { condition "wave" EQ 1 startTime 0.1 }
  }
}
`

func parseHero(t *testing.T) *domain.Controller {
	t.Helper()
	assets := stubAssets{clips: []string{"idle", "walk", "run_fwd", "run_left", "wave"}}
	p := NewParser(WithClips(assets), WithSkeletons(assets))
	c, err := p.Parse("hero", []byte(heroSource))
	require.NoError(t, err)
	return c
}

func TestParse_Controller(t *testing.T) {
	c := parseHero(t)

	assert.Equal(t, "hero", c.Name)
	assert.Equal(t, "hero", c.SkeletonGUID)
	require.NotNil(t, c.Skeleton)
	assert.Equal(t, domain.Vec3{0, 0.5, 0}, c.RootOffset)
	assert.Equal(t, 3, c.NumParameters())
	require.Equal(t, 2, c.NumLayers())

	base := c.BaseLayer()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, base.MaskJoints)
	require.NotNil(t, base.DefaultState())
	assert.Equal(t, "Idle", base.DefaultState().Name)

	idle := base.FindState("Idle")
	assert.Equal(t, domain.Vec2{10, 20}, idle.Position)
	assert.True(t, idle.Clip.Valid())
	assert.Equal(t, "idle", idle.Clip.GUID)

	move := base.FindState("Move")
	require.True(t, move.HasTree())
	assert.Equal(t, []domain.TimeEvent{{Time: 0.25, Name: "footstep"}, {Time: 0.75, Name: "footstep"}}, move.Events)

	tree, err := base.BlendTree(move.Tree)
	require.NoError(t, err)
	assert.Equal(t, domain.Blend1D, tree.Type)
	assert.Equal(t, 0, tree.Parameters[0])
	require.Equal(t, 2, tree.NumChildren())
	assert.True(t, tree.Children()[1].IsNode())

	lw := base.LeafWeights(move.Tree, []float32{1, 45, 0}, nil)
	require.Len(t, lw, 2)
	assert.Equal(t, "run_fwd", lw[0].Clip.GUID)
	assert.InDelta(t, 0.5, lw[0].Weight, 1e-5)

	back := base.FindTransition("Move", "Idle")
	require.NotNil(t, back)
	assert.True(t, back.HasExitTime)
	assert.True(t, back.Atomic)
	assert.False(t, back.FixedDuration)
	assert.Equal(t, float32(0.9), back.ExitTime)
	assert.Equal(t, []domain.Condition{{Parameter: 0, Compare: domain.CompareLE, Value: 0.1}}, back.Conditions)

	fwd := base.FindTransition("Idle", "Move")
	require.NotNil(t, fwd)
	assert.True(t, fwd.FixedDuration, "fixed duration is the default")
	assert.Equal(t, float32(0.5), fwd.Duration)

	upper := c.FindLayer("Upper")
	require.NotNil(t, upper)
	assert.Equal(t, domain.BlendAdditive, upper.Blending)
	assert.Equal(t, float32(0.5), upper.Weight)
	assert.Equal(t, []int{1, 3}, upper.MaskJoints)
	assert.Equal(t, "Wave", upper.DefaultState().Name)
	tr := upper.FindTransition("None", "Wave")
	require.NotNil(t, tr)
	assert.Equal(t, float32(0.1), tr.StartTime)

	assert.Equal(t, 1, c.ClipRefs("idle"))
	assert.Len(t, c.Clips(), 5)
}

func TestParse_MissingClipsAreInvalidHandles(t *testing.T) {
	c, err := NewParser().Parse("x", []byte(`animController { baseLayer { state "A" { animClip "nope" default } } }`))
	require.NoError(t, err)
	s := c.BaseLayer().FindState("A")
	assert.False(t, s.Clip.Valid())
	assert.Equal(t, "nope", s.Clip.GUID)
}

func TestParse_IsTransactional(t *testing.T) {
	tests := []struct {
		name string
		src  string
		line int
	}{
		{
			name: "bad token inside a state",
			src: `animController {
  baseLayer {
    state "A" { animClip "a" }
    state "B" { bogus }
  }
}`,
			line: 4,
		},
		{
			name: "duplicate state",
			src: `animController {
  baseLayer {
    state "A" { }
    state "A" { }
  }
}`,
			line: 4,
		},
		{
			name: "transition to missing state",
			src: `animController {
  baseLayer {
    state "A" { }
    transition "A" "B" { }
  }
}`,
			line: 4,
		},
		{
			name: "unknown comparison",
			src: `animController {
  parameter "p" 0
  baseLayer {
    state "A" { }
    state "B" { }
    transition "A" "B" { condition "p" NE 1 }
  }
}`,
			line: 6,
		},
		{
			name: "unknown blend type",
			src: `animController {
  baseLayer {
    state "A" { blendTree "t" blend4D { } }
  }
}`,
			line: 3,
		},
		{
			name: "missing closing brace",
			src: `animController {
  baseLayer {
    state "A" {
`,
			line: 4,
		},
		{
			name: "duplicate parameter",
			src: `animController {
  parameter "p" 0
  parameter "p" 1
}`,
			line: 3,
		},
		{
			name: "blending in base layer",
			src: `animController {
  baseLayer { blending additive }
}`,
			line: 2,
		},
		{
			name: "trailing garbage",
			src:  "animController { }\nextra",
			line: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewParser().Parse("broken", []byte(tt.src))
			require.Error(t, err)
			assert.Nil(t, c, "no partial controller survives")

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "got %T", err)
			assert.Equal(t, tt.line, perr.Line)
		})
	}
}

func TestParse_DuplicateTransitionIsSkipped(t *testing.T) {
	src := `animController {
  baseLayer {
    state "A" { }
    state "B" { }
    transition "A" "B" { duration 1 }
    transition "A" "B" { duration 2 }
  }
}`
	c, err := NewParser().Parse("dup", []byte(src))
	require.NoError(t, err)
	trs := c.BaseLayer().Transitions()
	require.Len(t, trs, 1)
	assert.Equal(t, float32(1), trs[0].Duration)
}

func TestParse_UnknownSkeletonFails(t *testing.T) {
	assets := stubAssets{}
	_, err := NewParser(WithSkeletons(assets)).Parse("x", []byte(`animController { skeleton "ghost" }`))
	assert.ErrorIs(t, err, domain.ErrSkeletonNotFound)
}

func TestWrite_RoundTrip(t *testing.T) {
	c := parseHero(t)

	var first bytes.Buffer
	require.NoError(t, Write(&first, c))

	assets := stubAssets{clips: []string{"idle", "walk", "run_fwd", "run_left", "wave"}}
	again, err := NewParser(WithClips(assets), WithSkeletons(assets)).Parse("hero", first.Bytes())
	require.NoError(t, err, first.String())

	var second bytes.Buffer
	require.NoError(t, Write(&second, again))
	assert.Equal(t, first.String(), second.String())

	assert.Equal(t, c.BaseLayer().DefaultStateName(), again.BaseLayer().DefaultStateName())
	assert.Equal(t, c.FindLayer("Upper").MaskJoints, again.FindLayer("Upper").MaskJoints)
	assert.False(t, again.BaseLayer().FindTransition("Move", "Idle").FixedDuration)
	assert.Contains(t, first.String(), `mask ( *spine -leg -head )`)
	assert.Contains(t, first.String(), `animClip ( 90 ) "run_left"`)
}
