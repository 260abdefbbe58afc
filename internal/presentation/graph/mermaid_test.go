package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/animgraph/internal/presentation/graph"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	ctrl, _ := testutils.Hero(t)
	out := graph.GenerateMermaid(ctrl, nil)

	tests := []struct {
		name     string
		contains []string
	}{
		{
			name:     "Header",
			contains: []string{"stateDiagram-v2\n"},
		},
		{
			name: "One composite per layer",
			contains: []string{
				`state "Base Layer" as Base_Layer {`,
				`state "upper (override 1)" as upper {`,
			},
		},
		{
			name: "Default states are entered from start",
			contains: []string{
				"[*] --> Base_Layer__Idle",
				"[*] --> upper__Rest",
			},
		},
		{
			name: "State labels",
			contains: []string{
				"Base_Layer__Idle : Idle [idle]",
				"Base_Layer__Move : Move [blend1D locomotion] @footstep=0.5",
				"upper__Rest : Rest\n",
			},
		},
		{
			name: "Transition labels",
			contains: []string{
				"Base_Layer__Idle --> Base_Layer__Move : speed > 0.1 / 0.25s",
				"Base_Layer__Move --> Base_Layer__Idle : speed <= 0.1 / 0.25s",
				"upper__Rest --> upper__Wave : wave > 0.5 / 0s",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}

	assert.NotContains(t, out, "classDef", "no overlay without runtime state")
}

func TestGenerateMermaid_TransitionOptions(t *testing.T) {
	c := domain.NewController("opts")
	_, _ = c.CreateParameter("go", 0)
	l := c.BaseLayer()
	_, _ = l.CreateState("A")
	_, _ = l.CreateState("B")
	_, _ = l.CreateState("C")

	tr, err := l.CreateTransition("A", "B")
	assert.NoError(t, err)
	tr.HasExitTime = true
	tr.ExitTime = 0.75
	tr.FixedDuration = false
	tr.Duration = 0.5
	tr.Atomic = true

	_, err = l.CreateTransition("B", "C")
	assert.NoError(t, err)

	out := graph.GenerateMermaid(c, nil)
	assert.Contains(t, out, "Base_Layer__A --> Base_Layer__B : exit 0.75 / 50% atomic")
	assert.Contains(t, out, "Base_Layer__B --> Base_Layer__C : always / ")
	assert.NotContains(t, out, "[*]", "no default state")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	ctrl, _ := testutils.Hero(t)
	snap := &domain.Snapshot{
		Controller: "hero",
		Layers: []domain.LayerSnapshot{
			{Name: domain.BaseLayerName, Blenders: []domain.BlenderSnapshot{{State: "Move"}, {State: "Idle"}}},
			{Name: "upper", Blenders: []domain.BlenderSnapshot{{State: "Ghost"}}},
		},
	}

	out := graph.GenerateMermaid(ctrl, graph.OverlayFromSnapshot(snap))

	assert.Contains(t, out, "classDef current")
	assert.Contains(t, out, "class Base_Layer__Move current")
	assert.Contains(t, out, "class Base_Layer__Idle blending")
	assert.NotContains(t, out, "Ghost", "unknown states are not styled")
	assert.Less(t, strings.Index(out, "class Base_Layer__Idle blending"), strings.Index(out, "class Base_Layer__Move current"))
}
