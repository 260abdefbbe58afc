package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectMarkdown(t *testing.T) {
	ctrl, assets := testutils.Hero(t)
	md := tui.InspectMarkdown(ctrl, assets)

	for _, want := range []string{
		"# hero\n",
		"- **Skeleton**: `hero` (4 joints)",
		"| speed | 0 |",
		"## Layer: " + domain.BaseLayerName,
		"- **Mask**: root, spine, arm, leg",
		"| Idle *(default)* | `idle` | 2s | - |",
		"| Move | blend1D `locomotion` (2 children) | 1s | footstep@0.5 |",
		"| Idle | Move | speed GT 0.1 | 0.25s |",
		"## Layer: upper",
		"- **Blending**: override",
		"- **Mask**: spine, arm",
		"| Rest *(default)* | - | 0s | - |",
	} {
		assert.Contains(t, md, want)
	}
}

func TestInspectMarkdown_WithoutAssets(t *testing.T) {
	c := domain.NewController("bare")
	l := c.BaseLayer()
	_, _ = l.CreateState("A")
	s, _ := l.CreateState("B")
	l.SetStateClip(s, domain.InvalidClip("lost"))
	tr, _ := l.CreateTransition("A", "B")
	tr.FixedDuration = false
	tr.Duration = 0.5
	tr.Atomic = true

	md := tui.InspectMarkdown(c, nil)
	assert.Contains(t, md, "- **Skeleton**: none")
	assert.Contains(t, md, "| B | `lost` (missing) | - | - |")
	assert.Contains(t, md, "| A | B | always | 0.5× destination, atomic |")
	assert.NotContains(t, md, "## Parameters")
}

func TestPrint_PlainWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tui.Print(&buf, "# Title\n"))
	assert.Equal(t, "# Title\n", buf.String())
	assert.False(t, tui.IsTerminal(&buf))
}

func TestPrintBanner_NoColorWhenNotTerminal(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|___/")
	assert.NotContains(t, buf.String(), "\x1b[")
}
