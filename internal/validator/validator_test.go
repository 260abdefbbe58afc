package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/animgraph/internal/compiler"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(issues []Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.String()
	}
	return out
}

func TestValidateController_Hero(t *testing.T) {
	ctrl, _ := testutils.Hero(t)

	r := ValidateController(ctrl)
	assert.Empty(t, r.Issues, messages(r.Issues))
	assert.NoError(t, r.Err())
}

func TestValidateController_Findings(t *testing.T) {
	assets := testutils.Assets(t)
	ctrl := testutils.Compile(t, assets, "broken", `animController {
  skeleton "hero"
  parameter "speed" 0

  baseLayer {
    state "Idle" {
      animClip "idle"
      events {
        "late" 1.5
      }
    }
    state "Lost" {
      animClip "nowhere"
    }
    state "Blend" {
      blendTree "empty" blend1D {
      }
    }
    transition "Idle" "Idle" {
      hasExitTime
      exitTime 0.9
    }
    transition "Idle" "Blend" {
    }
  }

  animLayer "ghost" {
    mask ( -root )
    state "A" {
      default
    }
  }

  animLayer "void" {
  }
}`)

	r := ValidateController(ctrl)
	got := strings.Join(messages(r.Issues), "\n")

	assert.Contains(t, got, `warning: layer "Base Layer": no default state, "Idle" is used`)
	assert.Contains(t, got, `event "late" at 1.5 is outside [0, 1]`)
	assert.Contains(t, got, `error: layer "Base Layer" state "Lost": clip "nowhere" not found`)
	assert.Contains(t, got, `warning: layer "Base Layer" state "Lost": state is unreachable from "Idle"`)
	assert.Contains(t, got, `blend tree "empty" has no children`)
	assert.Contains(t, got, `blend tree "empty" has no parameter bound to dimension 1`)
	assert.Contains(t, got, "transition loops back to itself")
	assert.Contains(t, got, `transition to "Blend" has no condition and no exit time`)
	assert.Contains(t, got, `warning: layer "ghost": mask "-root" selects no joints`)
	assert.Contains(t, got, `warning: layer "void": layer has no states`)

	err := r.Err()
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Issues, len(r.Errors()))
	assert.Contains(t, err.Error(), "broken: ")
}

func TestValidateController_UnresolvedSkeleton(t *testing.T) {
	ctrl, err := compiler.NewParser().Parse("bare", []byte(`animController {
  skeleton "hero"
  baseLayer {
    state "Idle" {
      default
    }
  }
}`))
	require.NoError(t, err)

	r := ValidateController(ctrl)
	require.Len(t, r.Issues, 1)
	assert.Equal(t, Warning, r.Issues[0].Severity)
	assert.NoError(t, r.Err(), "warnings alone pass")
}

func TestValidateAll(t *testing.T) {
	assets := testutils.Assets(t)
	loader := memory.NewLoader(map[string]string{
		"hero":   testutils.HeroSource,
		"syntax": `animController { baseLayer { state } }`,
	})
	compile := func(name string, src []byte) (*domain.Controller, error) {
		return compiler.NewParser(compiler.WithClips(assets), compiler.WithSkeletons(assets)).Parse(name, src)
	}

	reports, err := ValidateAll(loader, compile)
	require.Error(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, "hero", reports[0].Controller)
	assert.Empty(t, reports[0].Issues)

	assert.Equal(t, "syntax", reports[1].Controller)
	require.Len(t, reports[1].Issues, 1)
	assert.Equal(t, Error, reports[1].Issues[0].Severity)
	assert.Contains(t, err.Error(), "syntax")
}
