package testutils

import (
	"path/filepath"
	"testing"

	"github.com/aretw0/animgraph/internal/compiler"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// AssetsYAML describes the "hero" skeleton and the clips HeroSource uses.
// Every clip moves the root along x so poses are easy to assert on: idle
// stays at 0, walk reaches 1 and run reaches 2 at the end of the clip.
const AssetsYAML = `
skeletons:
  - guid: hero
    joints:
      - name: root
        parent: -1
      - name: spine
        parent: 0
      - name: arm
        parent: 1
      - name: leg
        parent: 0
clips:
  - guid: idle
    skeleton: hero
    length: 2
    tracks:
      - joint: root
        keys:
          - time: 0
            translation: [0, 0, 0]
  - guid: walk
    skeleton: hero
    length: 1
    tracks:
      - joint: root
        keys:
          - time: 0
            translation: [1, 0, 0]
  - guid: run
    skeleton: hero
    length: 0.5
    tracks:
      - joint: root
        keys:
          - time: 0
            translation: [2, 0, 0]
  - guid: wave
    skeleton: hero
    length: 1
    tracks:
      - joint: arm
        keys:
          - time: 0
            translation: [0, 0, 0]
          - time: 1
            translation: [0, 1, 0]
`

// HeroSource is a two layer controller over AssetsYAML.
const HeroSource = `animController {
  skeleton "hero"
  parameter "speed" 0
  parameter "wave" 0

  baseLayer {
    state "Idle" {
      animClip "idle"
      default
    }
    state "Move" {
      blendTree "locomotion" blend1D {
        parameter "speed"
        animClip 0 "walk"
        animClip 1 "run"
      }
      events {
        "footstep" 0.5
      }
    }
    transition "Idle" "Move" {
      condition "speed" GT 0.1
      duration 0.25
    }
    transition "Move" "Idle" {
      condition "speed" LE 0.1
      duration 0.25
    }
  }

  animLayer "upper" {
    blending override
    mask ( *spine )
    state "Rest" {
      default
    }
    state "Wave" {
      animClip "wave"
    }
    transition "Rest" "Wave" {
      condition "wave" GT 0.5
      duration 0
    }
    transition "Wave" "Rest" {
      condition "wave" LE 0.5
      duration 0
    }
  }
}
`

// Assets returns a fresh library loaded from AssetsYAML.
func Assets(t testing.TB) *memory.Library {
	t.Helper()
	lib, err := memory.LoadLibraryYAML([]byte(AssetsYAML))
	require.NoError(t, err)
	return lib
}

// Compile parses src against assets.
func Compile(t testing.TB, assets *memory.Library, name, src string) *domain.Controller {
	t.Helper()
	ctrl, err := compiler.NewParser(
		compiler.WithClips(assets),
		compiler.WithSkeletons(assets),
	).Parse(name, []byte(src))
	require.NoError(t, err)
	return ctrl
}

// Hero compiles HeroSource under the name "hero" with a fresh library.
func Hero(t testing.TB) (*domain.Controller, *memory.Library) {
	t.Helper()
	assets := Assets(t)
	return Compile(t, assets, "hero", HeroSource), assets
}

// SetupTestRepo creates a temporary directory and initializes a Loam repository in it.
// It returns the absolute path to the temp dir and the initialized repository.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}
