package loam

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/animgraph/internal/compiler"
	"github.com/aretw0/animgraph/internal/testutils"
	"github.com/aretw0/animgraph/pkg/domain"
	contract "github.com/aretw0/animgraph/pkg/ports/tests"
	"github.com/aretw0/loam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDocs(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for filename, content := range files {
		p := filepath.Join(dir, filename)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func TestLoader_Contract(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))

	writeDocs(t, tmpDir, map[string]string{
		"hero.md": "---\nid: hero\ndescription: player character\n---\n" +
			"# Hero\n\nLocomotion for the player.\n\n```anim\nanimController { }\n```\n",
		"npc.md": "---\nid: npc\n---\nanimController { baseLayer { } }\n",
	})

	loader := New(loam.NewTypedRepository[ControllerMetadata](repo))

	contract.DefinitionLoaderContractTest(t, loader, map[string][]byte{
		"hero": []byte("animController { }"),
		"npc":  []byte("animController { baseLayer { } }"),
	})
}

func TestLoader_ListDefinitions_NormalizesIDs(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))

	writeDocs(t, tmpDir, map[string]string{
		"hero.md":           "---\nid: hero.md\n---\nanimController { }",
		"implicit.md":       "---\ndescription: id from filename\n---\nanimController { }",
		"enemies/goblin.md": "---\ndescription: nested\n---\nanimController { }",
	})

	loader := New(loam.NewTypedRepository[ControllerMetadata](repo))

	ids, err := loader.ListDefinitions()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"hero", "implicit", "enemies/goblin"}, ids)
}

func TestLoader_ListDefinitions_DetectsCollisions(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))

	writeDocs(t, tmpDir, map[string]string{
		"foo.md": "---\nid: foo\n---\nanimController { }",
		"bar.md": "---\nid: foo\n---\nanimController { }",
	})

	loader := New(loam.NewTypedRepository[ControllerMetadata](repo))

	_, err := loader.ListDefinitions()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestLoader_GetDefinition_ByFrontmatterID(t *testing.T) {
	tmpDir, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))

	writeDocs(t, tmpDir, map[string]string{
		"characters/player.md": "---\nid: hero\nskeleton: hero\ntags: [player]\n---\n```anim\nanimController { }\n```",
	})

	loader := New(loam.NewTypedRepository[ControllerMetadata](repo))

	data, err := loader.GetDefinition("hero")
	require.NoError(t, err)
	assert.Equal(t, "animController { }", string(data))

	meta, err := loader.Describe("characters/player")
	require.NoError(t, err)
	assert.Equal(t, "hero", meta.Skeleton)
	assert.Equal(t, []string{"player"}, meta.Tags)

	_, err = loader.Describe("missing")
	assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
}

func TestLoader_SaveDefinition_Compiles(t *testing.T) {
	_, repo := testutils.SetupTestRepo(t, loam.WithVersioning(false))
	loader := New(loam.NewTypedRepository[ControllerMetadata](repo))

	src := "animController {\n  parameter \"speed\" 0\n  baseLayer {\n    state \"Idle\" {\n      default\n    }\n  }\n}\n"
	require.NoError(t, loader.SaveDefinition(context.Background(), "walker", []byte(src)))

	data, err := loader.GetDefinition("walker")
	require.NoError(t, err)

	ctrl, err := compiler.NewParser().Parse("walker", data)
	require.NoError(t, err)
	assert.Equal(t, 1, ctrl.NumParameters())
	assert.NotNil(t, ctrl.BaseLayer().DefaultState())
}

func TestExtractDefinition(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bare", "  animController { }\n", "animController { }"},
		{"fenced", "intro\n```anim\nA\n```\noutro", "A"},
		{"first fence wins", "```anim\nA\n```\n```anim\nB\n```", "A"},
		{"unterminated", "```anim\nA\n", "A"},
		{"other fences are prose", "```go\nx := 1\n```\n", "```go\nx := 1\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(extractDefinition(tt.content)))
		})
	}
}
