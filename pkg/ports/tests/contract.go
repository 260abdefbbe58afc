package tests

import (
	"context"
	"testing"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DefinitionLoaderContractTest is a reusable test suite that verifies if an adapter complies with ports.DefinitionLoader.
func DefinitionLoaderContractTest(t *testing.T, loader ports.DefinitionLoader, setupData map[string][]byte) {
	t.Helper()

	t.Run("GetDefinition_Success", func(t *testing.T) {
		for name, expected := range setupData {
			content, err := loader.GetDefinition(name)
			require.NoError(t, err, "getting definition %s", name)
			assert.Equal(t, string(expected), string(content), "content mismatch for %s", name)
		}
	})

	t.Run("GetDefinition_NotFound", func(t *testing.T) {
		_, err := loader.GetDefinition("non-existent-controller")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
	})

	t.Run("ListDefinitions", func(t *testing.T) {
		names, err := loader.ListDefinitions()
		require.NoError(t, err)
		assert.ElementsMatch(t, keys(setupData), names)
	})
}

// DefinitionStoreContractTest extends the loader contract with writes. The
// store must start empty.
func DefinitionStoreContractTest(t *testing.T, store ports.DefinitionStore) {
	t.Helper()
	ctx := context.Background()

	t.Run("SaveThenGet", func(t *testing.T) {
		require.NoError(t, store.SaveDefinition(ctx, "hero", []byte("animController {}")))
		data, err := store.GetDefinition("hero")
		require.NoError(t, err)
		assert.Equal(t, "animController {}", string(data))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.SaveDefinition(ctx, "hero", []byte("v2")))
		data, err := store.GetDefinition("hero")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(data))

		names, err := store.ListDefinitions()
		require.NoError(t, err)
		assert.Equal(t, []string{"hero"}, names)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.DeleteDefinition(ctx, "hero"))
		_, err := store.GetDefinition("hero")
		assert.ErrorIs(t, err, domain.ErrDefinitionNotFound)
		assert.NoError(t, store.DeleteDefinition(ctx, "hero"), "deleting a missing definition is not an error")
	})
}

func keys(m map[string][]byte) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
