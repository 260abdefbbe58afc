package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractSnapshot(controller string) *domain.Snapshot {
	return &domain.Snapshot{
		Controller: controller,
		Time:       1.5,
		Parameters: map[string]float32{"speed": 0.75},
		Layers: []domain.LayerSnapshot{{
			Name: domain.BaseLayerName,
			Blenders: []domain.BlenderSnapshot{
				{State: "Run", Weight: 0.25, NormalizedTime: 0.1, Blending: true},
				{State: "Idle", Weight: 0.75, NormalizedTime: 0.6},
			},
		}},
	}
}

// RunSnapshotStoreContract runs a suite of tests to verify that a SnapshotStore implementation
// adheres to the defined interface contract.
func RunSnapshotStoreContract(t *testing.T, store SnapshotStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		snap := contractSnapshot("hero")

		err := store.Save(ctx, sessionID, snap)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, snap, loaded)
		assert.Equal(t, "Run", loaded.CurrentState(domain.BaseLayerName))
	})

	t.Run("Load Is A Copy", func(t *testing.T) {
		snap := contractSnapshot("hero")
		require.NoError(t, store.Save(ctx, sessionID, snap))

		snap.Parameters["speed"] = 9
		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, float32(0.75), loaded.Parameters["speed"])
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, contractSnapshot("hero"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, contractSnapshot("hero"))
		_ = store.Save(ctx, id2, contractSnapshot("npc"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
