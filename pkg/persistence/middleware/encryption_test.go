package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, middleware.KeySize)
	_, err := io.ReadFull(rand.Reader, k)
	require.NoError(t, err)
	return k
}

func snapshot() *domain.Snapshot {
	return &domain.Snapshot{
		Controller: "hero",
		Time:       1.5,
		Parameters: map[string]float32{"speed": 2},
		Layers: []domain.LayerSnapshot{{
			Name:     domain.BaseLayerName,
			Blenders: []domain.BlenderSnapshot{{State: "Move", Weight: 1, NormalizedTime: 0.25}},
		}},
	}
}

func seal(t *testing.T, cfg middleware.EncryptionConfig) (*memory.Store, middleware.Middleware) {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return memory.NewStore(), mw
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying, mw := seal(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	store := mw(underlying)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", snapshot()))

	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "hero", stored.Controller, "controller stays readable")
	assert.NotEmpty(t, stored.Sealed)
	assert.Empty(t, stored.Layers)
	assert.Empty(t, stored.Parameters)

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, snapshot(), loaded)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"s1"}, ids)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	oldKey, newKey := generateKey(t), generateKey(t)
	underlying, oldMW := seal(t, middleware.EncryptionConfig{ActiveKey: oldKey})
	ctx := context.Background()
	require.NoError(t, oldMW(underlying).Save(ctx, "s1", snapshot()))

	rotated, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	require.NoError(t, err)
	loaded, err := rotated(underlying).Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "Move", loaded.CurrentState(domain.BaseLayerName))

	other, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	require.NoError(t, err)
	_, err = other(underlying).Load(ctx, "s1")
	assert.Error(t, err, "unknown key")
}

func TestEncryptionMiddleware_RejectsPlainSnapshots(t *testing.T) {
	underlying, mw := seal(t, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", snapshot()))

	_, err := mw(underlying).Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_Keys(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short")})
	assert.Error(t, err)
	_, err = middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	})
	assert.Error(t, err)

	key := generateKey(t)
	parsed, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)
	_, err = middleware.ParseKey("not base64!")
	assert.Error(t, err)
	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.Error(t, err)
}

func TestChain_Order(t *testing.T) {
	key := generateKey(t)
	mw, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
	require.NoError(t, err)
	underlying := memory.NewStore()
	store := middleware.Chain(underlying, mw)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", snapshot()))
	stored, err := underlying.Load(ctx, "s1")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.Sealed)
}
