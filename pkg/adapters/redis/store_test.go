package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/animgraph/pkg/adapters/redis"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSnapshotStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	now := time.Unix(1_700_000_000, 0)
	store := redis.NewFromClient(client,
		redis.WithTTL(time.Second),
		redis.WithClock(func() time.Time { return now }),
	)
	ctx := context.Background()
	sessionID := "session-ttl"

	require.NoError(t, store.Save(ctx, sessionID, &domain.Snapshot{Controller: "hero"}))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Key expiration.
	mr.FastForward(2 * time.Second)
	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned lazily once the clock passes the expiry score.
	now = now.Add(2 * time.Second)
	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	require.NoError(t, store.Save(ctx, sessionID, &domain.Snapshot{Controller: "hero"}))

	assert.True(t, mr.Exists("custom:app:my-session"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"session:bad", "{"))

	_, err := redis.NewFromClient(client).Load(context.Background(), "bad")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSessionNotFound)
}
