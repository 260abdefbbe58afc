package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/animgraph/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, unlock)
	assert.True(t, mr.Exists("test:lock:session-1"), "Lock key should be set in Redis")

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:session-1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, client := newClient(t)
	locker1 := redis.NewLocker(client, "test:")
	locker2 := redis.NewLocker(client, "test:")
	ctx := context.Background()
	key := "shared-session"

	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)

	ctxTimeout, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()

	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock1(ctx))

	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	require.NoError(t, err)
	defer func() { _ = unlock2(ctx) }()

	assert.True(t, mr.Exists("test:lock:shared-session"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "k", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	unlock2, err := locker.Lock(ctx, "k", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock1(ctx), "releasing an expired lock is a no-op")
	assert.True(t, mr.Exists("test:lock:k"), "new owner still holds the lock")

	require.NoError(t, unlock2(ctx))
	assert.False(t, mr.Exists("test:lock:k"))
}
