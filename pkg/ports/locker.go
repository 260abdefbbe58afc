package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken by DistributedLocker.Lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes updates to one animator session across
// server replicas sharing a SnapshotStore.
type DistributedLocker interface {
	// Lock blocks until key is held or ctx is done. The lock expires after
	// ttl if the holder never unlocks it. The returned UnlockFunc must be
	// called once the session has been saved.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
