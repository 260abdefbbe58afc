package ports

import (
	"context"

	"github.com/aretw0/animgraph/pkg/domain"
)

// SnapshotStore defines the interface for persisting animator snapshots.
// This lets a stateless front end (e.g. HTTP) resume animators across requests.
type SnapshotStore interface {
	// Save persists the snapshot for a given session ID.
	Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error

	// Load retrieves the snapshot for a given session ID.
	// Returns domain.ErrSessionNotFound if the session does not exist.
	Load(ctx context.Context, sessionID string) (*domain.Snapshot, error)

	// Delete removes the snapshot for a given session ID.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of every stored session.
	List(ctx context.Context) ([]string, error)
}
