package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/animgraph/pkg/domain"
)

// Store implements ports.SnapshotStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Snapshot
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Snapshot),
	}
}

// Save persists a copy of the snapshot.
func (s *Store) Save(_ context.Context, sessionID string, snap *domain.Snapshot) error {
	c := snap.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = c
	return nil
}

// Load returns a copy so callers cannot mutate the stored snapshot.
func (s *Store) Load(_ context.Context, sessionID string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return snap.Clone(), nil
}

// Delete removes the snapshot.
func (s *Store) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns stored session IDs, sorted.
func (s *Store) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	sort.Strings(sessions)
	return sessions, nil
}
