package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
)

// ErrSessionExists is returned by Create when the ID is already in use.
var ErrSessionExists = errors.New("session already exists")

// Factory builds an animator for the named controller. The returned release
// func is called once the animator is dropped by the manager.
type Factory func(controller string) (*runtime.Animator, func(), error)

// Session is one live animator.
type Session struct {
	ID       string
	Animator *runtime.Animator

	release  func()
	revision uint64
}

// Controller returns the name of the controller the session evaluates.
func (s *Session) Controller() string {
	return s.Animator.Controller().Name
}

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager keeps animator sessions, persisting their snapshots so they survive
// restarts and can move between replicas.
// It uses reference counting to garbage collect unused locks.
type Manager struct {
	store   ports.SnapshotStore
	factory Factory

	mu    sync.Mutex            // guards locks
	locks map[string]*lockEntry // active locks

	cacheMu sync.Mutex
	cache   map[string]*Session

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks. Defaults to 30s.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		m.lockTTL = ttl
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session manager persisting snapshots to store and
// building animators with factory.
func NewManager(store ports.SnapshotStore, factory Factory, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		factory: factory,
		locks:   make(map[string]*lockEntry),
		cache:   make(map[string]*Session),
		lockTTL: 30 * time.Second,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller must lock entry.mu, and call release(sessionID) after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry at zero.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// WithLock executes fn while holding the lock for the session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

// Create starts a session evaluating controller and persists its first snapshot.
func (m *Manager) Create(ctx context.Context, sessionID, controller string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		_, err := m.store.Load(ctx, sessionID)
		if err == nil {
			return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
		}
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return fmt.Errorf("failed to check session existence: %w", err)
		}

		anim, release, err := m.factory(controller)
		if err != nil {
			return fmt.Errorf("failed to create animator: %w", err)
		}
		s := &Session{ID: sessionID, Animator: anim, release: release}

		snap, err = m.persist(ctx, s)
		if err != nil {
			s.drop()
			return err
		}
		m.put(s)
		m.logger.Debug("session created", "session_id", sessionID, "controller", controller)
		return nil
	})
	return snap, err
}

// Get returns the current snapshot of a session.
func (m *Manager) Get(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		snap, err = m.store.Load(ctx, sessionID)
		return err
	})
	return snap, err
}

// Update runs fn against the session's animator and persists the result.
// The animator is restored from the stored snapshot first unless it already
// holds the stored revision, so replicas sharing a store observe each
// other's updates. A failing fn leaves the store untouched and forces the
// next Update to restore.
func (m *Manager) Update(ctx context.Context, sessionID string, fn func(*Session) error) (*domain.Snapshot, error) {
	var snap *domain.Snapshot
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		s, err := m.resolve(ctx, sessionID)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			s.revision = 0
			return err
		}
		snap, err = m.persist(ctx, s)
		return err
	})
	return snap, err
}

// Delete removes the session from the store and drops its animator.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		m.evict(sessionID)
		return m.store.Delete(ctx, sessionID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ids, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)
	return ids, nil
}

// Evict drops every cached animator built for controller, so the next
// Update rebuilds it. Used when a definition is reloaded.
func (m *Manager) Evict(controller string) int {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()

	n := 0
	for id, s := range m.cache {
		if s.Controller() == controller {
			s.drop()
			delete(m.cache, id)
			n++
		}
	}
	return n
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.store
}

// resolve returns the cached session brought up to date with the store,
// rebuilding the animator when it is not cached. A cached animator already
// at the stored revision is used as is.
func (m *Manager) resolve(ctx context.Context, sessionID string) (*Session, error) {
	snap, err := m.store.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	s := m.get(sessionID)
	if s == nil || s.Controller() != snap.Controller {
		if s != nil {
			m.evict(sessionID)
		}
		anim, release, err := m.factory(snap.Controller)
		if err != nil {
			return nil, fmt.Errorf("failed to rebuild animator: %w", err)
		}
		s = &Session{ID: sessionID, Animator: anim, release: release}
		m.put(s)
	}

	if s.revision != 0 && s.revision == snap.Revision {
		return s, nil
	}
	if err := s.Animator.Restore(*snap); err != nil {
		s.revision = 0
		return nil, fmt.Errorf("failed to restore session %s: %w", sessionID, err)
	}
	s.revision = snap.Revision
	return s, nil
}

func (m *Manager) persist(ctx context.Context, s *Session) (*domain.Snapshot, error) {
	snap := s.Animator.Snapshot()
	snap.Revision = s.revision + 1
	if err := m.store.Save(ctx, s.ID, &snap); err != nil {
		s.revision = 0
		return nil, fmt.Errorf("failed to save session %s: %w", s.ID, err)
	}
	s.revision = snap.Revision
	return &snap, nil
}

func (m *Manager) get(id string) *Session {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	return m.cache[id]
}

func (m *Manager) put(s *Session) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	m.cache[s.ID] = s
}

func (m *Manager) evict(id string) {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	if s, ok := m.cache[id]; ok {
		s.drop()
		delete(m.cache, id)
	}
}

func (s *Session) drop() {
	if s.release != nil {
		s.release()
		s.release = nil
	}
}
