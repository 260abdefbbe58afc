// Package scheduler ticks many independent animators in parallel on a
// persistent worker pool.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/aretw0/animgraph/internal/logging"
	animruntime "github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/pkg/observability"
)

// ErrDuplicate is returned when adding an animator under an id already in use.
var ErrDuplicate = errors.New("animator id already scheduled")

// Scheduler advances a set of animators once per Tick. Each animator is
// updated by exactly one worker per tick, so animators need no locking, but
// lifecycle hooks shared between animators must be safe for concurrent use.
type Scheduler struct {
	mu        sync.Mutex
	animators map[string]*animruntime.Animator

	pool        worker.DynamicWorkerPool
	workers     int
	queue       int
	idleTimeout time.Duration
	taskID      int

	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithWorkers sets the number of pool workers. Defaults to GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithQueueSize sets the task queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.queue = n
		}
	}
}

// WithIdleTimeout sets how long an idle worker lives before exiting.
func WithIdleTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.idleTimeout = d
	}
}

// WithMetrics records the duration of every animator update.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// New creates a scheduler. Workers persist across ticks.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		animators:   make(map[string]*animruntime.Animator),
		workers:     runtime.GOMAXPROCS(0),
		queue:       256,
		idleTimeout: time.Second,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.pool = worker.NewDynamicWorkerPool(s.workers, s.queue, s.idleTimeout)
	return s
}

// Add schedules a under id.
func (s *Scheduler) Add(id string, a *animruntime.Animator) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.animators[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, id)
	}
	s.animators[id] = a
	return nil
}

// Remove unschedules id and reports whether it was scheduled.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.animators[id]
	delete(s.animators, id)
	return ok
}

// Get returns the animator scheduled under id.
func (s *Scheduler) Get(id string) (*animruntime.Animator, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.animators[id]
	return a, ok
}

// IDs returns the scheduled ids in order.
func (s *Scheduler) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.animators))
	for id := range s.animators {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Len returns the number of scheduled animators.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.animators)
}

// Tick advances every scheduled animator by dt and waits for all of them.
// Add and Remove may be called concurrently; they take effect on the next tick.
func (s *Scheduler) Tick(ctx context.Context, dt float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	batch := make([]*animruntime.Animator, 0, len(s.animators))
	for _, a := range s.animators {
		batch = append(batch, a)
	}
	s.mu.Unlock()

	// The pool's own Wait blocks until workers idle-exit, so a WaitGroup
	// is the per-tick barrier.
	var wg sync.WaitGroup
	for _, a := range batch {
		wg.Add(1)
		s.pool.SubmitTask(worker.Task{
			ID: s.nextID(),
			Do: func() (any, error) {
				defer wg.Done()
				s.update(ctx, a, dt)
				return nil, nil
			},
		})
	}
	wg.Wait()

	s.logger.Debug("tick", "animators", len(batch), "dt", dt)
	return nil
}

func (s *Scheduler) update(ctx context.Context, a *animruntime.Animator, dt float32) {
	if s.metrics == nil {
		a.UpdateContext(ctx, dt)
		return
	}
	s.metrics.Time(func() { a.UpdateContext(ctx, dt) })
}

func (s *Scheduler) nextID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.taskID
	s.taskID++
	return id
}

// Run ticks at the given interval until ctx is done, passing the measured
// wall time since the previous tick as dt.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			if err := s.Tick(ctx, dt); err != nil {
				return err
			}
		}
	}
}
