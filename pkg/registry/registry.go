package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/pkg/domain"
)

// DefaultName is the name of the permanent fallback controller.
const DefaultName = "_default"

// Compiler builds a controller from its definition name.
type Compiler func(name string) (*domain.Controller, error)

type entry struct {
	ctrl *domain.Controller
	refs int
}

// Registry shares compiled controllers between animators and counts their
// references. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	compile Compiler
	entries map[string]*entry
	def     *domain.Controller
	logger  *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithDefault replaces the empty fallback controller.
func WithDefault(ctrl *domain.Controller) Option {
	return func(r *Registry) {
		r.def = ctrl
	}
}

// NewRegistry creates a registry compiling definitions with compile.
func NewRegistry(compile Compiler, opts ...Option) *Registry {
	r := &Registry{
		compile: compile,
		entries: make(map[string]*entry),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.def == nil {
		r.def = domain.NewController(DefaultName)
	}
	return r
}

// Default returns the permanent fallback controller.
func (r *Registry) Default() *domain.Controller {
	return r.def
}

// Acquire returns the named controller, compiling it on first use, and
// takes a reference on it. When compilation fails the default controller is
// returned together with the error.
func (r *Registry) Acquire(name string) (*domain.Controller, error) {
	if name == "" || name == DefaultName {
		return r.def, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		e.refs++
		return e.ctrl, nil
	}

	ctrl, err := r.compile(name)
	if err != nil {
		r.logger.Warn("controller unavailable, using default", "controller", name, "err", err)
		return r.def, fmt.Errorf("failed to compile controller %s: %w", name, err)
	}
	r.entries[name] = &entry{ctrl: ctrl, refs: 1}
	return ctrl, nil
}

// Lookup returns a loaded controller without taking a reference.
func (r *Registry) Lookup(name string) (*domain.Controller, bool) {
	if name == DefaultName {
		return r.def, true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	return e.ctrl, true
}

// Release drops a reference. Controllers at zero references stay cached
// until Purge. Releasing the default controller is a no-op.
func (r *Registry) Release(name string) {
	r.release(name, false)
}

// ReleaseNow drops a reference and evicts the controller at zero.
func (r *Registry) ReleaseNow(name string) {
	r.release(name, true)
}

func (r *Registry) release(name string, evict bool) {
	if name == DefaultName {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[name]
	if !ok {
		return
	}
	if e.refs > 0 {
		e.refs--
	}
	if evict && e.refs == 0 {
		delete(r.entries, name)
	}
}

// Purge evicts every controller without references and returns their names.
func (r *Registry) Purge() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged []string
	for name, e := range r.entries {
		if e.refs == 0 {
			delete(r.entries, name)
			purged = append(purged, name)
		}
	}
	sort.Strings(purged)
	return purged
}

// Invalidate forgets a controller so the next Acquire recompiles it.
// Holders of the old controller keep using it.
func (r *Registry) Invalidate(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// Rename moves a loaded controller to a new name.
func (r *Registry) Rename(from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[from]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, from)
	}
	if _, taken := r.entries[to]; taken || to == DefaultName {
		return fmt.Errorf("controller %s already loaded", to)
	}
	delete(r.entries, from)
	e.ctrl.Name = to
	r.entries[to] = e
	return nil
}

// Refs returns the reference count of a loaded controller.
func (r *Registry) Refs(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[name]; ok {
		return e.refs
	}
	return 0
}

// Names returns the loaded controller names, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
