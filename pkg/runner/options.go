package runner

import (
	"log/slog"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithHandler configures the trace handler.
func WithHandler(handler Handler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInterceptor configures the step middleware.
func WithInterceptor(interceptor StepInterceptor) Option {
	return func(r *Runner) {
		r.Interceptor = interceptor
	}
}

// WithStore persists the final snapshot and resumes from it on the next run.
// This is only effective together with WithSessionID.
func WithStore(store ports.SnapshotStore) Option {
	return func(r *Runner) {
		r.Store = store
	}
}

// WithSessionID sets the session ID used with WithStore.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.SessionID = id
	}
}

// WithLifecycleHooks adds hooks to the animator built for each run.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(r *Runner) {
		r.Hooks = r.Hooks.Merge(hooks)
	}
}
