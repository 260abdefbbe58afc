package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/pkg/session"
)

// HotReload recompiles changed definitions until ctx is done: the engine
// forgets the cached controller and sessions built on it are evicted, so
// their next access restores onto the new one. It returns immediately when
// the backend cannot be watched.
func HotReload(ctx context.Context, engine *animgraph.Engine, sessions *session.Manager, logger *slog.Logger) error {
	changes, err := engine.Watch(ctx)
	if errors.Is(err, animgraph.ErrNotWatchable) {
		logger.Info("hot reload disabled", "reason", err)
		return nil
	}
	if err != nil {
		return err
	}

	go func() {
		for name := range changes {
			engine.Invalidate(name)
			evicted := 0
			if sessions != nil {
				evicted = sessions.Evict(name)
			}
			logger.Info("controller changed", "controller", name, "sessions", evicted)
			if report, err := engine.Validate(name); err != nil {
				logger.Warn("controller no longer compiles", "controller", name, "err", err)
			} else {
				for _, issue := range report.Issues {
					logger.Warn("validation", "controller", name, "issue", issue.String())
				}
			}
		}
	}()
	return nil
}
