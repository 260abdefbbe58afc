package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/animgraph"
	httpAdapter "github.com/aretw0/animgraph/pkg/adapters/http"
	"github.com/aretw0/animgraph/pkg/observability"
	"github.com/aretw0/animgraph/pkg/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// ServeOptions configures the serve command.
type ServeOptions struct {
	Addr string
	// EventBuffer is the per-subscriber queue of the /events stream.
	EventBuffer int
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// Serve runs the HTTP debug server until ctx is done. Metrics and the event
// stream are attached to every animator the server creates, and changed
// definitions are hot-reloaded.
func Serve(ctx context.Context, opts Options, srvOpts ServeOptions, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(reg)

	buffer := srvOpts.EventBuffer
	if buffer <= 0 {
		buffer = 64
	}
	stream := observability.NewStream(buffer)

	engine, err := NewEngine(opts, logger, metrics.Hooks(), stream.Hooks())
	if err != nil {
		return err
	}

	store, err := NewSnapshotStore(opts)
	if err != nil {
		return err
	}
	sessionOpts := []session.Option{session.WithLogger(logger)}
	locker, err := NewLocker(opts)
	if err != nil {
		return err
	}
	if locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(locker))
	}
	sessions := session.NewManager(store, engine.NewAnimator, sessionOpts...)

	if err := HotReload(ctx, engine, sessions, logger); err != nil {
		logger.Warn("hot reload unavailable", "err", err)
	}

	srv := &http.Server{
		Addr: srvOpts.Addr,
		Handler: httpAdapter.NewHandler(engine,
			httpAdapter.WithSessions(sessions),
			httpAdapter.WithEvents(stream),
			httpAdapter.WithClips(engine.Assets()),
			httpAdapter.WithMetrics(metrics, reg),
			httpAdapter.WithLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		printSystemMessage("animgraph %s serving %s on %s", strings.TrimSpace(animgraph.Version), opts.Dir, srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	timeout := srvOpts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown did not complete", "timeout", timeout, "err", err)
		if err := srv.Close(); err != nil {
			return fmt.Errorf("error killing server: %w", err)
		}
	}
	printSystemMessage("server stopped")
	return nil
}
