package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/animgraph"
	"github.com/aretw0/animgraph/pkg/adapters/file"
	loamAdapter "github.com/aretw0/animgraph/pkg/adapters/loam"
	redisAdapter "github.com/aretw0/animgraph/pkg/adapters/redis"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/persistence/middleware"
	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/aretw0/loam"
	backend "github.com/redis/go-redis/v9"
)

// NewEngine initializes an engine for opts.Backend. Assets always come from
// the project directory; only definitions move between backends.
func NewEngine(opts Options, logger *slog.Logger, hooks ...domain.LifecycleHooks) (*animgraph.Engine, error) {
	engineOpts := []animgraph.Option{animgraph.WithLogger(logger)}
	for _, h := range hooks {
		engineOpts = append(engineOpts, animgraph.WithLifecycleHooks(h))
	}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		engineOpts = append(engineOpts, animgraph.WithLifecycleHooks(createDebugHooks(logger)))
	}

	switch opts.Backend {
	case "", BackendFile:
	case BackendLoam:
		loader, err := newLoamLoader(opts.Dir)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, animgraph.WithLoader(loader))
	case BackendRedis:
		client, err := newRedisClient(opts.RedisURL)
		if err != nil {
			return nil, err
		}
		engineOpts = append(engineOpts, animgraph.WithLoader(redisAdapter.NewDefinitions(client, opts.Prefix)))
	default:
		return nil, fmt.Errorf("unknown backend %q", opts.Backend)
	}

	engine, err := animgraph.New(opts.Dir, engineOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing engine: %w", err)
	}
	return engine, nil
}

// newLoamLoader opens dir as a read-only Loam repository of markdown
// controller documents.
func newLoamLoader(dir string) (ports.DefinitionLoader, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(abs, loam.WithStrict(true), loam.WithReadOnly(true))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return loamAdapter.New(loam.NewTypedRepository[loamAdapter.ControllerMetadata](repo)), nil
}

func newRedisClient(url string) (*backend.Client, error) {
	if url == "" {
		url = "redis://localhost:6379/0"
	}
	o, err := backend.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return backend.NewClient(o), nil
}

// NewSnapshotStore picks the session store matching opts.Backend: redis
// for the redis backend, JSON files under the project otherwise.
// With a session key every snapshot is sealed before it is stored.
func NewSnapshotStore(opts Options) (ports.SnapshotStore, error) {
	store, err := newBaseStore(opts)
	if err != nil {
		return nil, err
	}
	if opts.SessionKey == "" {
		return store, nil
	}
	seal, err := newSealMiddleware(opts)
	if err != nil {
		return nil, err
	}
	return middleware.Chain(store, seal), nil
}

func newBaseStore(opts Options) (ports.SnapshotStore, error) {
	if opts.Backend != BackendRedis {
		return fileStore(opts.Dir), nil
	}
	client, err := newRedisClient(opts.RedisURL)
	if err != nil {
		return nil, err
	}
	var storeOpts []redisAdapter.Option
	if opts.Prefix != "" {
		storeOpts = append(storeOpts, redisAdapter.WithPrefix(opts.Prefix+"session:"))
	}
	return redisAdapter.NewFromClient(client, storeOpts...), nil
}

func newSealMiddleware(opts Options) (middleware.Middleware, error) {
	active, err := middleware.ParseKey(opts.SessionKey)
	if err != nil {
		return nil, fmt.Errorf("session key: %w", err)
	}
	cfg := middleware.EncryptionConfig{ActiveKey: active}
	for i, raw := range opts.SessionFallbackKeys {
		key, err := middleware.ParseKey(raw)
		if err != nil {
			return nil, fmt.Errorf("fallback session key %d: %w", i, err)
		}
		cfg.FallbackKeys = append(cfg.FallbackKeys, key)
	}
	return middleware.NewEncryptionMiddleware(cfg)
}

// NewLocker returns a distributed session lock for the redis backend, or
// nil when sessions live in a single process.
func NewLocker(opts Options) (ports.DistributedLocker, error) {
	if opts.Backend != BackendRedis {
		return nil, nil
	}
	client, err := newRedisClient(opts.RedisURL)
	if err != nil {
		return nil, err
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = redisAdapter.DefaultPrefix
	}
	return redisAdapter.NewLocker(client, prefix), nil
}

func fileStore(dir string) *file.Store {
	return file.NewStore(filepath.Join(dir, ".animgraph", "sessions"))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			logger.Debug("enter state", "controller", e.Controller, "layer", e.Layer, "state", e.State)
		},
		OnStateExit: func(_ context.Context, e *domain.StateEvent) {
			logger.Debug("exit state", "controller", e.Controller, "layer", e.Layer, "state", e.State)
		},
		OnTimeEvent: func(_ context.Context, e *domain.TimeEventFired) {
			logger.Debug("time event", "controller", e.Controller, "state", e.State, "event", e.Name)
		},
	}
}
