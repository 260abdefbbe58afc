package animgraph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/aretw0/animgraph/internal/compiler"
	"github.com/aretw0/animgraph/internal/presentation/tui"
	"github.com/aretw0/animgraph/internal/runtime"
	"github.com/aretw0/animgraph/internal/validator"
	"github.com/aretw0/animgraph/pkg/adapters/file"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/animgraph/pkg/ports"
	"github.com/aretw0/animgraph/pkg/registry"
)

// ErrNotWatchable is returned by Watch when the loader cannot report changes.
var ErrNotWatchable = errors.New("loader does not support watching")

// Engine is the high-level entry point of the library. It loads controller
// definitions, compiles and shares them, and hands out animators.
type Engine struct {
	loader   ports.DefinitionLoader
	assets   ports.AssetSource
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	registry *registry.Registry

	// Name labels the engine in logs. It defaults to the base name of dir.
	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a definition loader, replacing the default file loader.
func WithLoader(l ports.DefinitionLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithAssets sets the source of skeletons and clips, replacing the
// assets.yaml of the project directory.
func WithAssets(a ports.AssetSource) Option {
	return func(e *Engine) {
		e.assets = a
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks on every animator the
// engine creates.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// New initializes an engine over the project directory dir: "*.anim"
// definitions and an optional "assets.yaml". With WithLoader dir may be
// empty and only serves as a label.
func New(dir string, opts ...Option) (*Engine, error) {
	eng := &Engine{}
	for _, opt := range opts {
		opt(eng)
	}

	if dir != "" {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		dir = abs
		eng.Name = filepath.Base(abs)
	}

	if eng.logger == nil {
		eng.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if eng.Name != "" {
		eng.logger = eng.logger.With("project", eng.Name)
	}

	if eng.loader == nil {
		if dir == "" {
			return nil, fmt.Errorf("dir is required when no custom loader is provided")
		}
		eng.loader = file.NewLoader(dir, file.WithLogger(eng.logger))
	}

	if eng.assets == nil && dir != "" {
		lib, err := file.LoadAssets(dir)
		switch {
		case err == nil:
			eng.assets = lib
		case errors.Is(err, os.ErrNotExist):
			eng.logger.Debug("no asset library, poses stay at the bind pose", "dir", dir)
		default:
			return nil, fmt.Errorf("failed to load assets: %w", err)
		}
	}

	eng.registry = registry.NewRegistry(eng.Compile, registry.WithLogger(eng.logger))
	return eng, nil
}

// Compile parses the named definition into a fresh controller, bypassing
// the shared cache.
func (e *Engine) Compile(name string) (*domain.Controller, error) {
	src, err := e.loader.GetDefinition(name)
	if err != nil {
		return nil, err
	}
	return e.parser().Parse(name, src)
}

func (e *Engine) parser() *compiler.Parser {
	opts := []compiler.Option{compiler.WithLogger(e.logger)}
	if e.assets != nil {
		opts = append(opts, compiler.WithClips(e.assets), compiler.WithSkeletons(e.assets))
	}
	return compiler.NewParser(opts...)
}

// ListControllers returns the names of every definition, sorted.
func (e *Engine) ListControllers() ([]string, error) {
	names, err := e.loader.ListDefinitions()
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// Controller returns the shared compiled controller and takes a reference
// on it. Pair every successful call with Release.
func (e *Engine) Controller(name string) (*domain.Controller, error) {
	ctrl, err := e.registry.Acquire(name)
	if err != nil {
		return nil, err
	}
	return ctrl, nil
}

// Release drops a reference taken by Controller.
func (e *Engine) Release(name string) {
	e.registry.Release(name)
}

// Invalidate makes the next Controller call recompile name. Animators
// already running keep their controller.
func (e *Engine) Invalidate(name string) {
	e.registry.Invalidate(name)
}

// Registry returns the shared controller cache.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// NewAnimator creates an animator for the named controller. The returned
// func releases the controller and must be called once the animator is
// discarded.
func (e *Engine) NewAnimator(name string) (*runtime.Animator, func(), error) {
	return e.NewAnimatorWithHooks(name, domain.LifecycleHooks{})
}

// NewAnimatorWithHooks is NewAnimator with extra hooks for this animator
// only, called after the engine's own.
func (e *Engine) NewAnimatorWithHooks(name string, hooks domain.LifecycleHooks) (*runtime.Animator, func(), error) {
	ctrl, err := e.Controller(name)
	if err != nil {
		return nil, nil, err
	}
	a, err := runtime.NewAnimator(ctrl, e.assets,
		runtime.WithLogger(e.logger),
		runtime.WithLifecycleHooks(e.hooks.Merge(hooks)),
	)
	if err != nil {
		e.Release(name)
		return nil, nil, err
	}
	return a, func() { e.Release(name) }, nil
}

// Inspect renders the named controller as a markdown summary.
func (e *Engine) Inspect(name string) (string, error) {
	ctrl, err := e.Controller(name)
	if err != nil {
		return "", err
	}
	defer e.Release(name)
	return tui.InspectMarkdown(ctrl, e.assets), nil
}

// Validate compiles the named definition and reports structural problems.
func (e *Engine) Validate(name string) (*validator.Report, error) {
	ctrl, err := e.Compile(name)
	if err != nil {
		return nil, err
	}
	return validator.ValidateController(ctrl), nil
}

// ValidateAll validates every definition. The error joins the error-level
// findings and parse failures of all of them.
func (e *Engine) ValidateAll() ([]*validator.Report, error) {
	return validator.ValidateAll(e.loader, func(name string, src []byte) (*domain.Controller, error) {
		return e.parser().Parse(name, src)
	})
}

// Format writes the named definition in canonical text form.
func (e *Engine) Format(name string, w io.Writer) error {
	ctrl, err := e.Compile(name)
	if err != nil {
		return err
	}
	return compiler.Write(w, ctrl)
}

// Watch returns a channel reporting the names of changed definitions.
// Returns ErrNotWatchable if the loader does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.loader.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, ErrNotWatchable
}

// Loader returns the definition loader.
func (e *Engine) Loader() ports.DefinitionLoader {
	return e.loader
}

// Assets returns the skeleton and clip source, or nil when the project has
// no asset library.
func (e *Engine) Assets() ports.AssetSource {
	return e.assets
}

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
