package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/animgraph/internal/logging"
	"github.com/aretw0/animgraph/pkg/adapters/memory"
	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// Ext is the extension of controller definition files.
const Ext = ".anim"

// AssetsFile is the asset library looked up next to the definitions.
const AssetsFile = "assets.yaml"

// Loader implements ports.DefinitionStore and ports.Watchable over a
// directory of "<name>.anim" files.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the logger used for watch diagnostics.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a loader reading definitions from dir.
func NewLoader(dir string, opts ...LoaderOption) *Loader {
	l := &Loader{dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the directory being served.
func (l *Loader) Dir() string {
	return l.dir
}

func (l *Loader) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid definition name %q", name)
	}
	return filepath.Join(l.dir, name+Ext), nil
}

// GetDefinition reads "<dir>/<name>.anim".
func (l *Loader) GetDefinition(name string) ([]byte, error) {
	p, err := l.path(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDefinitionNotFound, err)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
		}
		return nil, fmt.Errorf("failed to read definition %s: %w", name, err)
	}
	return data, nil
}

// ListDefinitions returns the names of every definition file, sorted.
func (l *Loader) ListDefinitions() ([]string, error) {
	return listExt(l.dir, Ext)
}

// SaveDefinition writes a definition file atomically.
func (l *Loader) SaveDefinition(_ context.Context, name string, data []byte) error {
	if _, err := l.path(name); err != nil {
		return err
	}
	return writeAtomic(l.dir, name+Ext, data)
}

// DeleteDefinition removes a definition file.
func (l *Loader) DeleteDefinition(_ context.Context, name string) error {
	p, err := l.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete definition %s: %w", name, err)
	}
	return nil
}

// Watch reports the name of every definition file created, written,
// removed or renamed in the directory until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(l.dir); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	ch := make(chan string)
	go func() {
		defer close(ch)
		defer w.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				name, relevant := l.eventName(ev)
				if !relevant {
					continue
				}
				l.logger.Debug("definition changed", "name", name, "op", ev.Op.String())
				select {
				case ch <- name:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				l.logger.Warn("watch error", "dir", l.dir, "err", err)
			}
		}
	}()
	return ch, nil
}

func (l *Loader) eventName(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return "", false
	}
	base := filepath.Base(ev.Name)
	if filepath.Ext(base) != Ext || strings.HasPrefix(base, "tmp-") {
		return "", false
	}
	return strings.TrimSuffix(base, Ext), true
}

// LoadAssets reads the asset library in dir. A missing file yields an
// error wrapping os.ErrNotExist.
func LoadAssets(dir string) (*memory.Library, error) {
	data, err := os.ReadFile(filepath.Join(dir, AssetsFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no %s in %s: %w", AssetsFile, dir, err)
		}
		return nil, fmt.Errorf("failed to read assets: %w", err)
	}
	return memory.LoadLibraryYAML(data)
}
