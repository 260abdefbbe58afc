package memory

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/animgraph/internal/compiler"
	"github.com/aretw0/animgraph/pkg/domain"
)

// Loader implements ports.DefinitionStore using an in-memory map.
// Safe for concurrent use.
type Loader struct {
	mu   sync.RWMutex
	defs map[string][]byte
}

// NewLoader creates a loader holding the given controller texts by name.
func NewLoader(data map[string]string) *Loader {
	defs := make(map[string][]byte, len(data))
	for k, v := range data {
		defs[k] = []byte(v)
	}
	return &Loader{defs: defs}
}

// NewFromControllers creates a loader from built controllers.
// Each controller is written in the text format under its name.
func NewFromControllers(ctrls ...*domain.Controller) (*Loader, error) {
	defs := make(map[string][]byte, len(ctrls))
	for _, c := range ctrls {
		if c.Name == "" {
			return nil, fmt.Errorf("controller missing name")
		}
		var buf bytes.Buffer
		if err := compiler.Write(&buf, c); err != nil {
			return nil, fmt.Errorf("failed to write controller %s: %w", c.Name, err)
		}
		defs[c.Name] = buf.Bytes()
	}
	return &Loader{defs: defs}, nil
}

// GetDefinition retrieves the raw text of a controller by name.
func (l *Loader) GetDefinition(name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	content, ok := l.defs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
	}
	return bytes.Clone(content), nil
}

// ListDefinitions returns every definition name, sorted.
func (l *Loader) ListDefinitions() ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	keys := make([]string, 0, len(l.defs))
	for k := range l.defs {
		keys = append(keys, k)
	}
	sort.Strings(keys) // Deterministic order
	return keys, nil
}

// SaveDefinition creates or replaces a definition.
func (l *Loader) SaveDefinition(_ context.Context, name string, data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defs[name] = bytes.Clone(data)
	return nil
}

// DeleteDefinition removes a definition.
func (l *Loader) DeleteDefinition(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.defs, name)
	return nil
}
