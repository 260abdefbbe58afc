package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
)

// Store implements ports.SnapshotStore using the local filesystem.
// It stores one JSON document per session in a configured directory.
type Store struct {
	BasePath string
}

// NewStore creates a new Store with the given base path.
// If basePath is empty, it defaults to ".animgraph/sessions".
func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".animgraph", "sessions")
	}
	return &Store{BasePath: basePath}
}

// Save persists the snapshot to a JSON file atomically.
// It writes to a temporary file first, syncs it, and then renames it over the destination.
func (s *Store) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return writeAtomic(s.BasePath, sessionID+".json", data)
}

// Load retrieves the snapshot of a session.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("sessionID cannot be empty")
	}

	data, err := os.ReadFile(filepath.Join(s.BasePath, sessionID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snap, nil
}

// Delete removes the session file.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionID cannot be empty")
	}
	err := os.Remove(filepath.Join(s.BasePath, sessionID+".json"))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}
	return nil
}

// List returns every stored session ID, sorted.
func (s *Store) List(ctx context.Context) ([]string, error) {
	return listExt(s.BasePath, ".json")
}

// writeAtomic writes data to dir/name through a temp file in the same
// directory, so readers never observe a partial file.
func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}
	dest := filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("failed to remove %s for overwrite: %w", name, err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file to %s: %w", name, err)
	}
	return nil
}

func listExt(dir, ext string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	names := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ext))
	}
	sort.Strings(names)
	return names, nil
}
