package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/animgraph/pkg/domain"
	"github.com/aretw0/loam"
)

// Fence is the info string of the code block holding the controller text.
const Fence = "anim"

// Loader adapts a Loam repository of markdown documents to the
// ports.DefinitionLoader and ports.Watchable interfaces.
//
// Each document carries ControllerMetadata as frontmatter. Its body is either
// the controller text itself or prose with one fenced "```anim" block.
type Loader struct {
	Repo *loam.TypedRepository[ControllerMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[ControllerMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// GetDefinition retrieves the controller text of a document. Documents are
// looked up by path first, then by their frontmatter id.
func (l *Loader) GetDefinition(name string) ([]byte, error) {
	ctx := context.Background()

	doc, err := l.Repo.Get(ctx, name)
	if err == nil {
		return extractDefinition(doc.Content), nil
	}

	docs, listErr := l.Repo.List(ctx)
	if listErr != nil {
		return nil, fmt.Errorf("loam list failed: %w", listErr)
	}
	for _, d := range docs {
		if d.Data.ID != "" && trimExtension(d.Data.ID) == name {
			return extractDefinition(d.Content), nil
		}
	}
	return nil, fmt.Errorf("%w: %s: %v", domain.ErrDefinitionNotFound, name, err)
}

// Describe returns the frontmatter of a definition.
func (l *Loader) Describe(name string) (ControllerMetadata, error) {
	doc, err := l.Repo.Get(context.Background(), name)
	if err != nil {
		return ControllerMetadata{}, fmt.Errorf("%w: %s: %v", domain.ErrDefinitionNotFound, name, err)
	}
	return doc.Data, nil
}

// ListDefinitions lists all documents in the repository by normalized id.
func (l *Loader) ListDefinitions() ([]string, error) {
	ctx := context.Background()
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	ids := make([]string, 0, len(docs))

	for _, doc := range docs {
		rawID := doc.Data.ID
		if rawID == "" {
			rawID = doc.ID
		}
		id := trimExtension(rawID)

		if existingPath, ok := seen[id]; ok {
			return nil, fmt.Errorf("collision detected: ID '%s' is defined in both '%s' and '%s'", id, existingPath, doc.ID)
		}
		seen[id] = doc.ID
		ids = append(ids, id)
	}
	return ids, nil
}

// SaveDefinition writes data as a markdown document with a fenced block.
func (l *Loader) SaveDefinition(ctx context.Context, name string, data []byte) error {
	body := "```" + Fence + "\n" + strings.TrimSpace(string(data)) + "\n```\n"
	err := l.Repo.Save(ctx, &loam.DocumentModel[ControllerMetadata]{
		ID:      name,
		Content: body,
		Data:    ControllerMetadata{ID: name},
	})
	if err != nil {
		return fmt.Errorf("loam save failed for %s: %w", name, err)
	}
	return nil
}

// Watch implements ports.Watchable.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.md")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}

// extractDefinition returns the body of the first ```anim block, or the
// whole content when there is none.
func extractDefinition(content string) []byte {
	open := "```" + Fence
	start := strings.Index(content, open)
	if start < 0 {
		return []byte(strings.TrimSpace(content))
	}
	rest := content[start+len(open):]
	nl := strings.IndexByte(rest, '\n')
	if nl < 0 {
		return nil
	}
	rest = rest[nl+1:]
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return []byte(strings.TrimSpace(rest))
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
