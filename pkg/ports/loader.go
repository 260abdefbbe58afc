package ports

import "context"

// DefinitionLoader defines how controller definitions are retrieved.
// This allows the storage layer (Loam, directory, Redis, memory) to be decoupled.
type DefinitionLoader interface {
	// GetDefinition retrieves the raw text of a controller definition by name.
	// It returns domain.ErrDefinitionNotFound (wrapped) for unknown names.
	GetDefinition(name string) ([]byte, error)

	// ListDefinitions returns the names of every available definition.
	// This is used for introspection and tooling (e.g. 'animgraph validate').
	ListDefinitions() ([]string, error)
}

// DefinitionStore is a DefinitionLoader that can also be written to.
type DefinitionStore interface {
	DefinitionLoader

	// SaveDefinition creates or replaces a definition.
	SaveDefinition(ctx context.Context, name string, data []byte) error

	// DeleteDefinition removes a definition. Deleting a missing name is not an error.
	DeleteDefinition(ctx context.Context, name string) error
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload of controllers.
type Watchable interface {
	// Watch returns a channel receiving the name of every definition that changed.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
