package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/animgraph/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Definitions implements ports.DefinitionStore and ports.Watchable over a
// Redis hash of controller texts. Writes are announced on a pub/sub channel
// so every replica can hot-reload.
type Definitions struct {
	client *backend.Client
	prefix string
}

// NewDefinitions creates a definition store. An empty prefix means DefaultPrefix.
func NewDefinitions(client *backend.Client, prefix string) *Definitions {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Definitions{client: client, prefix: prefix}
}

func (d *Definitions) hashKey() string {
	return d.prefix + "definitions"
}

func (d *Definitions) channel() string {
	return d.prefix + "definitions:changed"
}

// GetDefinition retrieves the raw text of a controller by name.
func (d *Definitions) GetDefinition(name string) ([]byte, error) {
	data, err := d.client.HGet(context.Background(), d.hashKey(), name).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDefinitionNotFound, name)
		}
		return nil, fmt.Errorf("failed to get definition from redis: %w", err)
	}
	return data, nil
}

// ListDefinitions returns every definition name, sorted.
func (d *Definitions) ListDefinitions() ([]string, error) {
	names, err := d.client.HKeys(context.Background(), d.hashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// SaveDefinition stores a definition and announces the change.
func (d *Definitions) SaveDefinition(ctx context.Context, name string, data []byte) error {
	pipe := d.client.TxPipeline()
	pipe.HSet(ctx, d.hashKey(), name, data)
	pipe.Publish(ctx, d.channel(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save definition %s: %w", name, err)
	}
	return nil
}

// DeleteDefinition removes a definition and announces the change.
func (d *Definitions) DeleteDefinition(ctx context.Context, name string) error {
	pipe := d.client.TxPipeline()
	pipe.HDel(ctx, d.hashKey(), name)
	pipe.Publish(ctx, d.channel(), name)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete definition %s: %w", name, err)
	}
	return nil
}

// Watch subscribes to definition changes until ctx is done.
func (d *Definitions) Watch(ctx context.Context) (<-chan string, error) {
	sub := d.client.Subscribe(ctx, d.channel())
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", d.channel(), err)
	}

	ch := make(chan string, 1)
	msgs := sub.Channel()

	go func() {
		defer close(ch)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case ch <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}
