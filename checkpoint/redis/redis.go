// Package redis implements core.Checkpointer on Redis, persisting one JSON
// serialized workflow state per thread id.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/puntini/puntini/core"
)

const keyPrefix = "checkpoint:thread:"

// Options configures the Redis checkpointer.
type Options struct {
	// TTL bounds how long a checkpoint survives; zero means no expiry.
	TTL time.Duration
}

// Checkpointer persists workflow states under checkpoint:thread:<id>.
type Checkpointer struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis via a redis:// URL, verifies the connection with a
// ping and returns the checkpointer.
func New(ctx context.Context, url string, optFns ...func(o *Options)) (*Checkpointer, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewFromClient(client, optFns...), nil
}

// NewFromClient wraps an existing Redis client.
func NewFromClient(client *redis.Client, optFns ...func(o *Options)) *Checkpointer {
	opts := Options{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Checkpointer{client: client, ttl: opts.TTL}
}

// Save implements core.Checkpointer.
func (c *Checkpointer) Save(ctx context.Context, threadID string, state *core.WorkflowState) error {
	if state == nil {
		return fmt.Errorf("cannot checkpoint a nil state")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+threadID, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Load implements core.Checkpointer. The second return reports whether a
// checkpoint exists for the thread.
func (c *Checkpointer) Load(ctx context.Context, threadID string) (*core.WorkflowState, bool, error) {
	data, err := c.client.Get(ctx, keyPrefix+threadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	var state core.WorkflowState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("failed to deserialize state: %w", err)
	}
	return &state, true, nil
}

// Delete implements core.Checkpointer. Deleting an absent checkpoint is an
// idempotent no-op.
func (c *Checkpointer) Delete(ctx context.Context, threadID string) error {
	if err := c.client.Del(ctx, keyPrefix+threadID).Err(); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}
