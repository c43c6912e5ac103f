// Package checkpoint houses concrete implementations of core.Checkpointer.
// A checkpointer persists the latest workflow state per thread id so an
// interrupted run can resume from its last completed stage.
package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/puntini/puntini/core"
)

// InMemoryCheckpointer keeps serialized workflow states in a process-local
// map. States are stored as JSON so loads always return an independent copy;
// callers can mutate a loaded state without corrupting the checkpoint.
type InMemoryCheckpointer struct {
	mu      sync.RWMutex
	entries map[string]inMemoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type inMemoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// InMemoryCheckpointerOptions configures an InMemoryCheckpointer.
type InMemoryCheckpointerOptions struct {
	// TTL bounds how long a checkpoint survives; zero means no expiry.
	TTL time.Duration
}

// NewInMemoryCheckpointer constructs an empty in-memory checkpointer.
func NewInMemoryCheckpointer(optFns ...func(o *InMemoryCheckpointerOptions)) *InMemoryCheckpointer {
	opts := InMemoryCheckpointerOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &InMemoryCheckpointer{
		entries: make(map[string]inMemoryEntry),
		ttl:     opts.TTL,
		now:     time.Now,
	}
}

// Save implements core.Checkpointer.
func (c *InMemoryCheckpointer) Save(ctx context.Context, threadID string, state *core.WorkflowState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if state == nil {
		return fmt.Errorf("cannot checkpoint a nil state")
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to serialize state: %w", err)
	}

	entry := inMemoryEntry{data: data}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[threadID] = entry
	return nil
}

// Load implements core.Checkpointer. The second return reports whether a live
// checkpoint exists for the thread.
func (c *InMemoryCheckpointer) Load(ctx context.Context, threadID string) (*core.WorkflowState, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	c.mu.RLock()
	entry, ok := c.entries[threadID]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, threadID)
		c.mu.Unlock()
		return nil, false, nil
	}

	var state core.WorkflowState
	if err := json.Unmarshal(entry.data, &state); err != nil {
		return nil, false, fmt.Errorf("failed to deserialize state: %w", err)
	}
	return &state, true, nil
}

// Delete implements core.Checkpointer. Deleting an absent checkpoint is an
// idempotent no-op.
func (c *InMemoryCheckpointer) Delete(ctx context.Context, threadID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, threadID)
	return nil
}
