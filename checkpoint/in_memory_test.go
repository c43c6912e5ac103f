package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntini/puntini/core"
)

// Interface compliance (compile-time assertion)
var _ core.Checkpointer = (*InMemoryCheckpointer)(nil)

func TestInMemoryCheckpointer_SaveLoadDelete(t *testing.T) {
	c := NewInMemoryCheckpointer()
	ctx := context.Background()

	state := core.NewWorkflowState("t-1", "create project")
	state.Apply(core.StateUpdate{
		ExecutionPlan:    []string{"one", "two"},
		CurrentStepIndex: core.Ptr(1),
		AppendErrors:     []string{"e1"},
	})
	require.NoError(t, c.Save(ctx, "t-1", state))

	loaded, found, err := c.Load(ctx, "t-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "create project", loaded.UserGoal)
	assert.Equal(t, 1, loaded.CurrentStepIndex)
	assert.Equal(t, []string{"e1"}, loaded.ErrorHistory)

	// Loads return independent copies.
	loaded.UserGoal = "mutated"
	again, _, err := c.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, "create project", again.UserGoal)

	require.NoError(t, c.Delete(ctx, "t-1"))
	_, found, err = c.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.False(t, found)

	// Deleting an absent checkpoint is a no-op.
	assert.NoError(t, c.Delete(ctx, "t-1"))
}

func TestInMemoryCheckpointer_MissingThread(t *testing.T) {
	c := NewInMemoryCheckpointer()
	state, found, err := c.Load(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, state)
}

func TestInMemoryCheckpointer_TTL(t *testing.T) {
	c := NewInMemoryCheckpointer(func(o *InMemoryCheckpointerOptions) {
		o.TTL = time.Minute
	})
	ctx := context.Background()

	now := time.Now()
	c.now = func() time.Time { return now }
	require.NoError(t, c.Save(ctx, "t-1", core.NewWorkflowState("t-1", "goal")))

	_, found, err := c.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.True(t, found)

	c.now = func() time.Time { return now.Add(2 * time.Minute) }
	_, found, err = c.Load(ctx, "t-1")
	require.NoError(t, err)
	assert.False(t, found, "expired checkpoints behave like missing ones")
}

func TestInMemoryCheckpointer_NilState(t *testing.T) {
	c := NewInMemoryCheckpointer()
	assert.Error(t, c.Save(context.Background(), "t-1", nil))
}
