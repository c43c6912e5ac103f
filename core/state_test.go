package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApply_MergeRules(t *testing.T) {
	state := NewWorkflowState("t-1", "create project")

	// Scalars overwrite.
	state.Apply(StateUpdate{
		ExecutionPlan:    []string{"a", "b"},
		CurrentStepIndex: Ptr(1),
		RetryCount:       Ptr(2),
		LastError:        Ptr("boom"),
	})
	assert.Equal(t, 1, state.CurrentStepIndex)
	assert.Equal(t, 2, state.RetryCount)
	assert.Equal(t, "boom", state.LastError)

	// LastError clears via the empty string.
	state.Apply(StateUpdate{LastError: Ptr("")})
	assert.Empty(t, state.LastError)

	// Error history appends, never replaces.
	state.Apply(StateUpdate{AppendErrors: []string{"e1"}})
	state.Apply(StateUpdate{AppendErrors: []string{"e2", "e3"}})
	assert.Equal(t, []string{"e1", "e2", "e3"}, state.ErrorHistory)

	// Slices replace wholesale when non-nil; nil leaves them alone.
	state.Apply(StateUpdate{SelectedTools: []string{"extract_project"}})
	state.Apply(StateUpdate{})
	assert.Equal(t, []string{"extract_project"}, state.SelectedTools)
	state.Apply(StateUpdate{SelectedTools: []string{"extract_user"}})
	assert.Equal(t, []string{"extract_user"}, state.SelectedTools)

	// Maps replace wholesale too.
	state.Apply(StateUpdate{ToolOutputs: map[string]any{"a": 1}})
	state.Apply(StateUpdate{ToolOutputs: map[string]any{"b": 2}})
	assert.Equal(t, map[string]any{"b": 2}, state.ToolOutputs)
}

func TestApply_EscalatedIsMonotonic(t *testing.T) {
	state := NewWorkflowState("t-1", "goal")

	state.Apply(StateUpdate{Escalated: Ptr(false)})
	assert.False(t, state.Escalated)

	state.Apply(StateUpdate{Escalated: Ptr(true), EscalationReason: Ptr("max_retries_reached")})
	assert.True(t, state.Escalated)

	// A false update after escalation is ignored.
	state.Apply(StateUpdate{Escalated: Ptr(false)})
	assert.True(t, state.Escalated)
	assert.Equal(t, "max_retries_reached", state.EscalationReason)
}

func TestWorkflowState_Steps(t *testing.T) {
	state := NewWorkflowState("t-1", "goal")
	assert.True(t, state.OnLastStep(), "empty plan counts as last step")
	assert.Empty(t, state.CurrentStep())

	state.Apply(StateUpdate{ExecutionPlan: []string{"one", "two", "three"}})
	assert.Equal(t, "one", state.CurrentStep())
	assert.False(t, state.OnLastStep())

	state.Apply(StateUpdate{CurrentStepIndex: Ptr(2)})
	assert.Equal(t, "three", state.CurrentStep())
	assert.True(t, state.OnLastStep())
}

func TestPatchRefs(t *testing.T) {
	node := NodeSpec{Label: "Project", Key: "TEST"}
	assert.Equal(t, "Project:TEST", node.Ref())

	edge := EdgeSpec{SrcLabel: "Project", SrcKey: "TEST", Rel: "HAS_ISSUE", DstLabel: "Issue", DstKey: "I-1"}
	assert.Equal(t, "Project:TEST", edge.SrcRef())
	assert.Equal(t, "Issue:I-1", edge.DstRef())
	assert.Equal(t, "Project:TEST|HAS_ISSUE|Issue:I-1", edge.Ref())

	patch := Patch{OpType: OpAddNode, Node: &node}
	assert.True(t, patch.IsNodeOp())
}
