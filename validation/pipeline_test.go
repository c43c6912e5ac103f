package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntini/puntini/core"
)

func validProject() core.Patch {
	return core.Patch{
		OpType: core.OpAddNode,
		Node:   &core.NodeSpec{Label: "Project", Key: "TEST", Props: map[string]any{"name": "Test"}},
	}
}

func TestValidate_Success(t *testing.T) {
	p := New()
	result := p.Validate([]core.Patch{
		validProject(),
		{
			OpType: core.OpAddNode,
			Node:   &core.NodeSpec{Label: "Issue", Key: "I-1", Props: map[string]any{"title": "Bug", "status": "open"}},
		},
		{
			OpType: core.OpAddEdge,
			Edge: &core.EdgeSpec{
				SrcLabel: "Project", SrcKey: "TEST",
				Rel:      "HAS_ISSUE",
				DstLabel: "Issue", DstKey: "I-1",
			},
		},
	})
	assert.True(t, result.Success)
	assert.Empty(t, result.FailingStage)
	assert.Len(t, result.ValidatedPatches, 3)
	assert.Empty(t, result.Summary())
}

func TestValidate_SchemaStage(t *testing.T) {
	p := New()

	result := p.Validate([]core.Patch{
		{OpType: core.OpAddNode, Node: &core.NodeSpec{Label: "Spaceship", Key: "X"}},
	})
	assert.False(t, result.Success)
	assert.Equal(t, StageSchema, result.FailingStage)
	assert.Empty(t, result.ValidatedPatches, "failing runs return an empty validated set")
	assert.Contains(t, result.Summary(), "schema validation failed")

	result = p.Validate([]core.Patch{{OpType: core.OpAddEdge}})
	assert.Equal(t, StageSchema, result.FailingStage)

	result = p.Validate([]core.Patch{{OpType: core.OpDelete}})
	assert.Equal(t, StageSchema, result.FailingStage)
}

func TestValidate_DomainOnlyDefectReportsDomainStage(t *testing.T) {
	p := New()

	// Schema-valid (known label, node populated) but missing the required
	// name field: the failing stage must be domain, never schema.
	result := p.Validate([]core.Patch{
		{OpType: core.OpAddNode, Node: &core.NodeSpec{Label: "Project", Key: "TEST", Props: map[string]any{}}},
	})
	assert.False(t, result.Success)
	assert.Equal(t, StageDomain, result.FailingStage)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], `required field "name"`)
}

func TestValidate_DomainStatusEnum(t *testing.T) {
	p := New()
	result := p.Validate([]core.Patch{
		{
			OpType: core.OpAddNode,
			Node:   &core.NodeSpec{Label: "Issue", Key: "I-1", Props: map[string]any{"title": "Bug", "status": "closed"}},
		},
	})
	assert.Equal(t, StageDomain, result.FailingStage)
	assert.Contains(t, result.Summary(), "invalid status")
}

func TestValidate_GraphConstraintsDuplicateAddNode(t *testing.T) {
	p := New()
	result := p.Validate([]core.Patch{
		validProject(),
		validProject(),
	})
	assert.False(t, result.Success)
	assert.Equal(t, StageGraphConstraints, result.FailingStage)
	assert.Contains(t, result.Errors[0], "duplicate AddNode")
}

func TestValidate_EdgeToPreexistingNodeIsWarningOnly(t *testing.T) {
	p := New()
	result := p.Validate([]core.Patch{
		{
			OpType: core.OpAddEdge,
			Edge: &core.EdgeSpec{
				SrcLabel: "Project", SrcKey: "OLD",
				Rel:      "HAS_ISSUE",
				DstLabel: "Issue", DstKey: "I-9",
			},
		},
	})
	// Store existence is the executor's concern; the pipeline only warns.
	assert.True(t, result.Success)
	assert.Len(t, result.Warnings, 2)
}

func TestValidate_EmptyBatch(t *testing.T) {
	p := New()
	result := p.Validate(nil)
	assert.True(t, result.Success)
	assert.Empty(t, result.Errors)
}
