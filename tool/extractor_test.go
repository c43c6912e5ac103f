package tool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/model"
)

// Interface compliance (compile-time assertions)
var (
	_ Extractor = (*NodeExtractor)(nil)
	_ Extractor = (*RelationshipExtractor)(nil)
)

func buildExtractor(t *testing.T, name string, m model.Model) Extractor {
	t.Helper()
	extractors, err := DefaultRegistry().Build([]string{name}, Dependencies{Model: m})
	require.NoError(t, err)
	require.Len(t, extractors, 1)
	return extractors[0]
}

func TestProjectExtraction(t *testing.T) {
	m := model.NewMockModel()
	m.AddResponse("create project with key 'TEST'",
		`[{"key": "TEST", "name": "Test Project"}]`)

	extractor := buildExtractor(t, "extract_project", m)
	result, err := extractor.Extract(context.Background(),
		"create project with key 'TEST' and name 'Test Project'")
	require.NoError(t, err)

	// Exactly one AddNode patch with the project identity and name.
	assert.True(t, result.Success)
	require.Equal(t, 1, result.Count)
	patch := result.Patches[0]
	assert.Equal(t, core.OpAddNode, patch.OpType)
	require.NotNil(t, patch.Node)
	assert.Equal(t, "Project", patch.Node.Label)
	assert.Equal(t, "TEST", patch.Node.Key)
	assert.Equal(t, "Test Project", patch.Node.Props["name"])
	assert.NotContains(t, patch.Node.Props, "key")
}

func TestNodeExtraction_FencedOutput(t *testing.T) {
	m := model.NewMockModel()
	m.AddResponse("fix the login bug", "```json\n[{\"title\": \"fix the login bug\", \"status\": \"open\"}]\n```")

	extractor := buildExtractor(t, "extract_issue", m)
	result, err := extractor.Extract(context.Background(), "add an issue: fix the login bug")
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)
	assert.Equal(t, "Issue", result.Patches[0].Node.Label)
	assert.Equal(t, "fix the login bug", result.Patches[0].Node.Key)
}

func TestNodeExtraction_ModelError(t *testing.T) {
	m := model.NewMockModel()
	m.FailWith(errors.New("rate limited"))

	extractor := buildExtractor(t, "extract_project", m)
	_, err := extractor.Extract(context.Background(), "create project Alpha")
	require.Error(t, err)

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeModelError, toolErr.Code)
	assert.Equal(t, "extract_project", toolErr.Tool)
}

func TestNodeExtraction_UnparsableOutput(t *testing.T) {
	m := model.NewMockModel() // echoes the prompt, which contains no JSON array

	extractor := buildExtractor(t, "extract_project", m)
	_, err := extractor.Extract(context.Background(), "create project Alpha")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeExecutionError, toolErr.Code)
}

func TestNodeExtraction_DomainContractFailure(t *testing.T) {
	m := model.NewMockModel()
	m.AddResponse("create project", `[{"key": "TEST"}]`) // name missing

	extractor := buildExtractor(t, "extract_project", m)
	_, err := extractor.Extract(context.Background(), "create project TEST")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidationError, toolErr.Code)
	assert.Contains(t, toolErr.Message, `required field "name"`)
}

func TestRelationshipExtraction(t *testing.T) {
	m := model.NewMockModel()
	m.AddResponse("assign alice",
		`[{"src_label": "User", "src_key": "alice", "rel": "ASSIGNED_TO", "dst_label": "Issue", "dst_key": "I-1"}]`)

	extractor := buildExtractor(t, "extract_relationship", m)
	result, err := extractor.Extract(context.Background(), "assign alice to issue I-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.Count)

	patch := result.Patches[0]
	assert.Equal(t, core.OpAddEdge, patch.OpType)
	require.NotNil(t, patch.Edge)
	assert.Equal(t, "User:alice", patch.Edge.SrcRef())
	assert.Equal(t, "Issue:I-1", patch.Edge.DstRef())
}

func TestRelationshipExtraction_InvalidRelation(t *testing.T) {
	m := model.NewMockModel()
	m.AddResponse("link",
		`[{"src_label": "User", "src_key": "alice", "rel": "KNOWS", "dst_label": "User", "dst_key": "bob"}]`)

	extractor := buildExtractor(t, "extract_relationship", m)
	_, err := extractor.Extract(context.Background(), "link alice and bob")

	var toolErr *ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, CodeValidationError, toolErr.Code)
	assert.Contains(t, toolErr.Message, `invalid relation "KNOWS"`)
}

func TestRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.Equal(t, []string{
		"extract_epic", "extract_issue", "extract_project",
		"extract_relationship", "extract_user",
	}, r.Names())

	// Duplicate registration fails loudly.
	err := r.Register("extract_project", relationshipBuiltin)
	assert.Error(t, err)

	// Unknown names are configuration errors.
	_, err = r.Build([]string{"extract_spaceship"}, Dependencies{Model: model.NewMockModel()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extract_spaceship")
}

func TestToolError_Error(t *testing.T) {
	err := NewToolError("extract_project", "boom", CodeExecutionError)
	assert.Equal(t, "tool error [EXECUTION_ERROR] in extract_project: boom", err.Error())
	assert.Equal(t, "tool error in extract_project: boom", (&ToolError{Tool: "extract_project", Message: "boom"}).Error())
}
