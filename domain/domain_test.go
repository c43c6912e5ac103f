package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidLabelAndRelation(t *testing.T) {
	assert.True(t, ValidLabel("Project"))
	assert.False(t, ValidLabel("project"), "labels are case-sensitive")
	assert.False(t, ValidLabel("Spaceship"))

	assert.True(t, ValidRelation("ASSIGNED_TO"))
	assert.False(t, ValidRelation("KNOWS"))
}

func TestCheckRecord(t *testing.T) {
	assert.Empty(t, CheckRecord("Project", "TEST", map[string]any{"name": "Test"}))
	assert.Empty(t, CheckRecord("Issue", "I-1", map[string]any{"title": "Bug", "status": "in_progress"}))

	errs := CheckRecord("Project", "", map[string]any{})
	assert.Len(t, errs, 2, "missing key and missing name")

	errs = CheckRecord("Issue", "I-1", map[string]any{"title": "Bug", "status": "closed"})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], `invalid status "closed"`)

	errs = CheckRecord("User", "alice", map[string]any{"name": 42})
	assert.Len(t, errs, 1)
	assert.Contains(t, errs[0], "expected string")

	// Unknown properties pass; the graph is schemaless beyond the contract.
	assert.Empty(t, CheckRecord("Epic", "E-1", map[string]any{"title": "Launch", "quarter": "Q3"}))
}
