// Package tool implements the extraction subsystem: model-backed extractors
// that turn natural language goals into structured graph patches, plus the
// registry that assembles the enabled set at startup.
package tool

import (
	"context"
	"fmt"

	"github.com/puntini/puntini/core"
)

// Extractor is a capability that reads a user goal and proposes graph
// patches. Extractors never touch the graph store; they only produce
// candidate patches for the validation pipeline.
//
// Implementations should:
//   - Provide clear, descriptive names (snake_case recommended)
//   - Advertise lowercase capability keywords for tool selection
//   - Be safe for concurrent use
type Extractor interface {
	// Name returns the unique identifier for this extractor.
	Name() string

	// Description returns a human-readable description of what this
	// extractor produces.
	Description() string

	// Capabilities returns lowercase keywords matched against the goal text
	// during tool selection.
	Capabilities() []string

	// Extract proposes patches for the given goal text.
	Extract(ctx context.Context, text string) (*ExtractionResult, error)
}

// ExtractionResult is the outcome of a single extractor run.
type ExtractionResult struct {
	Success bool         `json:"success"`
	Patches []core.Patch `json:"patches"`
	Count   int          `json:"count"`
	Error   string       `json:"error,omitempty"`
}

// ToolError represents errors that occur during extractor execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the extractor that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

// Error codes used across extractors.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeExecutionError  = "EXECUTION_ERROR"
	CodeModelError      = "MODEL_ERROR"
)

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
