package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/domain"
	"github.com/puntini/puntini/internal/util"
	"github.com/puntini/puntini/logging"
	"github.com/puntini/puntini/model"
)

// Options configures extractor construction.
type Options struct {
	Logger logging.Logger
}

// NodeExtractor is a model-backed extractor that produces AddNode patches for
// a single domain label. The model is prompted for a JSON array of records;
// each record becomes one patch after its fields pass the domain contract.
//
// A NodeExtractor has no internal mutable state after construction and is
// safe for concurrent use.
type NodeExtractor struct {
	name         string
	description  string
	capabilities []string
	label        string
	keyFields    []string // first present non-empty field becomes the node key
	system       string
	model        model.Model
	logger       logging.Logger
}

// NodeExtractorSpec declares a NodeExtractor's identity and prompt.
type NodeExtractorSpec struct {
	Name         string
	Description  string
	Capabilities []string
	Label        string
	KeyFields    []string
	System       string
}

// NewNodeExtractor constructs a NodeExtractor backed by the given model.
func NewNodeExtractor(m model.Model, spec NodeExtractorSpec, optFns ...func(o *Options)) *NodeExtractor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &NodeExtractor{
		name:         spec.Name,
		description:  spec.Description,
		capabilities: spec.Capabilities,
		label:        spec.Label,
		keyFields:    spec.KeyFields,
		system:       spec.System,
		model:        m,
		logger:       opts.Logger,
	}
}

// Name implements Extractor.
func (e *NodeExtractor) Name() string { return e.name }

// Description implements Extractor.
func (e *NodeExtractor) Description() string { return e.description }

// Capabilities implements Extractor.
func (e *NodeExtractor) Capabilities() []string { return e.capabilities }

// Extract implements Extractor.
//
// Error semantics:
//
//	model failure            -> *ToolError{Code: MODEL_ERROR}
//	unparsable model output  -> *ToolError{Code: EXECUTION_ERROR}
//	domain contract failure  -> *ToolError{Code: VALIDATION_ERROR}
func (e *NodeExtractor) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	resp, err := e.model.Generate(ctx, model.Request{
		System: e.system,
		Prompt: fmt.Sprintf("Goal:\n%s\n\nReturn only the JSON array.", text),
	})
	if err != nil {
		return nil, &ToolError{Tool: e.name, Message: err.Error(), Code: CodeModelError}
	}

	var records []map[string]any
	if err := util.ExtractJSONArray(resp.Text, &records); err != nil {
		return nil, &ToolError{Tool: e.name, Message: err.Error(), Code: CodeExecutionError}
	}

	var (
		patches    []core.Patch
		fieldErrs  []string
	)
	for _, record := range records {
		key, props := e.splitKey(record)
		if errs := domain.CheckRecord(e.label, key, props); len(errs) > 0 {
			fieldErrs = append(fieldErrs, errs...)
			continue
		}
		patches = append(patches, core.Patch{
			OpType: core.OpAddNode,
			Node:   &core.NodeSpec{Label: e.label, Key: key, Props: props},
			Reason: fmt.Sprintf("extracted by %s", e.name),
		})
	}
	if len(fieldErrs) > 0 {
		return nil, &ToolError{
			Tool:    e.name,
			Message: strings.Join(fieldErrs, "; "),
			Code:    CodeValidationError,
			Details: fieldErrs,
		}
	}

	e.logger.Debug("tool %s extracted %d patches", e.name, len(patches))
	return &ExtractionResult{Success: true, Patches: patches, Count: len(patches)}, nil
}

// splitKey pulls the node key out of the record. An explicit "key" field is
// consumed; fallback key fields like "name" or "title" double as properties
// because the domain contracts require them there.
func (e *NodeExtractor) splitKey(record map[string]any) (string, map[string]any) {
	key := ""
	for _, field := range e.keyFields {
		if v, ok := record[field].(string); ok && v != "" {
			key = v
			break
		}
	}
	props := make(map[string]any, len(record))
	for k, v := range record {
		if k == "key" {
			continue
		}
		props[k] = v
	}
	return key, props
}
