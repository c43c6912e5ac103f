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

// RelationshipExtractor is a model-backed extractor that produces AddEdge
// patches between already-identified nodes.
type RelationshipExtractor struct {
	model  model.Model
	logger logging.Logger
}

// NewRelationshipExtractor constructs a RelationshipExtractor backed by the
// given model.
func NewRelationshipExtractor(m model.Model, optFns ...func(o *Options)) *RelationshipExtractor {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &RelationshipExtractor{model: m, logger: opts.Logger}
}

// Name implements Extractor.
func (e *RelationshipExtractor) Name() string { return "extract_relationship" }

// Description implements Extractor.
func (e *RelationshipExtractor) Description() string {
	return "Extract relationships between entities (assignments, hierarchy, blocking) as graph edges"
}

// Capabilities implements Extractor.
func (e *RelationshipExtractor) Capabilities() []string {
	return []string{"assign", "link", "relationship", "depends", "blocks", "belongs"}
}

type relationshipRecord struct {
	SrcLabel string         `json:"src_label"`
	SrcKey   string         `json:"src_key"`
	Rel      string         `json:"rel"`
	DstLabel string         `json:"dst_label"`
	DstKey   string         `json:"dst_key"`
	Props    map[string]any `json:"props"`
}

const relationshipSystem = `You extract relationships between project management entities.
Entities carry a label (Project, User, Epic, Issue, Assignment) and a key.
Allowed relations: HAS_EPIC, HAS_ISSUE, ASSIGNED_TO, BLOCKS, HAS_ASSIGNMENT, ASSIGNMENT_OF.
Respond with a JSON array of objects with fields: src_label, src_key, rel, dst_label, dst_key and optionally props.`

// Extract implements Extractor. Error semantics match NodeExtractor.
func (e *RelationshipExtractor) Extract(ctx context.Context, text string) (*ExtractionResult, error) {
	resp, err := e.model.Generate(ctx, model.Request{
		System: relationshipSystem,
		Prompt: fmt.Sprintf("Goal:\n%s\n\nReturn only the JSON array.", text),
	})
	if err != nil {
		return nil, &ToolError{Tool: e.Name(), Message: err.Error(), Code: CodeModelError}
	}

	var records []relationshipRecord
	if err := util.ExtractJSONArray(resp.Text, &records); err != nil {
		return nil, &ToolError{Tool: e.Name(), Message: err.Error(), Code: CodeExecutionError}
	}

	var (
		patches   []core.Patch
		fieldErrs []string
	)
	for _, record := range records {
		if errs := checkRelationship(record); len(errs) > 0 {
			fieldErrs = append(fieldErrs, errs...)
			continue
		}
		patches = append(patches, core.Patch{
			OpType: core.OpAddEdge,
			Edge: &core.EdgeSpec{
				SrcLabel: record.SrcLabel,
				SrcKey:   record.SrcKey,
				Rel:      record.Rel,
				DstLabel: record.DstLabel,
				DstKey:   record.DstKey,
				Props:    record.Props,
			},
			Reason: fmt.Sprintf("extracted by %s", e.Name()),
		})
	}
	if len(fieldErrs) > 0 {
		return nil, &ToolError{
			Tool:    e.Name(),
			Message: strings.Join(fieldErrs, "; "),
			Code:    CodeValidationError,
			Details: fieldErrs,
		}
	}

	e.logger.Debug("tool %s extracted %d patches", e.Name(), len(patches))
	return &ExtractionResult{Success: true, Patches: patches, Count: len(patches)}, nil
}

func checkRelationship(record relationshipRecord) []string {
	var errs []string
	if !domain.ValidLabel(record.SrcLabel) {
		errs = append(errs, fmt.Sprintf("invalid source label %q", record.SrcLabel))
	}
	if !domain.ValidLabel(record.DstLabel) {
		errs = append(errs, fmt.Sprintf("invalid destination label %q", record.DstLabel))
	}
	if !domain.ValidRelation(record.Rel) {
		errs = append(errs, fmt.Sprintf("invalid relation %q", record.Rel))
	}
	if record.SrcKey == "" || record.DstKey == "" {
		errs = append(errs, "relationship endpoints require keys")
	}
	return errs
}
