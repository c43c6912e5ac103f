// Package validation implements the three-gate pipeline patches pass before
// they reach the graph store: structural schema checks, domain field
// contracts, then whole-batch graph constraints. Stages run in fixed order
// and the pipeline stops at the first failing stage, so error messages always
// name the earliest broken layer.
//
// All three stages are pure. Edge-endpoint existence against the live store
// is deliberately deferred to execution: the store is the single authority on
// what exists at apply time.
package validation

import (
	"fmt"
	"strings"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/domain"
	"github.com/puntini/puntini/logging"
)

// Stage names reported in Result.FailingStage.
const (
	StageSchema           = "schema"
	StageDomain           = "domain"
	StageGraphConstraints = "graph_constraints"
)

// Result is the outcome of one pipeline run. A failing run carries an empty
// validated set; patches are filtered, never mutated.
type Result struct {
	Success          bool         `json:"success"`
	FailingStage     string       `json:"failing_stage,omitempty"`
	Errors           []string     `json:"errors,omitempty"`
	Warnings         []string     `json:"warnings,omitempty"`
	ValidatedPatches []core.Patch `json:"validated_patches,omitempty"`
}

// Summary renders the failure as a single error string suitable for the
// workflow error history. An empty string means the run succeeded.
func (r *Result) Summary() string {
	if r.Success {
		return ""
	}
	return fmt.Sprintf("%s validation failed: %s", r.FailingStage, strings.Join(r.Errors, "; "))
}

// Options configures a Pipeline.
type Options struct {
	Logger logging.Logger
}

// Pipeline validates patch batches.
type Pipeline struct {
	logger logging.Logger
}

// New constructs a Pipeline.
func New(optFns ...func(o *Options)) *Pipeline {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Pipeline{logger: opts.Logger}
}

// Validate runs the batch through all three stages.
func (p *Pipeline) Validate(patches []core.Patch) *Result {
	if errs := checkSchema(patches); len(errs) > 0 {
		p.logger.Debug("validation failed at %s: %d errors", StageSchema, len(errs))
		return &Result{FailingStage: StageSchema, Errors: errs}
	}
	if errs := checkDomain(patches); len(errs) > 0 {
		p.logger.Debug("validation failed at %s: %d errors", StageDomain, len(errs))
		return &Result{FailingStage: StageDomain, Errors: errs}
	}
	errs, warnings := checkGraphConstraints(patches)
	if len(errs) > 0 {
		p.logger.Debug("validation failed at %s: %d errors", StageGraphConstraints, len(errs))
		return &Result{FailingStage: StageGraphConstraints, Errors: errs, Warnings: warnings}
	}
	return &Result{Success: true, ValidatedPatches: patches, Warnings: warnings}
}

// checkSchema verifies patch structure and the closed label / relation
// enumerations without consulting domain contracts.
func checkSchema(patches []core.Patch) []string {
	var errs []string
	for i, patch := range patches {
		report := func(format string, args ...any) {
			errs = append(errs, fmt.Sprintf("patch %d: %s", i, fmt.Sprintf(format, args...)))
		}
		switch patch.OpType {
		case core.OpAddNode, core.OpUpdateProps:
			if patch.Node == nil {
				report("%s requires a node spec", patch.OpType)
				continue
			}
			if !domain.ValidLabel(patch.Node.Label) {
				report("unknown label %q", patch.Node.Label)
			}
		case core.OpAddEdge:
			if patch.Edge == nil {
				report("AddEdge requires an edge spec")
				continue
			}
			if !domain.ValidLabel(patch.Edge.SrcLabel) {
				report("unknown source label %q", patch.Edge.SrcLabel)
			}
			if !domain.ValidLabel(patch.Edge.DstLabel) {
				report("unknown destination label %q", patch.Edge.DstLabel)
			}
			if !domain.ValidRelation(patch.Edge.Rel) {
				report("unknown relation %q", patch.Edge.Rel)
			}
		case core.OpDelete:
			if patch.Node == nil && patch.Edge == nil {
				report("Delete requires a node or edge spec")
			}
		default:
			report("unknown op %q", patch.OpType)
		}
	}
	return errs
}

// checkDomain applies the per-label field contracts. The schema stage has
// already guaranteed every patch carries the spec its op requires.
func checkDomain(patches []core.Patch) []string {
	var errs []string
	for i, patch := range patches {
		switch patch.OpType {
		case core.OpAddNode:
			for _, msg := range domain.CheckRecord(patch.Node.Label, patch.Node.Key, patch.Node.Props) {
				errs = append(errs, fmt.Sprintf("patch %d: %s", i, msg))
			}
		case core.OpUpdateProps:
			if patch.Node.Key == "" {
				errs = append(errs, fmt.Sprintf("patch %d: %s: key is required", i, patch.Node.Label))
			}
		case core.OpAddEdge:
			if patch.Edge.SrcKey == "" || patch.Edge.DstKey == "" {
				errs = append(errs, fmt.Sprintf("patch %d: edge endpoints require keys", i))
			}
		}
	}
	return errs
}

// checkGraphConstraints runs whole-batch checks: duplicate AddNode targets
// are rejected, and edge endpoints neither created earlier in the batch nor
// plausibly pre-existing are flagged as warnings. Endpoint existence against
// the store itself is the executor's concern.
func checkGraphConstraints(patches []core.Patch) (errs, warnings []string) {
	added := map[string]int{}
	for i, patch := range patches {
		switch patch.OpType {
		case core.OpAddNode:
			ref := patch.Node.Ref()
			if first, dup := added[ref]; dup {
				errs = append(errs, fmt.Sprintf("patch %d: duplicate AddNode for %s (first added by patch %d)", i, ref, first))
				continue
			}
			added[ref] = i
		case core.OpAddEdge:
			for _, ref := range []string{patch.Edge.SrcRef(), patch.Edge.DstRef()} {
				if _, inBatch := added[ref]; !inBatch {
					warnings = append(warnings, fmt.Sprintf("patch %d: endpoint %s not created in this batch; assumed to pre-exist", i, ref))
				}
			}
		}
	}
	return errs, warnings
}
