package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/internal/util"
	"github.com/puntini/puntini/model"
)

const plannerSystem = `You are a planning assistant for a graph-backed project management agent.
Break the user's goal into a short ordered execution plan.
Respond with a JSON array of step description strings and nothing else.`

const answerSystem = `You are a project management assistant that just finished processing a request.
Write a short, direct response for the user summarizing what was done.`

// plan asks the model for an execution plan. Malformed planner output is
// non-fatal: the fixed default plan is substituted instead.
func (e *Engine) plan(ctx context.Context, state *core.WorkflowState) (*core.StateUpdate, error) {
	steps := core.DefaultPlan

	resp, err := e.model.Generate(ctx, model.Request{
		System: plannerSystem,
		Prompt: fmt.Sprintf("Create an execution plan for this goal:\n%s", state.UserGoal),
	})
	if err != nil {
		e.logger.Warn("planner call failed, using default plan: %v", err)
	} else {
		var parsed []string
		if parseErr := util.ExtractJSONArray(resp.Text, &parsed); parseErr != nil || len(parsed) == 0 {
			e.logger.Warn("planner returned malformed plan, using default plan")
		} else {
			steps = parsed
		}
	}

	return &core.StateUpdate{
		ExecutionPlan:    steps,
		CurrentStepIndex: core.Ptr(0),
		RetryCount:       core.Ptr(0),
		LastError:        core.Ptr(""),
	}, nil
}

// selectTools matches extractor capabilities against the goal and the current
// plan step. No match selects nothing; the pipeline then runs through with an
// empty batch rather than guessing at tools.
func (e *Engine) selectTools(state *core.WorkflowState) (*core.StateUpdate, error) {
	haystack := strings.ToLower(state.UserGoal + " " + state.CurrentStep())

	var selected []string
	for _, extractor := range e.extractors {
		for _, capability := range extractor.Capabilities() {
			if strings.Contains(haystack, capability) {
				selected = append(selected, extractor.Name())
				break
			}
		}
	}

	e.logger.Debug("selected %d tools for step %q", len(selected), state.CurrentStep())
	return &core.StateUpdate{
		SelectedTools: selected,
		LastError:     core.Ptr(""),
	}, nil
}

// extract runs every selected extractor over the goal. Per-tool failures are
// recoverable: the failing tool's outcome is recorded and the others still
// run, so this stage itself never fails.
func (e *Engine) extract(ctx context.Context, state *core.WorkflowState) (*core.StateUpdate, error) {
	byName := make(map[string]int, len(e.extractors))
	for i, extractor := range e.extractors {
		byName[extractor.Name()] = i
	}

	patches := []core.Patch{}
	outputs := map[string]any{}
	for _, name := range state.SelectedTools {
		idx, ok := byName[name]
		if !ok {
			outputs[name] = map[string]any{"success": false, "error": "extractor not registered"}
			continue
		}
		result, err := e.extractors[idx].Extract(ctx, state.UserGoal)
		if err != nil {
			e.logger.Warn("extractor %s failed: %v", name, err)
			outputs[name] = map[string]any{"success": false, "error": err.Error()}
			continue
		}
		outputs[name] = map[string]any{"success": true, "count": result.Count}
		patches = append(patches, result.Patches...)
	}

	return &core.StateUpdate{
		PendingPatches: patches,
		ToolOutputs:    outputs,
		LastError:      core.Ptr(""),
	}, nil
}

// validate gates the pending batch through the three-stage pipeline. A
// failing batch is a stage error so Evaluate can decide on a retry.
func (e *Engine) validate(state *core.WorkflowState) (*core.StateUpdate, error) {
	result := e.pipeline.Validate(state.PendingPatches)
	if !result.Success {
		return nil, errors.New(result.Summary())
	}
	for _, warning := range result.Warnings {
		e.logger.Debug("validation warning: %s", warning)
	}
	return &core.StateUpdate{
		PendingPatches: result.ValidatedPatches,
		LastError:      core.Ptr(""),
	}, nil
}

// execute applies the validated batch to the graph store. Pending patches are
// consumed exactly once: a successful apply clears them.
func (e *Engine) execute(ctx context.Context, state *core.WorkflowState) (*core.StateUpdate, error) {
	if len(state.PendingPatches) == 0 {
		return &core.StateUpdate{LastError: core.Ptr("")}, nil
	}

	result, err := e.store.Upsert(ctx, state.PendingPatches)
	if err != nil {
		return nil, fmt.Errorf("graph store unavailable: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("execution failed: %s", strings.Join(result.Errors, "; "))
	}
	for _, msg := range result.Errors {
		// Non-transactional backends report per-patch failures as data.
		e.logger.Warn("patch not applied: %s", msg)
	}

	applied := append([]core.AppliedOperation{}, state.AppliedOperations...)
	for _, patch := range state.PendingPatches {
		target := ""
		switch {
		case patch.Node != nil:
			target = patch.Node.Ref()
		case patch.Edge != nil:
			target = patch.Edge.Ref()
		}
		applied = append(applied, core.AppliedOperation{
			Op:     string(patch.OpType),
			Target: target,
			Reason: patch.Reason,
		})
	}

	e.logger.Info("applied %d of %d patches", result.AppliedCount, len(state.PendingPatches))
	return &core.StateUpdate{
		PendingPatches:    []core.Patch{},
		AppliedOperations: applied,
		LastError:         core.Ptr(""),
	}, nil
}

// answer produces the terminal response. It never fails: when the request
// escalated or the answer model is unavailable, a plain templated response
// embedding the error context is returned instead.
func (e *Engine) answer(ctx context.Context, state *core.WorkflowState) *core.FinalResult {
	success := !state.Escalated && state.LastError == ""

	result := &core.FinalResult{
		Success: success,
		ProcessingResults: map[string]any{
			"execution_plan":     state.ExecutionPlan,
			"steps_completed":    state.CurrentStepIndex,
			"applied_operations": state.AppliedOperations,
			"tool_outputs":       state.ToolOutputs,
			"error_history":      state.ErrorHistory,
			"escalated":          state.Escalated,
		},
	}
	if state.Escalated {
		result.ProcessingResults["escalation_reason"] = state.EscalationReason
	}

	if !success {
		result.Response = apology(state)
		return result
	}

	resp, err := e.model.Generate(ctx, model.Request{
		System: answerSystem,
		Prompt: answerPrompt(state),
	})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		if err != nil {
			e.logger.Warn("answer generation failed, using fallback response: %v", err)
		}
		result.Response = fmt.Sprintf("Done. Applied %d graph operations for: %s",
			len(state.AppliedOperations), state.UserGoal)
		return result
	}
	result.Response = strings.TrimSpace(resp.Text)
	return result
}

func answerPrompt(state *core.WorkflowState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\n", state.UserGoal)
	fmt.Fprintf(&b, "Applied operations (%d):\n", len(state.AppliedOperations))
	for _, op := range state.AppliedOperations {
		fmt.Fprintf(&b, "- %s %s\n", op.Op, op.Target)
	}
	return b.String()
}

// apology is the worst-case terminal response: explanatory, with the error
// context embedded, so no request is ever left unanswered.
func apology(state *core.WorkflowState) string {
	var b strings.Builder
	b.WriteString("I wasn't able to complete your request")
	if state.EscalationReason != "" {
		fmt.Fprintf(&b, " (%s)", state.EscalationReason)
	}
	b.WriteString(".")
	if state.LastError != "" {
		fmt.Fprintf(&b, " Last error: %s.", state.LastError)
	}
	if len(state.AppliedOperations) > 0 {
		fmt.Fprintf(&b, " %d operations were applied before stopping.", len(state.AppliedOperations))
	}
	b.WriteString(" This request needs human attention.")
	return b.String()
}
