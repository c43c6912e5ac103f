package engine

import (
	"context"
	"fmt"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/escalation"
	"github.com/puntini/puntini/logging"
	"github.com/puntini/puntini/model"
	"github.com/puntini/puntini/tool"
	"github.com/puntini/puntini/validation"
)

// stage names the nodes of the orchestration state machine.
type stage string

const (
	stagePlan        stage = "plan"
	stageSelectTools stage = "select_tools"
	stageExtract     stage = "extract"
	stageValidate    stage = "validate"
	stageExecute     stage = "execute"
	stageEvaluate    stage = "evaluate"
	stageAnswer      stage = "answer"
)

// fixedNext maps each non-Evaluate stage to its single successor.
var fixedNext = map[stage]stage{
	stagePlan:        stageSelectTools,
	stageSelectTools: stageExtract,
	stageExtract:     stageValidate,
	stageValidate:    stageExecute,
	stageExecute:     stageEvaluate,
}

// Options configures an Engine.
type Options struct {
	Logger logging.Logger

	// Checkpointer persists the workflow state after every stage so a thread
	// id can resume. Nil disables checkpointing.
	Checkpointer core.Checkpointer

	// MaxIterations bounds the total number of stage transitions per request
	// as a final defense against a cycling evaluation.
	MaxIterations int
}

// Engine drives the orchestration pipeline. It is stateless across requests;
// all request state lives in the WorkflowState.
type Engine struct {
	model         model.Model
	extractors    []tool.Extractor
	pipeline      *validation.Pipeline
	store         core.GraphStore
	escalation    *escalation.Engine
	checkpointer  core.Checkpointer
	logger        logging.Logger
	maxIterations int
}

// New constructs an Engine over its collaborators.
func New(
	m model.Model,
	extractors []tool.Extractor,
	pipeline *validation.Pipeline,
	store core.GraphStore,
	esc *escalation.Engine,
	optFns ...func(o *Options),
) *Engine {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		MaxIterations: 50,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{
		model:         m,
		extractors:    extractors,
		pipeline:      pipeline,
		store:         store,
		escalation:    esc,
		checkpointer:  opts.Checkpointer,
		logger:        opts.Logger,
		maxIterations: opts.MaxIterations,
	}
}

// Process runs one goal to completion and always returns a FinalResult; the
// error return is reserved for context cancellation.
func (e *Engine) Process(ctx context.Context, goal, threadID string) (*core.FinalResult, error) {
	state, current := e.restoreOrInit(ctx, goal, threadID)
	e.logger.Info("processing goal for thread %s from stage %s", threadID, current)

	for iterations := 0; current != stageAnswer; iterations++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if iterations >= e.maxIterations {
			e.logger.Error("thread %s hit the iteration guard at stage %s", threadID, current)
			state.Apply(core.StateUpdate{
				Escalated:        core.Ptr(true),
				EscalationReason: core.Ptr("iteration_limit_reached"),
			})
			break
		}

		if current == stageEvaluate {
			current = e.evaluate(state)
			e.checkpoint(ctx, state)
			continue
		}

		update, err := e.runStage(ctx, current, state)
		if err != nil {
			// Stage failures are converted into error history, never
			// propagated; Evaluate decides whether to retry.
			e.logger.Warn("stage %s failed for thread %s: %v", current, threadID, err)
			state.Apply(core.StateUpdate{
				LastError:    core.Ptr(err.Error()),
				AppendErrors: []string{err.Error()},
				RetryCount:   core.Ptr(state.RetryCount + 1),
			})
			current = stageEvaluate
		} else {
			state.Apply(*update)
			current = fixedNext[current]
		}
		e.checkpoint(ctx, state)
	}

	result := e.answer(ctx, state)
	state.Apply(core.StateUpdate{FinalResult: result})
	e.checkpoint(ctx, state)
	return result, nil
}

// restoreOrInit resumes the thread's checkpointed state when one exists and
// has not already produced a final answer; otherwise it starts fresh.
func (e *Engine) restoreOrInit(ctx context.Context, goal, threadID string) (*core.WorkflowState, stage) {
	if e.checkpointer != nil {
		saved, found, err := e.checkpointer.Load(ctx, threadID)
		if err != nil {
			e.logger.Warn("failed to load checkpoint for thread %s: %v", threadID, err)
		} else if found && saved.FinalResult == nil && len(saved.ExecutionPlan) > 0 {
			saved.UserGoal = goal
			saved.Conversation = append(saved.Conversation, goal)
			return saved, stageSelectTools
		}
	}
	return core.NewWorkflowState(threadID, goal), stagePlan
}

func (e *Engine) runStage(ctx context.Context, s stage, state *core.WorkflowState) (*core.StateUpdate, error) {
	switch s {
	case stagePlan:
		return e.plan(ctx, state)
	case stageSelectTools:
		return e.selectTools(state)
	case stageExtract:
		return e.extract(ctx, state)
	case stageValidate:
		return e.validate(state)
	case stageExecute:
		return e.execute(ctx, state)
	default:
		return nil, fmt.Errorf("unknown stage %q", s)
	}
}

// evaluate holds the only conditional edge of the state machine.
//
// Decision order:
//  1. already escalated -> Answer
//  2. last stage failed -> escalate (signal score or retry ceiling) or retry
//  3. on the last plan step -> Answer
//  4. advance to the next step -> SelectTools
func (e *Engine) evaluate(state *core.WorkflowState) stage {
	if state.Escalated {
		return stageAnswer
	}

	if state.LastError != "" {
		decision := e.escalation.ShouldEscalate(state)
		if len(decision.Signals) > 0 {
			state.Apply(core.StateUpdate{EscalationSignals: decision.Signals})
		}
		if decision.Escalate {
			e.logger.Info("thread %s escalating: %s", state.ThreadID, decision.Reason)
			state.Apply(core.StateUpdate{
				Escalated:        core.Ptr(true),
				EscalationReason: core.Ptr(decision.Reason),
			})
			return stageAnswer
		}
		if state.RetryCount >= e.escalation.RetryCeiling(state) {
			e.logger.Info("thread %s exhausted retries at step %d", state.ThreadID, state.CurrentStepIndex)
			state.Apply(core.StateUpdate{
				Escalated:        core.Ptr(true),
				EscalationReason: core.Ptr(escalation.ReasonMaxRetries),
			})
			return stageAnswer
		}
		return stageSelectTools
	}

	if state.OnLastStep() {
		return stageAnswer
	}

	// RetryCount resets exactly when the step index advances.
	state.Apply(core.StateUpdate{
		CurrentStepIndex: core.Ptr(state.CurrentStepIndex + 1),
		RetryCount:       core.Ptr(0),
	})
	return stageSelectTools
}

func (e *Engine) checkpoint(ctx context.Context, state *core.WorkflowState) {
	if e.checkpointer == nil {
		return
	}
	if err := e.checkpointer.Save(ctx, state.ThreadID, state); err != nil {
		e.logger.Warn("failed to checkpoint thread %s: %v", state.ThreadID, err)
	}
}
