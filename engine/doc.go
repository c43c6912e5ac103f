// Package engine implements the orchestration state machine that turns a
// natural language goal into applied graph operations and a final answer.
//
// One Process call steps a WorkflowState through the fixed pipeline
//
//	Plan -> SelectTools -> Extract -> Validate -> Execute -> Evaluate
//
// with Evaluate holding the only conditional edge: retry the current step,
// advance to the next one, or terminate in Answer. Stage failures never
// propagate out of the engine; they become error history that Evaluate and
// the escalation engine reason over, and a final answer is always produced.
package engine
