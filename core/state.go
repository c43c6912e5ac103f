package core

// DefaultPlan is the fixed fallback execution plan substituted when the
// planning collaborator returns malformed output.
var DefaultPlan = []string{
	"Extract entities",
	"Validate data",
	"Apply changes",
	"Generate response",
}

// AppliedOperation records one successfully executed patch for the final
// answer and for processing results.
type AppliedOperation struct {
	Op     string `json:"op"`
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

// FinalResult is the terminal outcome of one orchestrated request. A
// FinalResult is always produced, even in the worst case (an apology-style
// response embedding the last error).
type FinalResult struct {
	Response          string         `json:"response"`
	Success           bool           `json:"success"`
	ProcessingResults map[string]any `json:"processing_results"`
}

// WorkflowState is the mutable record threading one user request through the
// orchestration pipeline. It is request-scoped: created (or resumed by thread
// id) at the start of Process and discarded after the final answer.
//
// Invariants:
//   - 0 <= CurrentStepIndex <= len(ExecutionPlan)
//   - RetryCount resets to 0 exactly when CurrentStepIndex advances
//   - Escalated is monotonic within one request: once true, never false again
type WorkflowState struct {
	ThreadID string `json:"thread_id"`
	UserGoal string `json:"user_goal"`

	// Conversation holds prior user utterances for this thread; the
	// frustration detector reads it.
	Conversation []string `json:"conversation,omitempty"`

	// Metadata carries request context flags consulted by the adaptive
	// thresholds (e.g. "high_value_user", "simple_operation").
	Metadata map[string]any `json:"metadata,omitempty"`

	ExecutionPlan    []string `json:"execution_plan"`
	CurrentStepIndex int      `json:"current_step_index"`
	RetryCount       int      `json:"retry_count"`

	LastError    string   `json:"last_error,omitempty"`
	ErrorHistory []string `json:"error_history"`

	PendingPatches []Patch        `json:"pending_patches"`
	SelectedTools  []string       `json:"selected_tools"`
	ToolOutputs    map[string]any `json:"tool_outputs"`

	ContextLevel      int                `json:"context_level"`
	EscalationSignals []EscalationSignal `json:"escalation_signals"`
	Escalated         bool               `json:"escalated"`
	EscalationReason  string             `json:"escalation_reason,omitempty"`

	AppliedOperations []AppliedOperation `json:"applied_operations"`
	FinalResult       *FinalResult       `json:"final_result,omitempty"`
}

// NewWorkflowState initializes a fresh request state for the given goal.
func NewWorkflowState(threadID, goal string) *WorkflowState {
	return &WorkflowState{
		ThreadID:     threadID,
		UserGoal:     goal,
		Conversation: []string{goal},
		ToolOutputs:  map[string]any{},
	}
}

// CurrentStep returns the active plan step description, or "" when the plan
// is empty or the index sits past the last step.
func (s *WorkflowState) CurrentStep() string {
	if s.CurrentStepIndex >= 0 && s.CurrentStepIndex < len(s.ExecutionPlan) {
		return s.ExecutionPlan[s.CurrentStepIndex]
	}
	return ""
}

// OnLastStep reports whether CurrentStepIndex points at the final plan step.
func (s *WorkflowState) OnLastStep() bool {
	return len(s.ExecutionPlan) == 0 || s.CurrentStepIndex >= len(s.ExecutionPlan)-1
}

// StateUpdate is the typed partial update a pipeline stage returns. Apply
// merges it into WorkflowState under explicit per-field rules; there is no
// implicit map merging anywhere else.
//
// Merge rules:
//   - scalar pointer fields overwrite when non-nil
//   - AppendErrors appends to ErrorHistory (append-only)
//   - slice/map fields replace the previous value wholesale when non-nil
//   - Escalated may only transition false->true; a false update is ignored
//     once the state has escalated
type StateUpdate struct {
	UserGoal         *string
	ExecutionPlan    []string
	CurrentStepIndex *int
	RetryCount       *int

	LastError      *string // set to the empty string to clear
	AppendErrors   []string
	PendingPatches []Patch
	SelectedTools  []string
	ToolOutputs    map[string]any

	ContextLevel      *int
	EscalationSignals []EscalationSignal
	Escalated         *bool
	EscalationReason  *string

	AppliedOperations []AppliedOperation
	FinalResult       *FinalResult
}

// Apply merges the update into the state under the documented rules.
func (s *WorkflowState) Apply(u StateUpdate) {
	if u.UserGoal != nil {
		s.UserGoal = *u.UserGoal
	}
	if u.ExecutionPlan != nil {
		s.ExecutionPlan = u.ExecutionPlan
	}
	if u.CurrentStepIndex != nil {
		s.CurrentStepIndex = *u.CurrentStepIndex
	}
	if u.RetryCount != nil {
		s.RetryCount = *u.RetryCount
	}
	if u.LastError != nil {
		s.LastError = *u.LastError
	}
	s.ErrorHistory = append(s.ErrorHistory, u.AppendErrors...)
	if u.PendingPatches != nil {
		s.PendingPatches = u.PendingPatches
	}
	if u.SelectedTools != nil {
		s.SelectedTools = u.SelectedTools
	}
	if u.ToolOutputs != nil {
		s.ToolOutputs = u.ToolOutputs
	}
	if u.ContextLevel != nil {
		s.ContextLevel = *u.ContextLevel
	}
	if u.EscalationSignals != nil {
		s.EscalationSignals = u.EscalationSignals
	}
	if u.Escalated != nil && *u.Escalated {
		// Monotonic: only the false->true transition is applied.
		s.Escalated = true
	}
	if u.EscalationReason != nil {
		s.EscalationReason = *u.EscalationReason
	}
	if u.AppliedOperations != nil {
		s.AppliedOperations = u.AppliedOperations
	}
	if u.FinalResult != nil {
		s.FinalResult = u.FinalResult
	}
}

// Ptr is a small helper for building StateUpdate literals.
func Ptr[T any](v T) *T { return &v }
