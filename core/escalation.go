package core

// Trigger categorizes the condition that produced an escalation signal.
type Trigger string

const (
	// TriggerRetryThreshold fires when the plain retry ceiling is exceeded.
	TriggerRetryThreshold Trigger = "retry_threshold"
	// TriggerErrorPattern fires on repeated or cascading error shapes.
	TriggerErrorPattern Trigger = "error_pattern"
	// TriggerComplexitySpike fires when a request grows beyond the automated
	// loop's comfortable envelope (plan length, patch volume).
	TriggerComplexitySpike Trigger = "complexity_spike"
	// TriggerUserFrustration fires on lexical frustration indicators in the
	// conversation.
	TriggerUserFrustration Trigger = "user_frustration"
	// TriggerBusinessImpact fires when request context flags a high-stakes
	// operation.
	TriggerBusinessImpact Trigger = "business_impact"
	// TriggerTechnicalLimits fires on hard capability boundaries.
	TriggerTechnicalLimits Trigger = "technical_limits"
)

// Severity grades an escalation signal.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// EscalationSignal is one detector's vote that automated retries should stop.
// Confidence is in [0, 1]; Evidence carries detector-specific context that is
// embedded in the final human-readable answer.
type EscalationSignal struct {
	Trigger    Trigger        `json:"trigger"`
	Confidence float64        `json:"confidence"`
	Evidence   map[string]any `json:"evidence"`
	Severity   Severity       `json:"severity"`
}
