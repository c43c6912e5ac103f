// Package escalation decides when the automated retry loop must stop and the
// run should terminate with an explanatory answer. Detectors turn workflow
// evidence into weighted signals; the engine scores them against an adaptive
// threshold that shifts with request context.
package escalation

import (
	"fmt"
	"strings"

	"github.com/puntini/puntini/core"
	"github.com/puntini/puntini/logging"
)

// Trigger weights. User frustration dominates; plan complexity alone should
// rarely force an escalation.
var triggerWeights = map[core.Trigger]float64{
	core.TriggerUserFrustration: 0.4,
	core.TriggerBusinessImpact:  0.3,
	core.TriggerErrorPattern:    0.2,
	core.TriggerTechnicalLimits: 0.2,
	core.TriggerRetryThreshold:  0.2,
	core.TriggerComplexitySpike: 0.1,
}

// Severity multipliers applied on top of trigger weight and confidence.
var severityMultipliers = map[core.Severity]float64{
	core.SeverityLow:      0.5,
	core.SeverityMedium:   1.0,
	core.SeverityHigh:     1.5,
	core.SeverityCritical: 2.0,
}

const (
	// ReasonMaxRetries is the escalation reason when the retry ceiling is hit.
	ReasonMaxRetries = "max_retries_reached"

	baseRetryCeiling   = 3
	baseScoreThreshold = 0.7
)

// Metadata flags that shift the adaptive thresholds per request.
const (
	MetaHighValueUser   = "high_value_user"
	MetaSimpleOperation = "simple_operation"
	MetaBusinessImpact  = "business_impact"
)

// Decision is the outcome of one escalation check.
type Decision struct {
	Escalate bool
	Reason   string
	Score    float64
	Evidence map[string]any
	Signals  []core.EscalationSignal
}

// Options configures an Engine.
type Options struct {
	Logger logging.Logger
}

// Engine runs the detectors and scores their signals.
type Engine struct {
	logger logging.Logger
}

// New constructs an escalation Engine.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{logger: opts.Logger}
}

// ShouldEscalate runs all detectors over the state and scores the signals.
// With no signal fired, it falls back to the plain adaptive retry ceiling.
func (e *Engine) ShouldEscalate(state *core.WorkflowState) Decision {
	signals := e.Detect(state)

	if len(signals) == 0 {
		if state.RetryCount >= e.RetryCeiling(state) {
			return Decision{
				Escalate: true,
				Reason:   ReasonMaxRetries,
				Evidence: map[string]any{"retry_count": state.RetryCount, "retry_ceiling": e.RetryCeiling(state)},
			}
		}
		return Decision{}
	}

	score := 0.0
	strongest := signals[0]
	strongestContribution := -1.0
	for _, signal := range signals {
		contribution := triggerWeights[signal.Trigger] * signal.Confidence * severityMultipliers[signal.Severity]
		score += contribution
		if contribution > strongestContribution {
			strongest = signal
			strongestContribution = contribution
		}
	}
	if score > 1.0 {
		score = 1.0
	}

	threshold := e.scoreThreshold(state)
	decision := Decision{
		Score:   score,
		Signals: signals,
		Evidence: map[string]any{
			"score":     score,
			"threshold": threshold,
			"signals":   len(signals),
		},
	}
	if score >= threshold {
		decision.Escalate = true
		decision.Reason = string(strongest.Trigger)
		e.logger.Info("escalating: score %.2f >= threshold %.2f (%s)", score, threshold, decision.Reason)
	}
	return decision
}

// RetryCeiling returns the per-request retry allowance: base 3, one more for
// flagged high-value users, one fewer for flagged simple operations.
func (e *Engine) RetryCeiling(state *core.WorkflowState) int {
	ceiling := baseRetryCeiling
	if metaFlag(state, MetaHighValueUser) {
		ceiling++
	}
	if metaFlag(state, MetaSimpleOperation) {
		ceiling--
	}
	if ceiling < 1 {
		ceiling = 1
	}
	return ceiling
}

// scoreThreshold shifts with the same context flags as the retry ceiling:
// high-value users get more automated patience, simple operations less.
func (e *Engine) scoreThreshold(state *core.WorkflowState) float64 {
	threshold := baseScoreThreshold
	if metaFlag(state, MetaHighValueUser) {
		threshold += 0.1
	}
	if metaFlag(state, MetaSimpleOperation) {
		threshold -= 0.1
	}
	return threshold
}

func metaFlag(state *core.WorkflowState, key string) bool {
	flag, _ := state.Metadata[key].(bool)
	return flag
}

// Detect runs every detector and collects the signals that fired.
func (e *Engine) Detect(state *core.WorkflowState) []core.EscalationSignal {
	var signals []core.EscalationSignal
	for _, detect := range []func(*core.WorkflowState) *core.EscalationSignal{
		detectErrorPattern,
		detectComplexitySpike,
		detectUserFrustration,
		detectBusinessImpact,
	} {
		if signal := detect(state); signal != nil {
			signals = append(signals, *signal)
		}
	}
	return signals
}

// detectErrorPattern inspects the tail of the error history. Three identical
// trailing errors signal a hard loop; repeated validation failures signal a
// softer cascade.
func detectErrorPattern(state *core.WorkflowState) *core.EscalationSignal {
	history := state.ErrorHistory
	if len(history) >= 3 {
		tail := history[len(history)-3:]
		if tail[0] == tail[1] && tail[1] == tail[2] {
			return &core.EscalationSignal{
				Trigger:    core.TriggerErrorPattern,
				Confidence: 0.9,
				Severity:   core.SeverityHigh,
				Evidence: map[string]any{
					"pattern_type": "identical_repeated",
					"error":        tail[2],
				},
			}
		}
	}
	if len(history) >= 2 {
		validationCount := 0
		start := len(history) - 3
		if start < 0 {
			start = 0
		}
		for _, msg := range history[start:] {
			if strings.Contains(strings.ToLower(msg), "validation") {
				validationCount++
			}
		}
		if validationCount >= 2 {
			return &core.EscalationSignal{
				Trigger:    core.TriggerErrorPattern,
				Confidence: 0.8,
				Severity:   core.SeverityMedium,
				Evidence: map[string]any{
					"pattern_type":      "validation_cascade",
					"validation_errors": validationCount,
				},
			}
		}
	}
	return nil
}

// detectComplexitySpike fires when the request has grown past what one
// automated pass handles well.
func detectComplexitySpike(state *core.WorkflowState) *core.EscalationSignal {
	planSteps := len(state.ExecutionPlan)
	pending := len(state.PendingPatches)
	if planSteps <= 6 && pending <= 10 {
		return nil
	}
	return &core.EscalationSignal{
		Trigger:    core.TriggerComplexitySpike,
		Confidence: 0.7,
		Severity:   core.SeverityMedium,
		Evidence: map[string]any{
			"plan_steps":      planSteps,
			"pending_patches": pending,
		},
	}
}

// frustrationMarkers are scanned lexically over the conversation tail.
var frustrationMarkers = []string{
	"frustrated", "annoying", "useless", "ridiculous", "angry",
	"not working", "still wrong", "give up", "this is wrong", "!!!",
}

// detectUserFrustration applies a lexical heuristic over recent conversation
// turns. Two or more markers read as high severity, one as medium.
func detectUserFrustration(state *core.WorkflowState) *core.EscalationSignal {
	recent := state.Conversation
	if len(recent) > 5 {
		recent = recent[len(recent)-5:]
	}
	hits := 0
	var matched []string
	for _, turn := range recent {
		lower := strings.ToLower(turn)
		for _, marker := range frustrationMarkers {
			if strings.Contains(lower, marker) {
				hits++
				matched = append(matched, marker)
			}
		}
	}
	switch {
	case hits >= 2:
		return &core.EscalationSignal{
			Trigger:    core.TriggerUserFrustration,
			Confidence: 0.8,
			Severity:   core.SeverityHigh,
			Evidence:   map[string]any{"markers": matched},
		}
	case hits == 1:
		return &core.EscalationSignal{
			Trigger:    core.TriggerUserFrustration,
			Confidence: 0.6,
			Severity:   core.SeverityMedium,
			Evidence:   map[string]any{"markers": matched},
		}
	}
	return nil
}

// detectBusinessImpact reads the caller-supplied impact flag from request
// metadata.
func detectBusinessImpact(state *core.WorkflowState) *core.EscalationSignal {
	impact, _ := state.Metadata[MetaBusinessImpact].(string)
	switch strings.ToLower(impact) {
	case "critical":
		return &core.EscalationSignal{
			Trigger:    core.TriggerBusinessImpact,
			Confidence: 0.9,
			Severity:   core.SeverityCritical,
			Evidence:   map[string]any{"impact": impact},
		}
	case "high":
		return &core.EscalationSignal{
			Trigger:    core.TriggerBusinessImpact,
			Confidence: 0.8,
			Severity:   core.SeverityHigh,
			Evidence:   map[string]any{"impact": impact},
		}
	}
	return nil
}

// Explain renders a short human-readable account of a decision for the final
// answer.
func Explain(d Decision) string {
	if !d.Escalate {
		return ""
	}
	parts := []string{fmt.Sprintf("escalated (%s)", d.Reason)}
	for _, signal := range d.Signals {
		parts = append(parts, fmt.Sprintf("%s [%s, confidence %.2f]", signal.Trigger, signal.Severity, signal.Confidence))
	}
	return strings.Join(parts, "; ")
}
