// Package fallback implements the decision engine and orchestration that
// transparently delegates a query to an external VLM when the state
// tracker's own estimate cannot answer it confidently, and assembles the
// unified response shape callers cannot distinguish from a template answer.
package fallback

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/yitzuliu/tracker/pkg/query"
)

// DecisionState is the minimal state-snapshot view the decision engine
// needs; the orchestrator builds one from the tracker's current state.
type DecisionState struct {
	Present        bool
	Confidence     float64
	HasCurrentStep bool
}

// DecisionStats mirrors the operator-facing statistics surface.
type DecisionStats struct {
	TotalDecisions      int
	FallbackDecisions   int
	TemplateDecisions   int
	FallbackRatePercent float64
	ConfidenceThreshold float64
}

// DecisionEngine decides, for a classified query and a state snapshot,
// whether to use the VLM fallback or render a template answer.
type DecisionEngine struct {
	mu                         sync.Mutex
	confidenceThreshold        float64
	enableUnknownQueryFallback bool
	enableNoStateFallback      bool
	decisionCount              int
	fallbackCount              int
	logger                     *slog.Logger
}

// Option configures optional DecisionEngine behavior at construction time.
type Option func(*DecisionEngine)

// WithUnknownQueryFallback toggles whether an unclassifiable query triggers
// the VLM fallback (the default). When disabled, an unknown query whose
// state is present and confident enough gets a template decision at once;
// the current-step check is not applied to it.
func WithUnknownQueryFallback(enabled bool) Option {
	return func(d *DecisionEngine) { d.enableUnknownQueryFallback = enabled }
}

// WithNoStateFallback toggles whether having no tracked state at all
// triggers the VLM fallback (the default). When disabled, an absent state
// gets a template decision at once; the remaining conditions are not checked.
func WithNoStateFallback(enabled bool) Option {
	return func(d *DecisionEngine) { d.enableNoStateFallback = enabled }
}

// NewDecisionEngine constructs a DecisionEngine with the given confidence
// threshold (τ in SPEC_FULL §4.5). Both fallback toggles default to enabled,
// matching the config package's resolved defaults.
func NewDecisionEngine(confidenceThreshold float64, logger *slog.Logger, opts ...Option) *DecisionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	d := &DecisionEngine{
		confidenceThreshold:        confidenceThreshold,
		enableUnknownQueryFallback: true,
		enableNoStateFallback:      true,
		logger:                     logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	logger.Info("fallback: decision engine initialized",
		"confidence_threshold", confidenceThreshold,
		"enable_unknown_query_fallback", d.enableUnknownQueryFallback,
		"enable_no_state_fallback", d.enableNoStateFallback,
	)
	return d
}

// ShouldUseFallback implements the four-condition decision predicate. It
// returns the decision and a human-readable reason, logged for operators but
// never surfaced to end users.
func (d *DecisionEngine) ShouldUseFallback(state DecisionState, intent query.Intent) (bool, string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.decisionCount++

	use, reason := decide(state, intent, d.confidenceThreshold, d.enableUnknownQueryFallback, d.enableNoStateFallback)
	if use {
		d.fallbackCount++
	}

	d.logger.Debug("fallback: decision made",
		"decision_number", d.decisionCount,
		"use_fallback", use,
		"reason", reason,
	)

	return use, reason
}

func decide(state DecisionState, intent query.Intent, threshold float64, enableUnknownQueryFallback, enableNoStateFallback bool) (bool, string) {
	if !state.Present {
		if !enableNoStateFallback {
			return false, "no state data available, fallback disabled"
		}
		return true, "no state data available"
	}
	if state.Confidence < threshold {
		return true, fmt.Sprintf("confidence too low: %.3f < %.3f", state.Confidence, threshold)
	}
	if intent == query.IntentUnknown {
		if !enableUnknownQueryFallback {
			return false, "query type unknown, fallback disabled"
		}
		return true, "query type unknown"
	}
	if !state.HasCurrentStep {
		return true, "no current step available"
	}
	return false, fmt.Sprintf("template response: confidence=%.3f, type=%s", state.Confidence, intent)
}

// Statistics reports decision counters for operators.
func (d *DecisionEngine) Statistics() DecisionStats {
	d.mu.Lock()
	defer d.mu.Unlock()

	rate := 0.0
	if d.decisionCount > 0 {
		rate = float64(d.fallbackCount) / float64(d.decisionCount) * 100
	}

	return DecisionStats{
		TotalDecisions:      d.decisionCount,
		FallbackDecisions:   d.fallbackCount,
		TemplateDecisions:   d.decisionCount - d.fallbackCount,
		FallbackRatePercent: round2(rate),
		ConfidenceThreshold: d.confidenceThreshold,
	}
}

// ResetStatistics zeroes the decision counters.
func (d *DecisionEngine) ResetStatistics() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decisionCount = 0
	d.fallbackCount = 0
	d.logger.Info("fallback: decision statistics reset")
}

// UpdateThreshold live-updates the confidence threshold used by future
// decisions. This is an explicit operator action, not automatic tuning.
func (d *DecisionEngine) UpdateThreshold(newThreshold float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	old := d.confidenceThreshold
	d.confidenceThreshold = newThreshold
	d.logger.Info("fallback: confidence threshold updated", "old", old, "new", newThreshold)
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
