// Package query classifies user natural-language queries into a fixed
// intent set and renders deterministic templated answers from a state
// snapshot. It has no dependency on the state tracker or fallback
// orchestrator packages — it only consumes a StateSnapshot value.
package query

import "github.com/yitzuliu/tracker/pkg/knowledge"

// Intent is one of the fixed classification outcomes.
type Intent string

const (
	IntentCurrentStep      Intent = "CURRENT_STEP"
	IntentNextStep         Intent = "NEXT_STEP"
	IntentRequiredTools    Intent = "REQUIRED_TOOLS"
	IntentCompletionStatus Intent = "COMPLETION_STATUS"
	IntentProgressOverview Intent = "PROGRESS_OVERVIEW"
	IntentHelp             Intent = "HELP"
	IntentUnknown          Intent = "UNKNOWN"
)

// StateSnapshot is the read-only view of tracker state the query processor
// renders against. The tracker package's StateRecord is adapted into this
// shape at the call site so query stays independent of tracker.
type StateSnapshot struct {
	Present    bool
	TaskID     string
	StepIndex  int
	Similarity float64
	Detail     knowledge.MatchedStep
	HasDetail  bool
}

// Result is the outcome of classifying and rendering one query.
type Result struct {
	QueryType    Intent
	ResponseText string
	Confidence   float64
	RawQuery     string
}

const (
	confidenceClassified = 0.9
	confidenceUnknown    = 0.3
)
