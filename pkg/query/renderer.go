package query

import (
	"fmt"
	"strings"
)

const noStateText = "No active state. Please start a task first."

// Process classifies rawQuery and renders a deterministic answer against
// state. It is a pure function: the same (rawQuery, state) pair always
// yields an identical Result.
func Process(rawQuery string, state StateSnapshot) Result {
	intent := Classify(rawQuery)

	confidence := confidenceClassified
	if intent == IntentUnknown {
		confidence = confidenceUnknown
	}

	text := render(intent, state, rawQuery)

	return Result{
		QueryType:    intent,
		ResponseText: text,
		Confidence:   confidence,
		RawQuery:     rawQuery,
	}
}

func render(intent Intent, state StateSnapshot, rawQuery string) string {
	if !state.Present {
		return noStateText
	}

	switch intent {
	case IntentCurrentStep:
		return renderCurrentStep(state)
	case IntentNextStep:
		return renderNextStep(state)
	case IntentRequiredTools:
		return renderRequiredTools(state)
	case IntentCompletionStatus:
		return renderCompletionStatus(state)
	case IntentProgressOverview:
		return renderProgressOverview(state)
	case IntentHelp:
		return renderHelp(state)
	default:
		return renderUnknown(state, rawQuery)
	}
}

func renderCurrentStep(state StateSnapshot) string {
	text := fmt.Sprintf("You are currently on step %d of task '%s' (confidence: %.2f)",
		state.StepIndex, state.TaskID, state.Similarity)
	if state.HasDetail && state.Detail.StepTitle != "" {
		text += fmt.Sprintf("\n%s: %s", state.Detail.StepTitle, state.Detail.StepDescription)
	}
	return text
}

func renderNextStep(state StateSnapshot) string {
	return fmt.Sprintf("Next step is step %d. Please complete the current step %d first.",
		state.StepIndex+1, state.StepIndex)
}

func renderRequiredTools(state StateSnapshot) string {
	if !state.HasDetail || len(state.Detail.ToolsNeeded) == 0 {
		return "No specific tools have been identified for the current step yet."
	}
	return fmt.Sprintf("Tools needed for this step: %s", strings.Join(state.Detail.ToolsNeeded, ", "))
}

func renderCompletionStatus(state StateSnapshot) string {
	pct := state.StepIndex * 10
	if pct > 100 {
		pct = 100
	}
	return fmt.Sprintf("Estimated progress: %d%% complete (confidence: %.2f)", pct, state.Similarity)
}

func renderProgressOverview(state StateSnapshot) string {
	text := fmt.Sprintf("Task '%s', currently on step %d (confidence: %.2f)",
		state.TaskID, state.StepIndex, state.Similarity)
	if state.HasDetail && state.Detail.StepTitle != "" {
		text += fmt.Sprintf("\nCurrent step: %s", state.Detail.StepTitle)
	}
	return text
}

func renderHelp(state StateSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are on step %d of task '%s'.", state.StepIndex, state.TaskID)
	if state.HasDetail {
		if len(state.Detail.ToolsNeeded) > 0 {
			fmt.Fprintf(&b, "\nTools needed: %s", strings.Join(state.Detail.ToolsNeeded, ", "))
		}
		if state.Detail.EstimatedDuration != "" {
			fmt.Fprintf(&b, "\nEstimated duration: %s", state.Detail.EstimatedDuration)
		}
		if len(state.Detail.SafetyNotes) > 0 {
			fmt.Fprintf(&b, "\nSafety notes: %s", strings.Join(state.Detail.SafetyNotes, "; "))
		}
	}
	return b.String()
}

func renderUnknown(state StateSnapshot, rawQuery string) string {
	return fmt.Sprintf(
		"I'm not sure how to answer '%s'. You are currently on step %d of task '%s'. Try asking about your current step, the next step, required tools, or overall progress.",
		rawQuery, state.StepIndex, state.TaskID,
	)
}
