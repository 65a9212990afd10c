// Package knowledge defines the opaque task/step knowledge base contract
// consumed by the state tracker. The core never inspects how a match is
// computed; it only consumes the similarity score and step detail returned.
package knowledge

import "context"

// MatchedStep is a read-only projection of a knowledge base entry. The core
// never mutates it.
type MatchedStep struct {
	StepTitle            string
	StepDescription      string
	ToolsNeeded          []string
	CompletionIndicators []string
	VisualCues           []string
	EstimatedDuration    string
	SafetyNotes          []string
}

// Match is the result of a successful knowledge base lookup.
type Match struct {
	TaskID     string
	StepIndex  int
	Similarity float64
	Detail     MatchedStep
}

// Adapter is the façade the state tracker consumes. Implementations are free
// to back it with embeddings, keyword search, or anything else; the core
// treats similarity as the sole confidence signal.
type Adapter interface {
	// Match returns nil, nil when no step matches cleanedText closely enough
	// to report.
	Match(ctx context.Context, cleanedText string) (*Match, error)
}
