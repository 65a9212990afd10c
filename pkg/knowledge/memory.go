package knowledge

import (
	"context"
	"sort"
	"strings"
)

// step is a single registered knowledge base entry keyed by free-text
// keywords, used by MemoryAdapter's naive scoring.
type step struct {
	taskID     string
	stepIndex  int
	keywords   []string
	detail     MatchedStep
}

// MemoryAdapter is a simple in-process Adapter backed by keyword overlap
// scoring. It exists as a runnable reference implementation and test fixture;
// production deployments are expected to supply their own Adapter backed by
// a real embedding or search index.
type MemoryAdapter struct {
	steps []step
}

// NewMemoryAdapter creates an empty in-memory knowledge base.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{}
}

// Register adds a step definition, matched by keyword overlap against
// incoming observation text.
func (m *MemoryAdapter) Register(taskID string, stepIndex int, keywords []string, detail MatchedStep) {
	m.steps = append(m.steps, step{taskID: taskID, stepIndex: stepIndex, keywords: keywords, detail: detail})
}

// Match scores every registered step by the fraction of its keywords present
// in cleanedText and returns the best-scoring step, or nil if nothing scores
// above zero.
func (m *MemoryAdapter) Match(_ context.Context, cleanedText string) (*Match, error) {
	lower := strings.ToLower(cleanedText)

	var best *step
	var bestScore float64
	for i := range m.steps {
		s := &m.steps[i]
		if len(s.keywords) == 0 {
			continue
		}
		hits := 0
		for _, kw := range s.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				hits++
			}
		}
		score := float64(hits) / float64(len(s.keywords))
		if score > bestScore {
			bestScore = score
			best = s
		}
	}

	if best == nil || bestScore <= 0 {
		return nil, nil
	}

	return &Match{
		TaskID:     best.taskID,
		StepIndex:  best.stepIndex,
		Similarity: clamp01(bestScore),
		Detail:     best.detail,
	}, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sortedKeys is a small helper retained for debugging/registry introspection.
func (m *MemoryAdapter) sortedKeys() []string {
	keys := make([]string, 0, len(m.steps))
	for _, s := range m.steps {
		keys = append(keys, s.taskID)
	}
	sort.Strings(keys)
	return keys
}
