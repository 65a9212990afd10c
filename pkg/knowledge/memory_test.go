package knowledge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryAdapter_MatchBestScoring(t *testing.T) {
	kb := NewMemoryAdapter()
	kb.Register("coffee", 1, []string{"grinder", "beans"}, MatchedStep{StepTitle: "Grind beans"})
	kb.Register("coffee", 2, []string{"pour", "water", "filter"}, MatchedStep{StepTitle: "Pour water"})

	got, err := kb.Match(context.Background(), "pouring hot water into the filter")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "coffee", got.TaskID)
	assert.Equal(t, 2, got.StepIndex)
	assert.InDelta(t, 1.0, got.Similarity, 1e-9)
}

func TestMemoryAdapter_NoMatch(t *testing.T) {
	kb := NewMemoryAdapter()
	kb.Register("coffee", 1, []string{"grinder", "beans"}, MatchedStep{})

	got, err := kb.Match(context.Background(), "something entirely unrelated")
	require.NoError(t, err)
	assert.Nil(t, got)
}
