package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzuliu/tracker/pkg/knowledge"
)

// fixedMatchAdapter returns a pre-programmed sequence of matches, one per
// call, mirroring how a real KB would be driven in a scripted test.
type fixedMatchAdapter struct {
	matches []*knowledge.Match
	calls   int
}

func (f *fixedMatchAdapter) Match(context.Context, string) (*knowledge.Match, error) {
	if f.calls >= len(f.matches) {
		return nil, nil
	}
	m := f.matches[f.calls]
	f.calls++
	return m, nil
}

func newTestClock(start time.Time) func() time.Time {
	t := start
	return func() time.Time {
		cur := t
		t = t.Add(time.Millisecond)
		return cur
	}
}

func TestIngest_LowConfidenceIgnored(t *testing.T) {
	kb := &fixedMatchAdapter{matches: []*knowledge.Match{
		{TaskID: "coffee", StepIndex: 2, Similarity: 0.32},
	}}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	updated, err := tr.Ingest(context.Background(), "something is happening")
	require.NoError(t, err)
	assert.False(t, updated)

	summary := tr.MetricsSummary()
	assert.Equal(t, 1, summary.ConsecutiveLowCount)
	assert.Equal(t, 1, summary.ActionHistogram[ActionIgnore])

	assert.Empty(t, tr.WindowRecords())
}

func TestIngest_HighConfidenceAccepted(t *testing.T) {
	kb := &fixedMatchAdapter{matches: []*knowledge.Match{
		{TaskID: "coffee", StepIndex: 1, Similarity: 0.82},
	}}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	updated, err := tr.Ingest(context.Background(), "grinding the coffee beans")
	require.NoError(t, err)
	assert.True(t, updated)

	state, ok := tr.CurrentState()
	require.True(t, ok)
	assert.Equal(t, 1, state.StepIndex)
	assert.Len(t, tr.WindowRecords(), 1)
}

func TestIngest_StepJumpGuardRejectsLargeForwardJump(t *testing.T) {
	kb := &fixedMatchAdapter{matches: []*knowledge.Match{
		{TaskID: "coffee", StepIndex: 1, Similarity: 0.82},
		{TaskID: "coffee", StepIndex: 6, Similarity: 0.85},
	}}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	_, err := tr.Ingest(context.Background(), "grinding the coffee beans")
	require.NoError(t, err)

	updated, err := tr.Ingest(context.Background(), "pouring hot water slowly now")
	require.NoError(t, err)
	assert.False(t, updated)

	state, ok := tr.CurrentState()
	require.True(t, ok)
	assert.Equal(t, 1, state.StepIndex)
	assert.Len(t, tr.WindowRecords(), 1)
}

func TestIngest_ConsistencyGuardAllowsBackwardJump(t *testing.T) {
	kb := &fixedMatchAdapter{matches: []*knowledge.Match{
		{TaskID: "coffee", StepIndex: 4, Similarity: 0.82},
		{TaskID: "coffee", StepIndex: 1, Similarity: 0.85},
	}}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	_, err := tr.Ingest(context.Background(), "pouring water over the grounds")
	require.NoError(t, err)

	updated, err := tr.Ingest(context.Background(), "grinding fresh coffee beans now")
	require.NoError(t, err)
	assert.True(t, updated)

	state, ok := tr.CurrentState()
	require.True(t, ok)
	assert.Equal(t, 1, state.StepIndex)
}

func TestIngest_SlidingWindowCap(t *testing.T) {
	kb := &fixedMatchAdapter{matches: []*knowledge.Match{
		{TaskID: "coffee", StepIndex: 1, Similarity: 0.82},
		{TaskID: "coffee", StepIndex: 2, Similarity: 0.83},
		{TaskID: "coffee", StepIndex: 3, Similarity: 0.84},
		{TaskID: "coffee", StepIndex: 3, Similarity: 0.85},
		{TaskID: "coffee", StepIndex: 3, Similarity: 0.86},
	}}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))), WithWindowMax(3))

	for i := 0; i < 5; i++ {
		_, err := tr.Ingest(context.Background(), "a realistic observation text here")
		require.NoError(t, err)
	}

	window := tr.WindowRecords()
	assert.Len(t, window, 3)
	for _, rec := range window {
		assert.Equal(t, 3, rec.StepIndex)
	}
	assert.Equal(t, 2, tr.MemoryStats().CleanupCount)
}

func TestIngest_NoKBMatchIsRecordedAsFailure(t *testing.T) {
	kb := &fixedMatchAdapter{}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	updated, err := tr.Ingest(context.Background(), "an observation the kb will not match")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 1, tr.MemoryStats().FailureCount)
}

func TestIngest_RejectedInputIsRecordedAsFailure(t *testing.T) {
	tr := New(&fixedMatchAdapter{}, WithClock(newTestClock(time.Unix(0, 0))))

	updated, err := tr.Ingest(context.Background(), "hi")
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, 1, tr.MemoryStats().FailureCount)
}

func TestConsecutiveLowCount_ResetsOnUpdate(t *testing.T) {
	kb := &fixedMatchAdapter{matches: []*knowledge.Match{
		{TaskID: "coffee", StepIndex: 1, Similarity: 0.2},
		{TaskID: "coffee", StepIndex: 1, Similarity: 0.82},
	}}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	_, err := tr.Ingest(context.Background(), "first low confidence observation")
	require.NoError(t, err)
	assert.Equal(t, 1, tr.MetricsSummary().ConsecutiveLowCount)

	_, err = tr.Ingest(context.Background(), "second confident observation here")
	require.NoError(t, err)
	assert.Equal(t, 0, tr.MetricsSummary().ConsecutiveLowCount)
}

func TestConsecutiveLowCount_ResetsAtLimit(t *testing.T) {
	matches := make([]*knowledge.Match, 5)
	for i := range matches {
		matches[i] = &knowledge.Match{TaskID: "coffee", StepIndex: 1, Similarity: 0.1}
	}
	kb := &fixedMatchAdapter{matches: matches}
	tr := New(kb, WithClock(newTestClock(time.Unix(0, 0))))

	for i := 0; i < 5; i++ {
		_, err := tr.Ingest(context.Background(), "a repeated low confidence text")
		require.NoError(t, err)
	}

	assert.Equal(t, 0, tr.MetricsSummary().ConsecutiveLowCount)
}

func TestEstimatedBytes_MatchesFixedFormula(t *testing.T) {
	window := []OptimizedHistoryRecord{{TaskID: "coffee"}}
	assert.Equal(t, 56+24+2*len("coffee")+28+50, estimatedBytes(window))
}
