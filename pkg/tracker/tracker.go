// Package tracker owns the current procedural-task state estimate: it
// ingests observations, runs them through the confidence-tiered update
// policy, and maintains a memory-capped sliding window plus processing
// metrics used for consistency checks and operator-facing analytics.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/yitzuliu/tracker/pkg/knowledge"
	"github.com/yitzuliu/tracker/pkg/normalize"
)

const (
	tauHigh = 0.70
	tauMed  = 0.40

	defaultWindowMax      = 50
	defaultByteMax        = 1 << 20 // 1 MiB
	defaultMetricsMax     = 100
	historyCap            = 10
	consistencyLookback   = 5
	consistencyMaxForward = 3
	consecutiveLowLimit   = 5
	inputPreviewMax       = 100
)

// Option configures a Tracker at construction time.
type Option func(*Tracker)

// WithWindowMax overrides the sliding-window count cap (W_max).
func WithWindowMax(n int) Option {
	return func(t *Tracker) { t.windowMax = n }
}

// WithByteMax overrides the sliding-window byte cap (B_max).
func WithByteMax(n int) Option {
	return func(t *Tracker) { t.byteMax = n }
}

// WithMetricsMax overrides how many ProcessingMetric entries are retained.
func WithMetricsMax(n int) Option {
	return func(t *Tracker) { t.metricsMax = n }
}

// WithLogger overrides the tracker's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

// WithClock overrides the tracker's time source; intended for deterministic
// tests.
func WithClock(clock func() time.Time) Option {
	return func(t *Tracker) { t.clock = clock }
}

// Tracker owns the current state, sliding window, and processing metrics for
// a single procedural task session. All exported methods are safe for
// concurrent use.
type Tracker struct {
	mu sync.RWMutex

	kb     knowledge.Adapter
	logger *slog.Logger
	clock  func() time.Time

	windowMax  int
	byteMax    int
	metricsMax int

	current *StateRecord
	history []StateRecord
	window  []OptimizedHistoryRecord
	metrics []ProcessingMetric

	failureCount        int
	cleanupCount        int
	consecutiveLowCount int

	lastImage       []byte
	lastImageFormat string
}

// New constructs a Tracker backed by the given knowledge base adapter.
func New(kb knowledge.Adapter, opts ...Option) *Tracker {
	t := &Tracker{
		kb:         kb,
		logger:     slog.Default(),
		clock:      time.Now,
		windowMax:  defaultWindowMax,
		byteMax:    defaultByteMax,
		metricsMax: defaultMetricsMax,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Ingest processes one observation's text. It returns true iff the current
// state changed as a result. Ingest never returns an error to the caller for
// expected conditions (rejected input, no KB match, failed consistency
// guard) — those are recorded internally as metrics. A recovered panic is
// likewise swallowed and recorded as a failure, matching the source system's
// catch-all ingest boundary.
func (t *Tracker) Ingest(ctx context.Context, rawText string) (updated bool, err error) {
	start := t.clock()

	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("tracker: recovered panic during ingest", "panic", r)
			t.mu.Lock()
			t.recordFailureLocked(start, rawText, 0, TierLow)
			t.mu.Unlock()
			updated, err = false, nil
		}
	}()

	cleaned, ok := normalize.Normalize(rawText)
	if !ok {
		t.mu.Lock()
		t.recordFailureLocked(start, rawText, 0, TierLow)
		t.mu.Unlock()
		return false, nil
	}

	match, matchErr := t.kb.Match(ctx, cleaned)
	if matchErr != nil {
		t.logger.Warn("tracker: knowledge base match failed", "error", matchErr)
	}
	if match == nil {
		t.mu.Lock()
		t.recordFailureLocked(start, cleaned, 0, TierLow)
		t.mu.Unlock()
		return false, nil
	}

	tier := classifyTier(match.Similarity)

	t.mu.Lock()
	defer t.mu.Unlock()

	shouldUpdate, action := t.decideUpdateLocked(tier, match.Similarity)

	changed := false
	if shouldUpdate {
		if t.consistencyGuardLocked(match.TaskID, match.StepIndex) {
			record := StateRecord{
				Timestamp:         start,
				CleanedText:       cleaned,
				TaskID:            match.TaskID,
				StepIndex:         match.StepIndex,
				Similarity:        match.Similarity,
				MatchedStepDetail: match.Detail,
			}
			t.applyUpdateLocked(record)
			action = ActionUpdate
			changed = true
		} else {
			action = ActionObserve
		}
	}

	if action == ActionIgnore && tier == TierLow {
		t.consecutiveLowCount++
		if t.consecutiveLowCount >= consecutiveLowLimit {
			t.logger.Warn("tracker: consecutive low-confidence observations", "count", t.consecutiveLowCount)
			t.consecutiveLowCount = 0
		}
	}

	t.appendMetricLocked(ProcessingMetric{
		Timestamp:           start,
		InputPreview:        preview(cleaned),
		Similarity:          match.Similarity,
		LatencyMS:           latencyMS(t.clock(), start),
		Tier:                tier,
		Action:              action,
		TaskID:              match.TaskID,
		StepIndex:            match.StepIndex,
		HasTaskStep:         true,
		ConsecutiveLowCount: t.consecutiveLowCount,
	})

	return changed, nil
}

// decideUpdateLocked implements the HIGH/MEDIUM/LOW update policy. The
// returned action is provisional: ActionObserve/ActionIgnore may still be
// overwritten to ActionUpdate by the caller once the consistency guard has
// run.
func (t *Tracker) decideUpdateLocked(tier Tier, similarity float64) (shouldUpdate bool, action Action) {
	switch tier {
	case TierHigh:
		return true, ActionObserve
	case TierMedium:
		if len(t.window) == 0 {
			return false, ActionObserve
		}
		last := t.window[len(t.window)-1]
		if similarity > 0.8*last.Similarity {
			return true, ActionObserve
		}
		return false, ActionObserve
	default: // TierLow
		return false, ActionIgnore
	}
}

// consistencyGuardLocked rejects large forward jumps in step index within
// the same task, looking at the last few sliding-window entries.
func (t *Tracker) consistencyGuardLocked(taskID string, stepIndex int) bool {
	lookback := t.window
	if len(lookback) > consistencyLookback {
		lookback = lookback[len(lookback)-consistencyLookback:]
	}

	lastStep, found := -1, false
	for _, rec := range lookback {
		if rec.TaskID == taskID {
			lastStep = rec.StepIndex
			found = true
		}
	}
	if !found {
		return true
	}
	if stepIndex-lastStep > consistencyMaxForward {
		return false
	}
	return true
}

func (t *Tracker) applyUpdateLocked(record StateRecord) {
	t.current = &record

	t.history = append(t.history, record)
	if len(t.history) > historyCap {
		t.history = t.history[len(t.history)-historyCap:]
	}

	t.window = append(t.window, OptimizedHistoryRecord{
		Timestamp:  record.Timestamp,
		TaskID:     record.TaskID,
		StepIndex:  record.StepIndex,
		Similarity: record.Similarity,
	})
	t.cleanupWindowLocked()
	t.consecutiveLowCount = 0
}

// cleanupWindowLocked enforces the two sliding-window caps (count, bytes),
// evicting from the head and incrementing cleanupCount by the number of
// entries evicted.
func (t *Tracker) cleanupWindowLocked() {
	if len(t.window) > t.windowMax {
		evicted := len(t.window) - t.windowMax
		t.window = t.window[evicted:]
		t.cleanupCount += evicted
		return
	}

	if estimatedBytes(t.window) > t.byteMax {
		evicted := (len(t.window) + 4) / 5 // ceil(len/5)
		if evicted > len(t.window) {
			evicted = len(t.window)
		}
		t.window = t.window[evicted:]
		t.cleanupCount += evicted
	}
}

func (t *Tracker) recordFailureLocked(start time.Time, rawText string, similarity float64, tier Tier) {
	t.failureCount++
	t.appendMetricLocked(ProcessingMetric{
		Timestamp:    start,
		InputPreview: preview(rawText),
		Similarity:   similarity,
		LatencyMS:    latencyMS(t.clock(), start),
		Tier:         tier,
		Action:       ActionIgnore,
	})
}

func (t *Tracker) appendMetricLocked(m ProcessingMetric) {
	t.metrics = append(t.metrics, m)
	if len(t.metrics) > t.metricsMax {
		t.metrics = t.metrics[len(t.metrics)-t.metricsMax:]
	}
}

// estimatedBytes implements the fixed, deterministic per-record size formula
// documented in the data model: 56 + 24 + 2*len(task_id) + 28 + 50.
func estimatedBytes(window []OptimizedHistoryRecord) int {
	total := 0
	for _, r := range window {
		total += 56 + 24 + 2*len(r.TaskID) + 28 + 50
	}
	return total
}

func classifyTier(similarity float64) Tier {
	switch {
	case similarity >= tauHigh:
		return TierHigh
	case similarity >= tauMed:
		return TierMedium
	default:
		return TierLow
	}
}

func preview(s string) string {
	if len(s) <= inputPreviewMax {
		return s
	}
	return s[:inputPreviewMax]
}

func latencyMS(end, start time.Time) float64 {
	return float64(end.Sub(start)) / float64(time.Millisecond)
}
