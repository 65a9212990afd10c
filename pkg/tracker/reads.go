package tracker

// CurrentState returns the current authoritative state, or ok=false if no
// observation has ever been accepted.
func (t *Tracker) CurrentState() (StateRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.current == nil {
		return StateRecord{}, false
	}
	return *t.current, true
}

// MemoryStats reports sliding-window memory usage and cleanup activity.
func (t *Tracker) MemoryStats() MemoryStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	bytes := estimatedBytes(t.window)
	avg := 0.0
	if len(t.window) > 0 {
		avg = float64(bytes) / float64(len(t.window))
	}

	return MemoryStats{
		Count:          len(t.window),
		Bytes:          bytes,
		CleanupCount:   t.cleanupCount,
		MaxSizeReached: len(t.window) >= t.windowMax,
		AvgRecordBytes: avg,
		FailureCount:   t.failureCount,
	}
}

// MetricsSummary aggregates the retained ProcessingMetric buffer.
func (t *Tracker) MetricsSummary() MetricsSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	summary := MetricsSummary{
		ActionHistogram:     make(map[Action]int),
		TierHistogram:       make(map[Tier]int),
		ConsecutiveLowCount: t.consecutiveLowCount,
	}
	if len(t.metrics) == 0 {
		return summary
	}

	summary.Total = len(t.metrics)
	summary.MinSimilarity = t.metrics[0].Similarity
	summary.MaxSimilarity = t.metrics[0].Similarity
	summary.MinLatencyMS = t.metrics[0].LatencyMS
	summary.MaxLatencyMS = t.metrics[0].LatencyMS

	var simSum, latSum float64
	for _, m := range t.metrics {
		simSum += m.Similarity
		latSum += m.LatencyMS
		if m.Similarity < summary.MinSimilarity {
			summary.MinSimilarity = m.Similarity
		}
		if m.Similarity > summary.MaxSimilarity {
			summary.MaxSimilarity = m.Similarity
		}
		if m.LatencyMS < summary.MinLatencyMS {
			summary.MinLatencyMS = m.LatencyMS
		}
		if m.LatencyMS > summary.MaxLatencyMS {
			summary.MaxLatencyMS = m.LatencyMS
		}
		summary.ActionHistogram[m.Action]++
		summary.TierHistogram[m.Tier]++
	}
	summary.AvgSimilarity = simSum / float64(summary.Total)
	summary.AvgLatencyMS = latSum / float64(summary.Total)

	return summary
}

// WindowRecords returns a copy of the current sliding window, oldest first.
func (t *Tracker) WindowRecords() []OptimizedHistoryRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]OptimizedHistoryRecord, len(t.window))
	copy(out, t.window)
	return out
}

// HistoryAnalysis summarizes the legacy (cap-10) history buffer.
func (t *Tracker) HistoryAnalysis() HistoryAnalysis {
	t.mu.RLock()
	defer t.mu.RUnlock()

	analysis := HistoryAnalysis{
		TaskHistogram: make(map[string]int),
		StepHistogram: make(map[int]int),
		TierHistogram: make(map[Tier]int),
	}
	if len(t.history) == 0 {
		return analysis
	}

	for _, rec := range t.history {
		analysis.TaskHistogram[rec.TaskID]++
		analysis.StepHistogram[rec.StepIndex]++
		analysis.TierHistogram[classifyTier(rec.Similarity)]++
	}

	first := t.history[0].Timestamp
	last := t.history[len(t.history)-1].Timestamp
	analysis.TimeSpanMinutes = last.Sub(first).Minutes()
	if analysis.TimeSpanMinutes < 0 {
		analysis.TimeSpanMinutes = 0
	}

	return analysis
}

// LastProcessedImage satisfies the imaging.Source fallback chain described
// in the fallback orchestrator: it is empty unless a caller explicitly
// records a frame via SetLastProcessedImage.
func (t *Tracker) LastProcessedImage() ([]byte, string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.lastImage) == 0 {
		return nil, "", false
	}
	out := make([]byte, len(t.lastImage))
	copy(out, t.lastImage)
	return out, t.lastImageFormat, true
}

// SetLastProcessedImage records the most recently processed observation's
// source frame, consulted by the fallback orchestrator's image acquisition
// chain when no live camera frame is available.
func (t *Tracker) SetLastProcessedImage(data []byte, format string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastImage = append([]byte(nil), data...)
	t.lastImageFormat = format
}
