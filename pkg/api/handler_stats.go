package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yitzuliu/tracker/pkg/tracker"
)

func stringifyActionHistogram(h map[tracker.Action]int) map[string]int {
	out := make(map[string]int, len(h))
	for k, v := range h {
		out[string(k)] = v
	}
	return out
}

func stringifyTierHistogram(h map[tracker.Tier]int) map[string]int {
	out := make(map[string]int, len(h))
	for k, v := range h {
		out[string(k)] = v
	}
	return out
}

// statsHandler handles GET /stats: aggregated tracker metrics and
// orchestrator decision counters. ?reset=true zeroes the decision engine's
// counters after reporting them.
func (s *Server) statsHandler(c *gin.Context) {
	mem := s.tracker.MemoryStats()
	metrics := s.tracker.MetricsSummary()
	decisions := s.decision.Statistics()

	resp := StatsResponse{
		Memory: MemoryStatsDTO{
			Count:          mem.Count,
			Bytes:          mem.Bytes,
			CleanupCount:   mem.CleanupCount,
			MaxSizeReached: mem.MaxSizeReached,
			AvgRecordBytes: mem.AvgRecordBytes,
			FailureCount:   mem.FailureCount,
		},
		Metrics: MetricsSummaryDTO{
			Total:               metrics.Total,
			AvgSimilarity:       metrics.AvgSimilarity,
			MinSimilarity:       metrics.MinSimilarity,
			MaxSimilarity:       metrics.MaxSimilarity,
			AvgLatencyMS:        metrics.AvgLatencyMS,
			MinLatencyMS:        metrics.MinLatencyMS,
			MaxLatencyMS:        metrics.MaxLatencyMS,
			ActionHistogram:     stringifyActionHistogram(metrics.ActionHistogram),
			TierHistogram:       stringifyTierHistogram(metrics.TierHistogram),
			ConsecutiveLowCount: metrics.ConsecutiveLowCount,
		},
		Decisions: DecisionStatsDTO{
			TotalDecisions:      decisions.TotalDecisions,
			FallbackDecisions:   decisions.FallbackDecisions,
			TemplateDecisions:   decisions.TemplateDecisions,
			FallbackRatePercent: decisions.FallbackRatePercent,
			ConfidenceThreshold: decisions.ConfidenceThreshold,
		},
		Orchestrator: s.orchestrator.Statistics(),
	}

	c.JSON(200, resp)

	if c.Query("reset") == "true" {
		s.decision.ResetStatistics()
	}
}
