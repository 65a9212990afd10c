// Package api exposes the service's HTTP surface: observation ingest, query
// answering, and the operational health/stats/state endpoints.
package api

import (
	"time"

	"github.com/yitzuliu/tracker/pkg/fallback"
)

// IngestRequest is the POST /ingest body.
type IngestRequest struct {
	Text string `json:"text" binding:"required"`
}

// IngestResponse is the POST /ingest response.
type IngestResponse struct {
	Updated bool `json:"updated"`
}

// QueryRequest is the POST /query body.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// HealthCheck is one component's entry in the health response.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the GET /health response, modeled on the teacher's
// HealthResponse{Status,Version,Checks} shape.
type HealthResponse struct {
	Status  string                 `json:"status"`
	Version string                 `json:"version"`
	Checks  map[string]HealthCheck `json:"checks"`
}

// StatsResponse is the GET /stats response: tracker memory/metrics plus the
// fallback decision engine and orchestrator counters.
type StatsResponse struct {
	Memory       MemoryStatsDTO            `json:"memory"`
	Metrics      MetricsSummaryDTO         `json:"metrics"`
	Decisions    DecisionStatsDTO          `json:"decisions"`
	Orchestrator fallback.OrchestratorStats `json:"orchestrator"`
}

type MemoryStatsDTO struct {
	Count          int     `json:"count"`
	Bytes          int     `json:"bytes"`
	CleanupCount   int     `json:"cleanup_count"`
	MaxSizeReached bool    `json:"max_size_reached"`
	AvgRecordBytes float64 `json:"avg_record_bytes"`
	FailureCount   int     `json:"failure_count"`
}

type MetricsSummaryDTO struct {
	Total               int            `json:"total"`
	AvgSimilarity       float64        `json:"avg_similarity"`
	MinSimilarity       float64        `json:"min_similarity"`
	MaxSimilarity       float64        `json:"max_similarity"`
	AvgLatencyMS        float64        `json:"avg_latency_ms"`
	MinLatencyMS        float64        `json:"min_latency_ms"`
	MaxLatencyMS        float64        `json:"max_latency_ms"`
	ActionHistogram     map[string]int `json:"action_histogram"`
	TierHistogram       map[string]int `json:"tier_histogram"`
	ConsecutiveLowCount int            `json:"consecutive_low_count"`
}

type DecisionStatsDTO struct {
	TotalDecisions      int     `json:"total_decisions"`
	FallbackDecisions   int     `json:"fallback_decisions"`
	TemplateDecisions   int     `json:"template_decisions"`
	FallbackRatePercent float64 `json:"fallback_rate_percent"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// StateResponse is the GET /state response: the current StateRecord,
// re-shaped with explicit JSON tags for external consumption.
type StateResponse struct {
	Present     bool      `json:"present"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
	TaskID      string    `json:"task_id,omitempty"`
	StepIndex   int       `json:"step_index,omitempty"`
	Similarity  float64   `json:"similarity,omitempty"`
	StepTitle   string    `json:"step_title,omitempty"`
	StepDetail  string    `json:"step_description,omitempty"`
}
