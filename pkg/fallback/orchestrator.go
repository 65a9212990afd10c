package fallback

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/yitzuliu/tracker/pkg/imaging"
	"github.com/yitzuliu/tracker/pkg/query"
	"github.com/yitzuliu/tracker/pkg/tracker"
	"github.com/yitzuliu/tracker/pkg/vlmclient"
)

// QueryResponse is the unified shape returned to callers for both template
// and fallback-produced answers. It carries exactly these five fields —
// no response_mode, no decision_reason, no source tag — so a caller cannot
// tell which path produced it.
type QueryResponse struct {
	Status             string  `json:"status"`
	ResponseText       string  `json:"response_text"`
	QueryType          string  `json:"query_type"`
	Confidence         float64 `json:"confidence"`
	ProcessingTimeMS   float64 `json:"processing_time_ms"`
}

const (
	apparentConfidenceFloor = 0.72
	confidenceThresholdGate = 0.40

	neutralVLMUnavailable = "I'm having trouble accessing the AI service right now. Please try again in a moment."
	neutralBusy           = "The system is currently busy. Please try again shortly."
	neutralGenericError   = "I couldn't process that request right now. Please try again."
)

// VLMClient is the subset of vlmclient.Client the orchestrator depends on,
// narrowed to an interface so tests can substitute a fake. Query's int
// return is the number of attempts actually made (1 + retries), letting the
// orchestrator derive its own error/retry counters from a single call.
type VLMClient interface {
	SavePrompt(ctx context.Context) (string, error)
	SwapPrompt(ctx context.Context, prompt string) error
	RestorePrompt(ctx context.Context, saved string) error
	Query(ctx context.Context, req vlmclient.ChatRequest) (string, int, error)
	Health(ctx context.Context) (vlmclient.HealthStatus, error)
}

// TrackerReader is the read-only subset of *tracker.Tracker the orchestrator
// consumes; it never mutates tracker state.
type TrackerReader interface {
	CurrentState() (tracker.StateRecord, bool)
}

// OrchestratorConfig carries the tunables from the resolved FallbackConfig.
type OrchestratorConfig struct {
	EnableImageFallback      bool
	FallbackPromptTemplate   string
	ImageFallbackTemplate    string
	MaxConcurrentRequests    int
	RequestQueueSize         int
	ModelTag                 string
}

// Orchestrator ties the state tracker, query processor, image acquisition,
// and VLM client together to implement the fallback decision and the prompt
// save/swap/query/restore protocol.
type Orchestrator struct {
	tracker  TrackerReader
	decision *DecisionEngine
	vlm      VLMClient
	images   *imaging.Acquirer
	cfg      OrchestratorConfig
	logger   *slog.Logger

	sem   *semaphore.Weighted
	queue chan struct{}

	stats orchestratorStats
}

type orchestratorStats struct {
	totalQueries      int64
	fallbackQueries   int64
	templateQueries   int64
	vlmErrors         int64
	vlmRetryTotal     int64
	vlmLatencyTotalMS float64
	vlmLatencySamples int64
}

// OrchestratorStats summarizes the fallback decision/VLM counters exposed to
// operators via GET /stats.
type OrchestratorStats struct {
	TotalQueries    int64   `json:"total_queries"`
	FallbackQueries int64   `json:"fallback_queries"`
	TemplateQueries int64   `json:"template_queries"`
	VLMErrors       int64   `json:"vlm_errors"`
	VLMRetries      int64   `json:"vlm_retries"`
	AvgVLMLatencyMS float64 `json:"avg_vlm_latency_ms"`
}

// New constructs an Orchestrator.
func New(tr TrackerReader, decision *DecisionEngine, vlm VLMClient, images *imaging.Acquirer, cfg OrchestratorConfig, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	maxConcurrent := cfg.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	queueSize := cfg.RequestQueueSize
	if queueSize < 0 {
		queueSize = 0
	}

	return &Orchestrator{
		tracker:  tr,
		decision: decision,
		vlm:      vlm,
		images:   images,
		cfg:      cfg,
		logger:   logger,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		queue:    make(chan struct{}, maxConcurrent+queueSize),
	}
}

// Answer classifies and answers rawQuery, transparently delegating to the
// VLM when the decision engine calls for it. It always returns a populated
// QueryResponse; errors are mapped to neutral user-facing text internally.
func (o *Orchestrator) Answer(ctx context.Context, rawQuery string) QueryResponse {
	start := time.Now()
	o.stats.totalQueries++

	intent := query.Classify(rawQuery)
	state, present := o.tracker.CurrentState()

	decisionState := DecisionState{
		Present:        present,
		Confidence:     state.Similarity,
		HasCurrentStep: present,
	}

	useFallback, _ := o.decision.ShouldUseFallback(decisionState, intent)
	if !useFallback {
		o.stats.templateQueries++
		snapshot := toSnapshot(state, present)
		result := query.Process(rawQuery, snapshot)
		// The unified response always reports the state's own confidence
		// (floored the same way a fallback response would be), not Query
		// Processor's internal 0.9/0.3 classification confidence — callers
		// at the external interface never see that internal detail.
		return QueryResponse{
			Status:           "success",
			ResponseText:     result.ResponseText,
			QueryType:        string(result.QueryType),
			Confidence:       apparentConfidence(state, present),
			ProcessingTimeMS: elapsedMS(start),
		}
	}

	o.stats.fallbackQueries++
	return o.runFallback(ctx, rawQuery, state, present, start)
}

func toSnapshot(state tracker.StateRecord, present bool) query.StateSnapshot {
	if !present {
		return query.StateSnapshot{}
	}
	return query.StateSnapshot{
		Present:    true,
		TaskID:     state.TaskID,
		StepIndex:  state.StepIndex,
		Similarity: state.Similarity,
		Detail:     state.MatchedStepDetail,
		HasDetail:  state.MatchedStepDetail.StepTitle != "",
	}
}

func elapsedMS(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}

// recordVLMOutcome folds one vlm.Query attempt into the running counters:
// every attempt beyond the first is a retry, an error accounts for every
// attempt it took to exhaust, and latencyMS feeds the average exposed at
// GET /stats regardless of outcome.
func (o *Orchestrator) recordVLMOutcome(attempts int, err error, latencyMS float64) {
	if attempts > 1 {
		o.stats.vlmRetryTotal += int64(attempts - 1)
	}
	if err != nil {
		o.stats.vlmErrors += int64(attempts)
	}
	o.stats.vlmLatencyTotalMS += latencyMS
	o.stats.vlmLatencySamples++
}

// Statistics exposes per-component counters for operators, including the
// average latency of calls that actually reached the VLM.
func (o *Orchestrator) Statistics() OrchestratorStats {
	var avgLatency float64
	if o.stats.vlmLatencySamples > 0 {
		avgLatency = o.stats.vlmLatencyTotalMS / float64(o.stats.vlmLatencySamples)
	}
	return OrchestratorStats{
		TotalQueries:    o.stats.totalQueries,
		FallbackQueries: o.stats.fallbackQueries,
		TemplateQueries: o.stats.templateQueries,
		VLMErrors:       o.stats.vlmErrors,
		VLMRetries:      o.stats.vlmRetryTotal,
		AvgVLMLatencyMS: avgLatency,
	}
}

// Health delegates to the VLM client's liveness probe.
func (o *Orchestrator) Health(ctx context.Context) (vlmclient.HealthStatus, error) {
	return o.vlm.Health(ctx)
}
