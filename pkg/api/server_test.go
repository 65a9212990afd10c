package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yitzuliu/tracker/pkg/fallback"
	"github.com/yitzuliu/tracker/pkg/tracker"
	"github.com/yitzuliu/tracker/pkg/vlmclient"
)

type fakeTracker struct {
	ingestUpdated bool
	ingestErr     error
	state         tracker.StateRecord
	present       bool
}

func (f fakeTracker) Ingest(context.Context, string) (bool, error) {
	return f.ingestUpdated, f.ingestErr
}

func (f fakeTracker) CurrentState() (tracker.StateRecord, bool) {
	return f.state, f.present
}

func (f fakeTracker) MemoryStats() tracker.MemoryStats {
	return tracker.MemoryStats{Count: 3, Bytes: 500}
}

func (f fakeTracker) MetricsSummary() tracker.MetricsSummary {
	return tracker.MetricsSummary{
		Total:           2,
		ActionHistogram: map[tracker.Action]int{tracker.ActionUpdate: 2},
		TierHistogram:   map[tracker.Tier]int{tracker.TierHigh: 2},
	}
}

type fakeOrchestrator struct {
	response    fallback.QueryResponse
	healthy     bool
	healthErr   error
}

func (f fakeOrchestrator) Answer(context.Context, string) fallback.QueryResponse {
	return f.response
}

func (f fakeOrchestrator) Statistics() fallback.OrchestratorStats {
	return fallback.OrchestratorStats{TotalQueries: 5}
}

func (f fakeOrchestrator) Health(context.Context) (vlmclient.HealthStatus, error) {
	return vlmclient.HealthStatus{Healthy: f.healthy}, f.healthErr
}

func newTestServer(tr fakeTracker, orch fakeOrchestrator) *Server {
	decision := fallback.NewDecisionEngine(0.40, nil)
	return NewServer(tr, orch, decision, "test")
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestIngestHandler_ReturnsUpdatedFlag(t *testing.T) {
	s := newTestServer(fakeTracker{ingestUpdated: true}, fakeOrchestrator{})
	rec := doRequest(s, http.MethodPost, "/ingest", IngestRequest{Text: "user picks up the kettle"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp IngestResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Updated)
}

func TestIngestHandler_RejectsMissingText(t *testing.T) {
	s := newTestServer(fakeTracker{}, fakeOrchestrator{})
	rec := doRequest(s, http.MethodPost, "/ingest", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestQueryHandler_ReturnsOrchestratorResponse(t *testing.T) {
	expected := fallback.QueryResponse{
		Status:           "success",
		ResponseText:     "You are on step 2",
		QueryType:        "CURRENT_STEP",
		Confidence:       0.81,
		ProcessingTimeMS: 12.5,
	}
	s := newTestServer(fakeTracker{}, fakeOrchestrator{response: expected})
	rec := doRequest(s, http.MethodPost, "/query", QueryRequest{Query: "where am I?"})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp fallback.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, expected, resp)
}

func TestHealthHandler_HealthyVLMReturns200(t *testing.T) {
	s := newTestServer(fakeTracker{}, fakeOrchestrator{healthy: true})
	rec := doRequest(s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusHealthy, resp.Status)
	assert.Equal(t, healthStatusHealthy, resp.Checks["vlm"].Status)
}

func TestHealthHandler_UnreachableVLMReportsDegraded(t *testing.T) {
	s := newTestServer(fakeTracker{}, fakeOrchestrator{healthy: false})
	rec := doRequest(s, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, healthStatusDegraded, resp.Status)
	assert.Equal(t, healthStatusUnhealthy, resp.Checks["vlm"].Status)
}

func TestStatsHandler_AggregatesTrackerAndOrchestratorStats(t *testing.T) {
	s := newTestServer(fakeTracker{}, fakeOrchestrator{})
	rec := doRequest(s, http.MethodGet, "/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StatsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Memory.Count)
	assert.Equal(t, 2, resp.Metrics.Total)
	assert.Equal(t, int64(5), resp.Orchestrator.TotalQueries)
}

func TestMiddleware_AttachesRequestIDHeader(t *testing.T) {
	s := newTestServer(fakeTracker{}, fakeOrchestrator{})
	rec := doRequest(s, http.MethodGet, "/health", nil)

	id := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, id)
	require.NoError(t, uuid.Validate(id))
}

func TestStateHandler_NoStateReturnsPresentFalse(t *testing.T) {
	s := newTestServer(fakeTracker{present: false}, fakeOrchestrator{})
	rec := doRequest(s, http.MethodGet, "/state", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Present)
}

func TestStateHandler_WithStateReturnsFields(t *testing.T) {
	s := newTestServer(fakeTracker{present: true, state: tracker.StateRecord{
		TaskID: "coffee", StepIndex: 2, Similarity: 0.81,
	}}, fakeOrchestrator{})
	rec := doRequest(s, http.MethodGet, "/state", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Present)
	assert.Equal(t, "coffee", resp.TaskID)
	assert.Equal(t, 2, resp.StepIndex)
}
