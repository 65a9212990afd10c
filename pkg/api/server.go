package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yitzuliu/tracker/pkg/fallback"
	"github.com/yitzuliu/tracker/pkg/tracker"
	"github.com/yitzuliu/tracker/pkg/vlmclient"
)

// TrackerService is the subset of *tracker.Tracker the server depends on.
type TrackerService interface {
	Ingest(ctx context.Context, rawText string) (bool, error)
	CurrentState() (tracker.StateRecord, bool)
	MemoryStats() tracker.MemoryStats
	MetricsSummary() tracker.MetricsSummary
}

// Orchestrator is the subset of *fallback.Orchestrator the server depends on.
type Orchestrator interface {
	Answer(ctx context.Context, rawQuery string) fallback.QueryResponse
	Statistics() fallback.OrchestratorStats
	Health(ctx context.Context) (vlmclient.HealthStatus, error)
}

// Server wires the state tracker and fallback orchestrator to the HTTP
// surface described in the external interfaces section: /ingest, /query,
// /health, /stats, /state.
type Server struct {
	engine       *gin.Engine
	httpServer   *http.Server
	tracker      TrackerService
	orchestrator Orchestrator
	decision     *fallback.DecisionEngine
	version      string
}

// NewServer builds the gin engine and registers every route.
func NewServer(tr TrackerService, orch Orchestrator, decision *fallback.DecisionEngine, version string) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery(), requestID(), securityHeaders(), requestLogger())

	s := &Server{
		engine:       e,
		tracker:      tr,
		orchestrator: orch,
		decision:     decision,
		version:      version,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.POST("/ingest", s.ingestHandler)
	s.engine.POST("/query", s.queryHandler)
	s.engine.GET("/health", s.healthHandler)
	s.engine.GET("/stats", s.statsHandler)
	s.engine.GET("/state", s.stateHandler)
}

// Handler exposes the underlying http.Handler for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Shutdown gracefully shuts down the server's own http.Server when one is
// set. NewServer does not set one (callers serve Handler() from their own
// http.Server), so Shutdown then returns nil without doing anything.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
