package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// healthHandler handles GET /health: liveness plus VLM reachability,
// modeled on the teacher's HealthResponse{Status,Version,Checks} shape.
func (s *Server) healthHandler(c *gin.Context) {
	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	checks["tracker"] = HealthCheck{Status: healthStatusHealthy}

	vlmStatus, err := s.orchestrator.Health(reqCtx)
	if err != nil || !vlmStatus.Healthy {
		status = healthStatusDegraded
		msg := vlmStatus.Status
		if err != nil {
			msg = err.Error()
		}
		checks["vlm"] = HealthCheck{Status: healthStatusUnhealthy, Message: msg}
	} else {
		checks["vlm"] = HealthCheck{Status: healthStatusHealthy}
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, HealthResponse{
		Status:  status,
		Version: s.version,
		Checks:  checks,
	})
}
