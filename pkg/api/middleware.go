package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestIDHeader is both the response header and the gin context key used
// to correlate one request's logs across ingest/query handling.
const requestIDHeader = "X-Request-ID"

// securityHeaders sets standard security response headers on every request.
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// requestID assigns a fresh UUID to every request, ahead of requestLogger so
// the ID is available for log correlation, and echoes it back as a response
// header so a caller can tie their own logs to ours.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.New().String()
		c.Set(requestIDHeader, id)
		c.Writer.Header().Set(requestIDHeader, id)
		c.Next()
	}
}

// requestLogger logs each request's method, path, status, latency, and
// request ID at Info level once it completes.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		c.Next()

		slog.Info("request handled",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency_ms", float64(time.Since(start))/float64(time.Millisecond),
			"request_id", c.GetString(requestIDHeader),
		)
	}
}
