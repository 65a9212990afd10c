package api

import "github.com/gin-gonic/gin"

// ingestHandler handles POST /ingest: feeds one VLM observation into the
// state tracker.
func (s *Server) ingestHandler(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "text is required")
		return
	}

	updated, err := s.tracker.Ingest(c.Request.Context(), req.Text)
	if err != nil {
		respondInternalError(c, "ingest failed", err)
		return
	}

	c.JSON(200, IngestResponse{Updated: updated})
}
