package api

import "github.com/gin-gonic/gin"

// queryHandler handles POST /query: classifies and answers the user's
// natural-language question, transparently delegating to the VLM fallback
// when the orchestrator's decision engine calls for it.
func (s *Server) queryHandler(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "query is required")
		return
	}

	resp := s.orchestrator.Answer(c.Request.Context(), req.Query)
	c.JSON(200, resp)
}
