package api

import "github.com/gin-gonic/gin"

// stateHandler handles GET /state: the current StateRecord, for debugging.
// It is never consulted by the fallback decision logic itself.
func (s *Server) stateHandler(c *gin.Context) {
	state, present := s.tracker.CurrentState()
	if !present {
		c.JSON(200, StateResponse{Present: false})
		return
	}

	c.JSON(200, StateResponse{
		Present:    true,
		Timestamp:  state.Timestamp,
		TaskID:     state.TaskID,
		StepIndex:  state.StepIndex,
		Similarity: state.Similarity,
		StepTitle:  state.MatchedStepDetail.StepTitle,
		StepDetail: state.MatchedStepDetail.StepDescription,
	})
}
