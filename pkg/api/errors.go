package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondInternalError logs the underlying cause and writes a generic 500;
// callers never see internal error detail, mirroring the teacher's
// mapServiceError fallback branch.
func respondInternalError(c *gin.Context, context string, err error) {
	slog.Error(context, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// respondBadRequest writes a 400 with the given user-facing message.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
