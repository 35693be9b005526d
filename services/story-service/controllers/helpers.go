package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	commonerrors "github.com/rmtechsolution/valentine-backend/services/common/errors"
	"github.com/rmtechsolution/valentine-backend/services/story-service/models"
	"github.com/rmtechsolution/valentine-backend/services/story-service/services"
)

// respondError writes {"error": msg}. Server-side failures are also attached
// to the context so the request log line carries them.
func respondError(c *gin.Context, svcErr *services.ServiceError) {
	if svcErr.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(commonerrors.New(svcErr.StatusCode, svcErr.Message, nil))
	}
	c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
}

func respondSession(c *gin.Context, status int, view *models.SessionView, svcErr *services.ServiceError) {
	if svcErr != nil {
		respondError(c, svcErr)
		return
	}
	c.JSON(status, gin.H{"session": view})
}
