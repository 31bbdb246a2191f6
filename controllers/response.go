package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/logger"
	"civicconnect-be/middlewares"
	"civicconnect-be/models"

	"github.com/gin-gonic/gin"
)

const requestTimeout = 10 * time.Second

// requestContext bounds store work for one request.
func requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

// respondError writes {"error", "code"} with the status mapped from err.
func respondError(c *gin.Context, err error) {
	status, code := apperrors.HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		logger.WithError(err, "http").WithFields(map[string]interface{}{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		if status == http.StatusInternalServerError {
			message = "Something went wrong"
		}
	}
	c.JSON(status, gin.H{"error": message, "code": code})
}

// respondBindError reports a request body or query that failed binding.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeInvalidRequest})
}

func isUpstream(err error) bool {
	return errors.Is(err, apperrors.ErrUpstreamUnavailable)
}

// currentActor returns the authenticated actor or writes a 401.
func currentActor(c *gin.Context) (models.Actor, bool) {
	actor, ok := middlewares.ActorFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated", "code": apperrors.CodeUnauthorized})
		return models.Actor{}, false
	}
	return actor, true
}
