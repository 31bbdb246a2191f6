package middlewares

import (
	"net/http"

	"civicconnect-be/apperrors"
	"civicconnect-be/models"

	"github.com/gin-gonic/gin"
)

// RequireKind rejects actors whose resolved role is not kind. Must run after
// AuthMiddleware.
func RequireKind(kind models.Kind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFrom(c)
		if !ok {
			abortWithError(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "User not authenticated")
			return
		}
		if actor.Kind != kind {
			abortWithError(c, http.StatusForbidden, apperrors.CodeForbidden, "This endpoint is only available to "+string(kind)+" accounts")
			return
		}
		c.Next()
	}
}
