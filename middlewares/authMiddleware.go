package middlewares

import (
	"net/http"
	"strings"

	"civicconnect-be/apperrors"
	"civicconnect-be/logger"
	"civicconnect-be/models"
	"civicconnect-be/services"
	authUtils "civicconnect-be/utils"

	"github.com/gin-gonic/gin"
)

const (
	AuthCookieName = "auth_token"

	bearerPrefix = "Bearer "

	actorKey  = "actor"
	userIDKey = "user_id"
)

// AuthMiddleware verifies the bearer token (or the auth_token cookie) and
// resolves the principal's role on every request.
func AuthMiddleware(tokens *authUtils.TokenIssuer, roles *services.RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := extractToken(c)
		if tokenString == "" {
			abortWithError(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "No authorization token provided")
			return
		}

		principal, err := tokens.ParseToken(tokenString)
		if err != nil {
			logger.WithComponent("auth").WithError(err).Debug("token validation failed")
			abortWithError(c, http.StatusUnauthorized, apperrors.CodeUnauthorized, "Invalid authorization token")
			return
		}

		setActor(c, models.Actor{Principal: principal, Resolution: roles.Resolve(c.Request.Context(), principal)})
		c.Next()
	}
}

// OptionalAuth attaches an actor when a valid token is present and lets
// anonymous requests through.
func OptionalAuth(tokens *authUtils.TokenIssuer, roles *services.RoleResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := extractToken(c); tokenString != "" {
			if principal, err := tokens.ParseToken(tokenString); err == nil {
				setActor(c, models.Actor{Principal: principal, Resolution: roles.Resolve(c.Request.Context(), principal)})
			}
		}
		c.Next()
	}
}

// extractToken reads a "Bearer <token>" Authorization header, falling back to
// the auth_token cookie. Other schemes are ignored.
func extractToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) > len(bearerPrefix) && strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		if token := strings.TrimSpace(header[len(bearerPrefix):]); token != "" {
			return token
		}
	}
	if cookie, err := c.Cookie(AuthCookieName); err == nil {
		return cookie
	}
	return ""
}

func setActor(c *gin.Context, actor models.Actor) {
	c.Set(actorKey, actor)
	c.Set(userIDKey, actor.UID)
}

// ActorFrom returns the actor attached by AuthMiddleware or OptionalAuth.
func ActorFrom(c *gin.Context) (models.Actor, bool) {
	v, ok := c.Get(actorKey)
	if !ok {
		return models.Actor{}, false
	}
	actor, ok := v.(models.Actor)
	return actor, ok
}

// UserIDFrom returns the authenticated uid, or "".
func UserIDFrom(c *gin.Context) string {
	return c.GetString(userIDKey)
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
