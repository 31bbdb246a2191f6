package routes

import (
	"net/http"

	"civicconnect-be/controllers"
	"civicconnect-be/middlewares"
	"civicconnect-be/services"
	authUtils "civicconnect-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// Deps carries everything the handlers need. Built once in main.
type Deps struct {
	Tokens *authUtils.TokenIssuer
	Roles  *services.RoleResolver

	Auth       *controllers.AuthController
	Issues     *controllers.IssueController
	Comments   *controllers.CommentController
	Health     *controllers.HealthController
	Redis      *redis.Client
	IssueQueue string
	DailyLimit int
}

func (d Deps) requireAuth() gin.HandlerFunc {
	return middlewares.AuthMiddleware(d.Tokens, d.Roles)
}

func (d Deps) optionalAuth() gin.HandlerFunc {
	return middlewares.OptionalAuth(d.Tokens, d.Roles)
}

// Setup registers every route on r.
func Setup(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/api/health", d.Health.Health)

	AuthRoutes(r, d)
	IssueRoutes(r, d)
	OrganizationRoutes(r)
}
