package routes

import (
	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, d Deps) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/logout", d.Auth.Logout)
		auth.GET("/me", d.requireAuth(), d.Auth.Me)
		auth.POST("/update-profile", d.requireAuth(), d.Auth.UpdateProfile)
		auth.GET("/route", d.optionalAuth(), d.Auth.Route)
	}
}
