package routes

import (
	"civicconnect-be/controllers"

	"github.com/gin-gonic/gin"
)

func OrganizationRoutes(r *gin.Engine) {
	r.GET("/api/organizations", controllers.ListOrganizations)
	r.GET("/api/organizations/:issueType", controllers.OrganizationsByIssueType)
	r.GET("/api/categories", controllers.ListCategories)
}
