package routes

import (
	"civicconnect-be/middlewares"
	"civicconnect-be/models"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue, comment and vote routes plus the per-kind
// dashboards.
func IssueRoutes(r *gin.Engine, d Deps) {
	issues := r.Group("/api/issues")
	{
		issues.GET("", d.optionalAuth(), d.Issues.ListIssues)
		issues.GET("/recent", d.Issues.RecentIssues)
		issues.GET("/stats", d.Issues.GetIssueStats)
		issues.GET("/:id", d.optionalAuth(), d.Issues.GetIssue)
		issues.GET("/:id/comments", d.Comments.ListComments)
	}

	authed := issues.Group("", d.requireAuth())
	{
		authed.POST("", middlewares.IssueRateLimiter(d.Redis, d.IssueQueue, d.DailyLimit), d.Issues.CreateIssue)
		authed.PUT("/:id", d.Issues.UpdateIssue)
		authed.DELETE("/:id", d.Issues.DeleteIssue)
		authed.PATCH("/:id/status", d.Issues.UpdateStatus)
		authed.PATCH("/:id/priority", d.Issues.UpdatePriority)
		authed.PATCH("/:id/assign", d.Issues.AssignIssue)
		authed.POST("/:id/vote", d.Issues.VoteOnIssue)
		authed.POST("/:id/comments", d.Comments.AddComment)
	}

	r.GET("/api/user/issues", d.requireAuth(), middlewares.RequireKind(models.KindUser), d.Issues.GetUserIssues)
	r.GET("/api/organization/issues", d.requireAuth(), middlewares.RequireKind(models.KindOrganization), d.Issues.GetOrganizationIssues)
}
