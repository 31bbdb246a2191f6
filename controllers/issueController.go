package controllers

import (
	"net/http"
	"strconv"

	"civicconnect-be/logger"
	"civicconnect-be/middlewares"
	"civicconnect-be/models"
	"civicconnect-be/services"

	"github.com/gin-gonic/gin"
)

type IssueController struct {
	issues *services.IssueService
}

func NewIssueController(issues *services.IssueService) *IssueController {
	return &IssueController{issues: issues}
}

// CreateIssue handles POST /api/issues
func (ic *IssueController) CreateIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var input struct {
		Title       string               `json:"title" binding:"required,max=200"`
		Description string               `json:"description" binding:"required,max=2000"`
		Location    string               `json:"location" binding:"required,max=300"`
		Category    models.IssueCategory `json:"category" binding:"omitempty,category"`
		IssueType   models.IssueCategory `json:"issueType" binding:"omitempty,category"`
		Priority    string               `json:"priority" binding:"omitempty,priority"`
		Severity    string               `json:"severity" binding:"omitempty,priority"`
		Latitude    *float64             `json:"latitude" binding:"omitempty,min=-90,max=90"`
		Longitude   *float64             `json:"longitude" binding:"omitempty,min=-180,max=180"`
		ImageURL    *string              `json:"imageUrl"`
		ImageURLAlt *string              `json:"imageURL"`
		AssignedTo  string               `json:"assignedTo"`
		OrgName     string               `json:"organizationName"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	in := services.CreateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    firstNonEmpty(input.Category, input.IssueType),
		Priority:    firstNonEmpty(input.Priority, input.Severity),
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		ImageURL:    input.ImageURL,
		AssignedTo:  firstNonEmpty(input.AssignedTo, input.OrgName),
	}
	if in.ImageURL == nil {
		in.ImageURL = input.ImageURLAlt
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.CreateIssue(ctx, actor, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

func firstNonEmpty[T ~string](values ...T) T {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ListIssues serves the community feed. Store failures degrade to an empty
// page flagged "degraded".
func (ic *IssueController) ListIssues(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	q := services.ListQuery{
		Status:   c.Query("status"),
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Sort:     c.DefaultQuery("sort", "newest"),
		Page:     page,
		Limit:    limit,
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	result, err := ic.issues.ListIssues(ctx, q, middlewares.UserIDFrom(c))
	if err != nil {
		if isUpstream(err) {
			logger.WithError(err, "issues").Warn("serving degraded issue feed")
			if page < 1 {
				page = 1
			}
			c.JSON(http.StatusOK, gin.H{
				"issues":      []services.IssueView{},
				"totalIssues": 0,
				"totalPages":  0,
				"currentPage": page,
				"degraded":    true,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RecentIssues returns the newest issues that carry coordinates.
func (ic *IssueController) RecentIssues(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "19"))

	ctx, cancel := requestContext(c)
	defer cancel()

	issues, err := ic.issues.RecentWithCoordinates(ctx, limit)
	if err != nil {
		if isUpstream(err) {
			logger.WithError(err, "issues").Warn("serving degraded recent issues")
			c.JSON(http.StatusOK, gin.H{"issues": []services.MapIssue{}, "degraded": true})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues})
}

// GetIssueStats returns the feed dashboard numbers.
func (ic *IssueController) GetIssueStats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	stats, err := ic.issues.Stats(ctx)
	if err != nil {
		if isUpstream(err) {
			logger.WithError(err, "issues").Warn("serving degraded issue stats")
			c.JSON(http.StatusOK, gin.H{
				"issuesByCategory": []services.CategoryCount{},
				"last7Days":        []services.DayCount{},
				"topVotedIssues":   []services.VotedIssue{},
				"totalIssues":      0,
				"totalVotes":       0,
				"openIssues":       0,
				"degraded":         true,
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetIssue handles GET /api/issues/:id
func (ic *IssueController) GetIssue(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.GetIssue(ctx, c.Param("id"), middlewares.UserIDFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateIssue lets the reporter edit the descriptive fields.
func (ic *IssueController) UpdateIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var input struct {
		Title       *string               `json:"title" binding:"omitempty,max=200"`
		Description *string               `json:"description" binding:"omitempty,max=2000"`
		Location    *string               `json:"location" binding:"omitempty,max=300"`
		Category    *models.IssueCategory `json:"category" binding:"omitempty,category"`
		Latitude    *float64              `json:"latitude" binding:"omitempty,min=-90,max=90"`
		Longitude   *float64              `json:"longitude" binding:"omitempty,min=-180,max=180"`
		ImageURL    *string               `json:"imageUrl"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.UpdateIssue(ctx, actor, c.Param("id"), services.UpdateIssueInput{
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		ImageURL:    input.ImageURL,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateStatus handles PATCH /api/issues/:id/status
func (ic *IssueController) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input struct {
		Status string `json:"status" binding:"required,status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.UpdateStatus(ctx, actor, c.Param("id"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdatePriority handles PATCH /api/issues/:id/priority
func (ic *IssueController) UpdatePriority(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input struct {
		Priority string `json:"priority" binding:"required,priority"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.UpdatePriority(ctx, actor, c.Param("id"), input.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AssignIssue handles PATCH /api/issues/:id/assign
func (ic *IssueController) AssignIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input struct {
		OrganizationID   string `json:"organizationId"`
		AssignedTo       string `json:"assignedTo"`
		OrganizationName string `json:"organizationName"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}
	target := firstNonEmpty(input.OrganizationID, input.AssignedTo, input.OrganizationName)
	if target == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "organizationId is required", "code": "invalid_request"})
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issue, err := ic.issues.Reassign(ctx, actor, c.Param("id"), target)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// DeleteIssue allows the creator of an issue to delete it
func (ic *IssueController) DeleteIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := ic.issues.DeleteIssue(ctx, actor, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// VoteOnIssue toggles the caller's vote.
func (ic *IssueController) VoteOnIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := ic.issues.ToggleVote(ctx, actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	message := "Vote removed successfully"
	if res.Voted {
		message = "Vote cast successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      message,
		"voted":        res.Voted,
		"votes":        res.Votes,
		"userHasVoted": res.Voted,
	})
}

// GetUserIssues lists the caller's own reports.
func (ic *IssueController) GetUserIssues(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issues, err := ic.issues.ListIssuesForUser(ctx, actor.UID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}

// GetOrganizationIssues lists the issues assigned to the caller's organization.
func (ic *IssueController) GetOrganizationIssues(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	issues, err := ic.issues.ListIssuesForActor(ctx, actor)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, issues)
}
