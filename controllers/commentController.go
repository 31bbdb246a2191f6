package controllers

import (
	"net/http"

	"civicconnect-be/services"

	"github.com/gin-gonic/gin"
)

type CommentController struct {
	issues *services.IssueService
}

func NewCommentController(issues *services.IssueService) *CommentController {
	return &CommentController{issues: issues}
}

// ListComments handles GET /api/issues/:id/comments
func (cc *CommentController) ListComments(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	comments, err := cc.issues.ListComments(ctx, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

// AddComment handles POST /api/issues/:id/comments
func (cc *CommentController) AddComment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var input struct {
		Content string `json:"content" binding:"required,max=1000"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		respondBindError(c, err)
		return
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := cc.issues.AddComment(ctx, actor, c.Param("id"), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, comment)
}
