package controllers

import (
	"net/http"

	"civicconnect-be/directory"
	"civicconnect-be/models"

	"github.com/gin-gonic/gin"
)

// ListOrganizations returns the whole directory.
func ListOrganizations(c *gin.Context) {
	c.JSON(http.StatusOK, directory.All())
}

// OrganizationsByIssueType returns the organizations servicing :issueType.
// Unknown types yield an empty list.
func OrganizationsByIssueType(c *gin.Context) {
	c.JSON(http.StatusOK, directory.ResolveOrganizations(models.IssueCategory(c.Param("issueType"))))
}

// ListCategories returns the known issue categories with labels.
func ListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, directory.Categories())
}
