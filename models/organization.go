package models

import "time"

// Organization is a predefined government or utility body that handles issues
// of specific categories.
type Organization struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	IssueTypes  []IssueCategory `json:"issueTypes"`
}

// Handles reports whether the organization services the category.
func (o Organization) Handles(category IssueCategory) bool {
	for _, t := range o.IssueTypes {
		if t == category {
			return true
		}
	}
	return false
}

// OrganizationAssignments is the runtime record of the issues currently
// assigned to a directory organization.
type OrganizationAssignments struct {
	OrganizationID string    `bson:"_id" json:"organizationId"`
	AssignedIssues []string  `bson:"assigned_issues" json:"assigned_issues"`
	UpdatedAt      time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Contains reports whether issueID is in the assigned set.
func (a OrganizationAssignments) Contains(issueID string) bool {
	for _, id := range a.AssignedIssues {
		if id == issueID {
			return true
		}
	}
	return false
}

// OrganizationProfile is the stored profile of an organization principal,
// keyed by the principal's uid.
type OrganizationProfile struct {
	UID            string          `bson:"_id" json:"uid" gorm:"primaryKey;type:varchar(64)"`
	Email          string          `bson:"email" json:"email"`
	OrganizationID string          `bson:"organizationId" json:"organizationId" gorm:"index"`
	Name           string          `bson:"name" json:"name"`
	DepartmentType []IssueCategory `bson:"department_type" json:"department_type" gorm:"serializer:json"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time       `bson:"updatedAt" json:"updatedAt"`
}

func (OrganizationProfile) TableName() string { return "organizations" }
