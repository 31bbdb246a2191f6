package models

import (
	"strings"
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	Waterlogging IssueCategory = "waterlogging"
	Garbage      IssueCategory = "garbage"
	Roads        IssueCategory = "roads"
	PublicPlaces IssueCategory = "public_places"
	Streetlights IssueCategory = "streetlights"
	WaterSupply  IssueCategory = "water_supply"
)

// IssueStatus enum
type IssueStatus string

const (
	StatusOpen       IssueStatus = "open"
	StatusInProgress IssueStatus = "in_progress"
	StatusResolved   IssueStatus = "resolved"
)

// IssuePriority enum
type IssuePriority string

const (
	PriorityLow    IssuePriority = "low"
	PriorityMedium IssuePriority = "medium"
	PriorityHigh   IssuePriority = "high"
)

// Issue represents a civic issue reported by a user
type Issue struct {
	ID          string        `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(64)"`
	Title       string        `bson:"title" json:"title" gorm:"not null"`
	Description string        `bson:"description" json:"description" gorm:"not null"`
	Category    IssueCategory `bson:"category,omitempty" json:"category,omitempty" gorm:"index"`
	Location    string        `bson:"location" json:"location" gorm:"not null"`
	Latitude    *float64      `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude   *float64      `bson:"longitude,omitempty" json:"longitude,omitempty"`
	ImageURL    *string       `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	Status      IssueStatus   `bson:"status" json:"status" gorm:"index;not null;default:open"`
	Priority    IssuePriority `bson:"priority" json:"priority" gorm:"not null;default:medium"`
	UserID      string        `bson:"userId" json:"userId" gorm:"index;not null"`
	AssignedTo  *string       `bson:"assignedTo,omitempty" json:"assignedTo" gorm:"index"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`
}

func (Issue) TableName() string { return "issues" }

// AssignedOrganization returns the assignee id or "" when unassigned.
func (i Issue) AssignedOrganization() string {
	if i.AssignedTo == nil {
		return ""
	}
	return *i.AssignedTo
}

// ParseStatus accepts the canonical statuses plus the spellings used by older
// schema variants ("reported", "in-progress", "Pending", "In Progress", ...).
func ParseStatus(s string) (IssueStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "open", "reported", "pending":
		return StatusOpen, true
	case "in_progress", "in-progress", "in progress", "inprogress":
		return StatusInProgress, true
	case "resolved", "closed":
		return StatusResolved, true
	}
	return "", false
}

// ParsePriority accepts priority or legacy severity values.
func ParsePriority(s string) (IssuePriority, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow, true
	case "medium", "normal":
		return PriorityMedium, true
	case "high", "critical", "urgent":
		return PriorityHigh, true
	}
	return "", false
}

// IssueFilter narrows ListIssues results. Zero values mean "no filter".
type IssueFilter struct {
	Status     IssueStatus
	Category   IssueCategory
	UserID     string
	AssignedTo string
	Search     string
	// WithCoordinates keeps only issues that carry both latitude and longitude.
	WithCoordinates bool
	CreatedFrom     time.Time
	CreatedTo       time.Time
	Oldest          bool
	Skip            int
	Limit           int
}

// StatusAliases lists every stored spelling that normalizes to s, so store
// filters also match documents written by older schema variants.
func StatusAliases(s IssueStatus) []string {
	switch s {
	case StatusOpen:
		return []string{"open", "reported", "pending", "Pending"}
	case StatusInProgress:
		return []string{"in_progress", "in-progress", "In Progress"}
	case StatusResolved:
		return []string{"resolved", "Resolved"}
	}
	return []string{string(s)}
}
