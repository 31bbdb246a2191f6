// Package store defines the persistence capability injected into services and
// its MongoDB, PostgreSQL and in-memory implementations.
package store

import (
	"context"
	"fmt"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/models"
)

// IssueUpdate lists the issue fields to change. Nil pointers are left alone.
// SetAssignedTo with a nil AssignedTo clears the assignment.
type IssueUpdate struct {
	Title         *string
	Description   *string
	Location      *string
	Category      *models.IssueCategory
	Latitude      *float64
	Longitude     *float64
	ImageURL      *string
	Status        *models.IssueStatus
	Priority      *models.IssuePriority
	SetAssignedTo bool
	AssignedTo    *string
	UpdatedAt     time.Time
}

type IssueStore interface {
	InsertIssue(ctx context.Context, issue *models.Issue) error
	GetIssue(ctx context.Context, id string) (*models.Issue, error)
	UpdateIssue(ctx context.Context, id string, update IssueUpdate) error
	DeleteIssue(ctx context.Context, id string) error
	ListIssues(ctx context.Context, filter models.IssueFilter) ([]models.Issue, int64, error)
	CountIssues(ctx context.Context, filter models.IssueFilter) (int64, error)
	CountIssuesByCategory(ctx context.Context) (map[models.IssueCategory]int64, error)
	CountIssuesByStatus(ctx context.Context) (map[models.IssueStatus]int64, error)
}

// AssignmentStore maintains each organization's assigned issue set.
type AssignmentStore interface {
	AddAssignedIssue(ctx context.Context, orgID, issueID string) error
	RemoveAssignedIssue(ctx context.Context, orgID, issueID string) error
	GetAssignments(ctx context.Context, orgID string) (*models.OrganizationAssignments, error)
}

type CommentStore interface {
	InsertComment(ctx context.Context, comment *models.Comment) error
	ListComments(ctx context.Context, issueID string) ([]models.Comment, error)
	DeleteCommentsByIssue(ctx context.Context, issueID string) (int64, error)
}

type VoteStore interface {
	InsertVote(ctx context.Context, vote *models.Vote) error
	DeleteVote(ctx context.Context, issueID, userID string) (bool, error)
	HasVoted(ctx context.Context, issueID, userID string) (bool, error)
	CountVotes(ctx context.Context, issueID string) (int64, error)
	CountAllVotes(ctx context.Context) (int64, error)
	DeleteVotesByIssue(ctx context.Context, issueID string) (int64, error)
}

//go:generate mockgen -destination=mocks/profile_store.go -package=mocks civicconnect-be/store ProfileStore

// ProfileStore is the read side the role resolver needs.
type ProfileStore interface {
	GetUserByID(ctx context.Context, uid string) (*models.User, error)
	GetOrganizationProfile(ctx context.Context, uid string) (*models.OrganizationProfile, error)
}

type UserStore interface {
	ProfileStore
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpsertUser(ctx context.Context, user *models.User) error
	UpsertOrganizationProfile(ctx context.Context, profile *models.OrganizationProfile) error
	DeleteOrganizationProfile(ctx context.Context, uid string) error
}

// Store is the full persistence capability.
type Store interface {
	IssueStore
	AssignmentStore
	CommentStore
	VoteStore
	UserStore

	// Atomic runs fn so that all writes it performs through the given store
	// either commit together or not at all, where the backend supports it.
	Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, apperrors.ErrUpstreamUnavailable, err)
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, apperrors.ErrNotFound)
}

func conflict(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, apperrors.ErrConflict)
}
