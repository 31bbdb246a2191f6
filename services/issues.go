package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"civicconnect-be/apperrors"
	"civicconnect-be/directory"
	"civicconnect-be/logger"
	"civicconnect-be/models"
	"civicconnect-be/store"

	"golang.org/x/sync/errgroup"
)

const (
	ScopeOwn = "own"
	ScopeAny = "any"

	defaultPageSize = 50
	maxPageSize     = 100
	recentMapLimit  = 19
	topVotedLimit   = 5
)

// CreateIssueInput is what a reporter submits.
type CreateIssueInput struct {
	Title       string
	Description string
	Location    string
	Category    models.IssueCategory
	Priority    string
	Latitude    *float64
	Longitude   *float64
	ImageURL    *string
	// AssignedTo is an organization id or display name. Empty means auto-assign.
	AssignedTo string
}

// UpdateIssueInput holds the fields a creator may edit. Nil means unchanged.
type UpdateIssueInput struct {
	Title       *string
	Description *string
	Location    *string
	Category    *models.IssueCategory
	Latitude    *float64
	Longitude   *float64
	ImageURL    *string
}

// ListQuery is the community feed query.
type ListQuery struct {
	Status   string
	Category string
	Search   string
	Sort     string
	Page     int
	Limit    int
}

// IssueView is an issue as rendered to clients.
type IssueView struct {
	models.Issue
	Organization *models.Organization `json:"organization,omitempty"`
	Votes        int64                `json:"votes"`
	UserHasVoted bool                 `json:"userHasVoted"`
}

type IssuePage struct {
	Issues      []IssueView `json:"issues"`
	TotalIssues int64       `json:"totalIssues"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"limit"`
}

type VoteResult struct {
	Voted bool  `json:"voted"`
	Votes int64 `json:"votes"`
}

// MapIssue is the projection used by the map of recent reports.
type MapIssue struct {
	ID        string               `json:"id"`
	Title     string               `json:"title"`
	Latitude  float64              `json:"latitude"`
	Longitude float64              `json:"longitude"`
	Location  string               `json:"location"`
	Category  models.IssueCategory `json:"category,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

type CategoryCount struct {
	Name  models.IssueCategory `json:"name"`
	Value int64                `json:"value"`
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type VotedIssue struct {
	ID       string               `json:"id"`
	Title    string               `json:"title"`
	Category models.IssueCategory `json:"category"`
	Votes    int64                `json:"votes"`
}

type Stats struct {
	IssuesByCategory []CategoryCount              `json:"issuesByCategory"`
	IssuesByStatus   map[models.IssueStatus]int64 `json:"issuesByStatus"`
	Last7Days        []DayCount                   `json:"last7Days"`
	TopVotedIssues   []VotedIssue                 `json:"topVotedIssues"`
	TotalIssues      int64                        `json:"totalIssues"`
	TotalVotes       int64                        `json:"totalVotes"`
	OpenIssues       int64                        `json:"openIssues"`
}

// IssueService owns the issue lifecycle and keeps each organization's
// assigned set in step with the issues' assignedTo field.
type IssueService struct {
	store store.Store
	scope string
	now   func() time.Time
}

// NewIssueService builds the service. scope is ScopeOwn or ScopeAny; anything
// else is treated as ScopeOwn.
func NewIssueService(s store.Store, scope string) *IssueService {
	if scope != ScopeAny {
		scope = ScopeOwn
	}
	return &IssueService{store: s, scope: scope, now: time.Now}
}

func (s *IssueService) CreateIssue(ctx context.Context, actor models.Actor, in CreateIssueInput) (*IssueView, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	location := strings.TrimSpace(in.Location)
	if title == "" || description == "" || location == "" {
		return nil, fmt.Errorf("title, description and location are required: %w", apperrors.ErrValidation)
	}
	if in.Category != "" && !directory.ValidCategory(in.Category) {
		return nil, fmt.Errorf("unknown category %q: %w", in.Category, apperrors.ErrValidation)
	}
	priority := models.PriorityMedium
	if in.Priority != "" {
		p, ok := models.ParsePriority(in.Priority)
		if !ok {
			return nil, fmt.Errorf("unknown priority %q: %w", in.Priority, apperrors.ErrValidation)
		}
		priority = p
	}

	assignee, source, err := chooseAssignee(in.Category, in.AssignedTo)
	if err != nil {
		return nil, err
	}

	now := s.now()
	issue := models.Issue{
		Title:       title,
		Description: description,
		Location:    location,
		Category:    in.Category,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		ImageURL:    in.ImageURL,
		Status:      models.StatusOpen,
		Priority:    priority,
		UserID:      actor.UID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if assignee != "" {
		issue.AssignedTo = &assignee
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.InsertIssue(ctx, &issue); err != nil {
			return err
		}
		if assignee == "" {
			return nil
		}
		return tx.AddAssignedIssue(ctx, assignee, issue.ID)
	})
	if err != nil {
		return nil, err
	}

	issuesCreated.WithLabelValues(string(issue.Category)).Inc()
	if assignee != "" {
		issueAssignments.WithLabelValues(assignee, source).Inc()
	}
	logger.WithIssue(issue.ID, "issues").WithField("assigned_to", assignee).Info("issue created")

	view := present(issue)
	return &view, nil
}

// chooseAssignee applies the creation assignment rules and returns the
// organization id ("" for unassigned) and how it was chosen.
func chooseAssignee(category models.IssueCategory, requested string) (string, string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		matches := directory.ResolveOrganizations(category)
		if len(matches) == 0 {
			return "", "", nil
		}
		return matches[0].ID, assignAuto, nil
	}

	org, ok := directory.Lookup(requested)
	if !ok {
		return "", "", fmt.Errorf("organization %q: %w", requested, apperrors.ErrNotFound)
	}
	if category != "" && !org.Handles(category) {
		return "", "", fmt.Errorf("%s does not handle %s: %w", org.ID, category, apperrors.ErrInvalidAssignment)
	}
	return org.ID, assignExplicit, nil
}

func (s *IssueService) GetIssue(ctx context.Context, id string, viewerUID string) (*IssueView, error) {
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	views := s.withVotes(ctx, []models.Issue{*issue}, viewerUID)
	return &views[0], nil
}

func (s *IssueService) UpdateIssue(ctx context.Context, actor models.Actor, id string, in UpdateIssueInput) (*IssueView, error) {
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if issue.UserID != actor.UID {
		return nil, fmt.Errorf("only the reporter may edit issue %s: %w", id, apperrors.ErrForbidden)
	}

	update := store.IssueUpdate{
		Latitude:  in.Latitude,
		Longitude: in.Longitude,
		ImageURL:  in.ImageURL,
		UpdatedAt: s.now(),
	}
	for _, f := range []struct {
		in  *string
		out **string
		msg string
	}{
		{in.Title, &update.Title, "title"},
		{in.Description, &update.Description, "description"},
		{in.Location, &update.Location, "location"},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty: %w", f.msg, apperrors.ErrValidation)
		}
		*f.out = &v
	}

	previous := issue.AssignedOrganization()
	unassign := false
	if in.Category != nil && *in.Category != issue.Category {
		if *in.Category != "" && !directory.ValidCategory(*in.Category) {
			return nil, fmt.Errorf("unknown category %q: %w", *in.Category, apperrors.ErrValidation)
		}
		update.Category = in.Category
		if previous != "" && !directory.Handles(previous, *in.Category) {
			unassign = true
			update.SetAssignedTo = true
		}
	}

	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if unassign {
			if err := tx.RemoveAssignedIssue(ctx, previous, id); err != nil {
				return err
			}
		}
		return tx.UpdateIssue(ctx, id, update)
	})
	if err != nil {
		return nil, err
	}
	if unassign {
		issueAssignments.WithLabelValues(previous, assignCleared).Inc()
	}
	return s.GetIssue(ctx, id, actor.UID)
}

// canMutate applies the organization mutation scope. Reporters may always
// change their own issues.
func (s *IssueService) canMutate(actor models.Actor, issue *models.Issue) bool {
	if issue.UserID == actor.UID {
		return true
	}
	if !actor.ActsAsOrganization() {
		return false
	}
	if s.scope == ScopeAny {
		return true
	}
	assigned := issue.AssignedOrganization()
	if _, ok := directory.ByID(assigned); !ok {
		return true
	}
	return actorOrganizationID(actor) == assigned
}

// actorOrganizationID finds the directory id an organization actor speaks for.
func actorOrganizationID(a models.Actor) string {
	if id := a.OrganizationID(); id != "" {
		return id
	}
	if a.User != nil && a.User.OrganizationName != nil {
		if id, ok := directory.LookupID(*a.User.OrganizationName); ok {
			return id
		}
	}
	if id, ok := directory.LookupID(a.Principal.OrganizationName); ok {
		return id
	}
	return ""
}

func (s *IssueService) UpdateStatus(ctx context.Context, actor models.Actor, id, status string) (*IssueView, error) {
	parsed, ok := models.ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("unknown status %q: %w", status, apperrors.ErrValidation)
	}
	return s.mutate(ctx, actor, id, store.IssueUpdate{Status: &parsed})
}

func (s *IssueService) UpdatePriority(ctx context.Context, actor models.Actor, id, priority string) (*IssueView, error) {
	parsed, ok := models.ParsePriority(priority)
	if !ok {
		return nil, fmt.Errorf("unknown priority %q: %w", priority, apperrors.ErrValidation)
	}
	return s.mutate(ctx, actor, id, store.IssueUpdate{Priority: &parsed})
}

func (s *IssueService) mutate(ctx context.Context, actor models.Actor, id string, update store.IssueUpdate) (*IssueView, error) {
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canMutate(actor, issue) {
		return nil, fmt.Errorf("issue %s: %w", id, apperrors.ErrForbidden)
	}
	update.UpdatedAt = s.now()
	if err := s.store.UpdateIssue(ctx, id, update); err != nil {
		return nil, err
	}
	return s.GetIssue(ctx, id, actor.UID)
}

// Reassign moves an issue to another organization. The previous set removal,
// the new set addition and the issue update run in that order in one
// transaction where the store supports it.
func (s *IssueService) Reassign(ctx context.Context, actor models.Actor, id, target string) (*IssueView, error) {
	if !actor.ActsAsOrganization() {
		return nil, fmt.Errorf("only organizations may reassign issues: %w", apperrors.ErrForbidden)
	}
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.canMutate(actor, issue) {
		return nil, fmt.Errorf("issue %s: %w", id, apperrors.ErrForbidden)
	}

	org, ok := directory.Lookup(strings.TrimSpace(target))
	if !ok {
		return nil, fmt.Errorf("organization %q: %w", target, apperrors.ErrNotFound)
	}
	if issue.Category != "" && !org.Handles(issue.Category) {
		return nil, fmt.Errorf("%s does not handle %s: %w", org.ID, issue.Category, apperrors.ErrInvalidAssignment)
	}

	previous := issue.AssignedOrganization()
	newID := org.ID
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if previous != "" && previous != newID {
			if err := tx.RemoveAssignedIssue(ctx, previous, id); err != nil {
				return err
			}
		}
		if err := tx.AddAssignedIssue(ctx, newID, id); err != nil {
			return err
		}
		return tx.UpdateIssue(ctx, id, store.IssueUpdate{
			SetAssignedTo: true,
			AssignedTo:    &newID,
			UpdatedAt:     s.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	issueAssignments.WithLabelValues(newID, assignReassign).Inc()
	logger.WithIssue(id, "issues").WithFields(map[string]interface{}{
		"from": previous,
		"to":   newID,
		"by":   actor.UID,
	}).Info("issue reassigned")
	return s.GetIssue(ctx, id, actor.UID)
}

// DeleteIssue removes an issue with its comments, votes and assignment.
func (s *IssueService) DeleteIssue(ctx context.Context, actor models.Actor, id string) error {
	issue, err := s.store.GetIssue(ctx, id)
	if err != nil {
		return err
	}
	if issue.UserID != actor.UID {
		return fmt.Errorf("only the reporter may delete issue %s: %w", id, apperrors.ErrForbidden)
	}

	owner := issue.AssignedOrganization()
	err = s.store.Atomic(ctx, func(ctx context.Context, tx store.Store) error {
		if _, err := tx.DeleteCommentsByIssue(ctx, id); err != nil {
			return err
		}
		if _, err := tx.DeleteVotesByIssue(ctx, id); err != nil {
			return err
		}
		if owner != "" {
			if err := tx.RemoveAssignedIssue(ctx, owner, id); err != nil {
				return err
			}
		}
		return tx.DeleteIssue(ctx, id)
	})
	if err != nil {
		return err
	}
	logger.WithIssue(id, "issues").Info("issue deleted")
	return nil
}

// ListIssues serves the community feed.
func (s *IssueService) ListIssues(ctx context.Context, q ListQuery, viewerUID string) (*IssuePage, error) {
	page, limit := q.Page, q.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := models.IssueFilter{
		Search: strings.TrimSpace(q.Search),
		Oldest: q.Sort == "oldest",
		Skip:   (page - 1) * limit,
		Limit:  limit,
	}
	if q.Status != "" && q.Status != "all" {
		status, ok := models.ParseStatus(q.Status)
		if !ok {
			return nil, fmt.Errorf("unknown status %q: %w", q.Status, apperrors.ErrValidation)
		}
		filter.Status = status
	}
	if q.Category != "" && q.Category != "all" {
		category := models.IssueCategory(q.Category)
		if !directory.ValidCategory(category) {
			return nil, fmt.Errorf("unknown category %q: %w", q.Category, apperrors.ErrValidation)
		}
		filter.Category = category
	}

	issues, total, err := s.store.ListIssues(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &IssuePage{
		Issues:      s.withVotes(ctx, issues, viewerUID),
		TotalIssues: total,
		TotalPages:  int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage: page,
		Limit:       limit,
	}, nil
}

// ListIssuesForOrganization returns issues whose assignedTo is orgID. Ids in
// the organization's assigned set that no longer resolve are ignored, as are
// issues in a category the organization does not service, which render as
// unassigned.
func (s *IssueService) ListIssuesForOrganization(ctx context.Context, orgID string) ([]IssueView, error) {
	org, ok := directory.ByID(orgID)
	if !ok {
		return nil, fmt.Errorf("organization %q: %w", orgID, apperrors.ErrNotFound)
	}
	issues, _, err := s.store.ListIssues(ctx, models.IssueFilter{AssignedTo: orgID})
	if err != nil {
		return nil, err
	}
	serviced := issues[:0]
	for _, issue := range issues {
		if issue.Category == "" || org.Handles(issue.Category) {
			serviced = append(serviced, issue)
		}
	}
	return s.withVotes(ctx, serviced, ""), nil
}

// ListIssuesForActor returns the issues an organization actor is responsible for.
func (s *IssueService) ListIssuesForActor(ctx context.Context, actor models.Actor) ([]IssueView, error) {
	orgID := actorOrganizationID(actor)
	if orgID == "" {
		return []IssueView{}, nil
	}
	return s.ListIssuesForOrganization(ctx, orgID)
}

func (s *IssueService) ListIssuesForUser(ctx context.Context, uid string) ([]IssueView, error) {
	issues, _, err := s.store.ListIssues(ctx, models.IssueFilter{UserID: uid})
	if err != nil {
		return nil, err
	}
	return s.withVotes(ctx, issues, uid), nil
}

func (s *IssueService) ListComments(ctx context.Context, issueID string) ([]models.Comment, error) {
	if _, err := s.store.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, issueID)
}

func (s *IssueService) AddComment(ctx context.Context, actor models.Actor, issueID, content string) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required: %w", apperrors.ErrValidation)
	}
	if _, err := s.store.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}
	comment := &models.Comment{
		Content:   content,
		UserID:    actor.UID,
		IssueID:   issueID,
		CreatedAt: s.now(),
	}
	if err := s.store.InsertComment(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// ToggleVote casts the actor's vote, or removes it when already cast.
func (s *IssueService) ToggleVote(ctx context.Context, actor models.Actor, issueID string) (*VoteResult, error) {
	if _, err := s.store.GetIssue(ctx, issueID); err != nil {
		return nil, err
	}

	removed, err := s.store.DeleteVote(ctx, issueID, actor.UID)
	if err != nil {
		return nil, err
	}
	voted := false
	if !removed {
		err := s.store.InsertVote(ctx, &models.Vote{IssueID: issueID, UserID: actor.UID, CreatedAt: s.now()})
		if err != nil && !errors.Is(err, apperrors.ErrConflict) {
			return nil, err
		}
		voted = true
	}

	votes, err := s.store.CountVotes(ctx, issueID)
	if err != nil {
		return nil, err
	}
	return &VoteResult{Voted: voted, Votes: votes}, nil
}

// RecentWithCoordinates returns the newest issues that can be placed on a map.
func (s *IssueService) RecentWithCoordinates(ctx context.Context, limit int) ([]MapIssue, error) {
	if limit < 1 || limit > maxPageSize {
		limit = recentMapLimit
	}
	issues, _, err := s.store.ListIssues(ctx, models.IssueFilter{WithCoordinates: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]MapIssue, 0, len(issues))
	for _, issue := range issues {
		if issue.Latitude == nil || issue.Longitude == nil {
			continue
		}
		out = append(out, MapIssue{
			ID:        issue.ID,
			Title:     issue.Title,
			Latitude:  *issue.Latitude,
			Longitude: *issue.Longitude,
			Location:  issue.Location,
			Category:  issue.Category,
			CreatedAt: issue.CreatedAt,
		})
	}
	return out, nil
}

// Stats aggregates the feed dashboard numbers.
func (s *IssueService) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	var (
		byCategory map[models.IssueCategory]int64
		byStatus   map[models.IssueStatus]int64
		recent     []models.Issue
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		byCategory, err = s.store.CountIssuesByCategory(gctx)
		return err
	})
	g.Go(func() (err error) {
		byStatus, err = s.store.CountIssuesByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.TotalVotes, err = s.store.CountAllVotes(gctx)
		return err
	})
	g.Go(func() (err error) {
		stats.Last7Days, err = s.last7Days(gctx)
		return err
	})
	g.Go(func() (err error) {
		recent, _, err = s.store.ListIssues(gctx, models.IssueFilter{Limit: 50})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats.IssuesByCategory = make([]CategoryCount, 0, len(byCategory))
	for category, n := range byCategory {
		stats.IssuesByCategory = append(stats.IssuesByCategory, CategoryCount{Name: category, Value: n})
		stats.TotalIssues += n
	}
	sort.Slice(stats.IssuesByCategory, func(i, j int) bool {
		a, b := stats.IssuesByCategory[i], stats.IssuesByCategory[j]
		if a.Value == b.Value {
			return a.Name < b.Name
		}
		return a.Value > b.Value
	})
	stats.IssuesByStatus = byStatus
	stats.OpenIssues = byStatus[models.StatusOpen] + byStatus[models.StatusInProgress]

	stats.TopVotedIssues = make([]VotedIssue, 0, len(recent))
	for _, issue := range recent {
		votes, err := s.store.CountVotes(ctx, issue.ID)
		if err != nil {
			votes = 0
		}
		stats.TopVotedIssues = append(stats.TopVotedIssues, VotedIssue{
			ID: issue.ID, Title: issue.Title, Category: issue.Category, Votes: votes,
		})
	}
	sort.SliceStable(stats.TopVotedIssues, func(i, j int) bool {
		return stats.TopVotedIssues[i].Votes > stats.TopVotedIssues[j].Votes
	})
	if len(stats.TopVotedIssues) > topVotedLimit {
		stats.TopVotedIssues = stats.TopVotedIssues[:topVotedLimit]
	}
	return stats, nil
}

func (s *IssueService) last7Days(ctx context.Context) ([]DayCount, error) {
	now := s.now()
	days := make([]DayCount, 0, 7)
	for i := 6; i >= 0; i-- {
		date := now.AddDate(0, 0, -i)
		date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
		n, err := s.store.CountIssues(ctx, models.IssueFilter{CreatedFrom: date, CreatedTo: date.AddDate(0, 0, 1)})
		if err != nil {
			return nil, err
		}
		days = append(days, DayCount{Date: date.Format("2006-01-02"), Count: n})
	}
	return days, nil
}

// withVotes renders issues with vote counts. Vote lookup failures render as
// zero votes rather than failing the read.
func (s *IssueService) withVotes(ctx context.Context, issues []models.Issue, viewerUID string) []IssueView {
	out := make([]IssueView, 0, len(issues))
	for _, issue := range issues {
		view := present(issue)
		if n, err := s.store.CountVotes(ctx, issue.ID); err == nil {
			view.Votes = n
		}
		if viewerUID != "" {
			if voted, err := s.store.HasVoted(ctx, issue.ID, viewerUID); err == nil {
				view.UserHasVoted = voted
			}
		}
		out = append(out, view)
	}
	return out
}

// present renders an issue whose assignee is not a directory organization,
// or does not service the issue's category, as unassigned.
func present(issue models.Issue) IssueView {
	view := IssueView{Issue: issue}
	if issue.AssignedTo == nil {
		return view
	}
	org, ok := directory.ByID(*issue.AssignedTo)
	if !ok || (issue.Category != "" && !org.Handles(issue.Category)) {
		view.AssignedTo = nil
		return view
	}
	view.Organization = &org
	return view
}
