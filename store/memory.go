package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"civicconnect-be/models"

	"github.com/google/uuid"
)

type memoryData struct {
	issues      map[string]models.Issue
	assignments map[string]map[string]struct{}
	comments    map[string]models.Comment
	votes       map[string]models.Vote
	users       map[string]models.User
	profiles    map[string]models.OrganizationProfile
}

func newMemoryData() memoryData {
	return memoryData{
		issues:      map[string]models.Issue{},
		assignments: map[string]map[string]struct{}{},
		comments:    map[string]models.Comment{},
		votes:       map[string]models.Vote{},
		users:       map[string]models.User{},
		profiles:    map[string]models.OrganizationProfile{},
	}
}

func (d memoryData) clone() memoryData {
	c := newMemoryData()
	for k, v := range d.issues {
		c.issues[k] = v
	}
	for org, set := range d.assignments {
		cs := make(map[string]struct{}, len(set))
		for id := range set {
			cs[id] = struct{}{}
		}
		c.assignments[org] = cs
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	for k, v := range d.votes {
		c.votes[k] = v
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	return c
}

// MemoryStore keeps everything in process memory. Atomic holds the write
// lock for the whole transaction and runs fn against a private copy that is
// swapped in on success, so other writers wait rather than being rolled back.
type MemoryStore struct {
	mu   rwLocker
	data memoryData
}

type rwLocker interface {
	Lock()
	Unlock()
	RLock()
	RUnlock()
}

// txLock is the lock of a transaction view; the parent already holds mu.
type txLock struct{}

func (txLock) Lock()    {}
func (txLock) Unlock()  {}
func (txLock) RLock()   {}
func (txLock) RUnlock() {}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{mu: &sync.RWMutex{}, data: newMemoryData()}
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &MemoryStore{mu: txLock{}, data: s.data.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *MemoryStore) Ping(ctx context.Context) error  { return nil }
func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (s *MemoryStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if _, exists := s.data.issues[issue.ID]; exists {
		return conflict("issue", issue.ID)
	}
	s.data.issues[issue.ID] = copyIssue(*issue)
	return nil
}

func (s *MemoryStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	issue, ok := s.data.issues[id]
	if !ok {
		return nil, notFound("issue", id)
	}
	out := copyIssue(issue)
	return &out, nil
}

func (s *MemoryStore) UpdateIssue(ctx context.Context, id string, u IssueUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	issue, ok := s.data.issues[id]
	if !ok {
		return notFound("issue", id)
	}
	if u.Title != nil {
		issue.Title = *u.Title
	}
	if u.Description != nil {
		issue.Description = *u.Description
	}
	if u.Location != nil {
		issue.Location = *u.Location
	}
	if u.Category != nil {
		issue.Category = *u.Category
	}
	if u.Latitude != nil {
		v := *u.Latitude
		issue.Latitude = &v
	}
	if u.Longitude != nil {
		v := *u.Longitude
		issue.Longitude = &v
	}
	if u.ImageURL != nil {
		v := *u.ImageURL
		issue.ImageURL = &v
	}
	if u.Status != nil {
		issue.Status = *u.Status
	}
	if u.Priority != nil {
		issue.Priority = *u.Priority
	}
	if u.SetAssignedTo {
		issue.AssignedTo = nil
		if u.AssignedTo != nil {
			v := *u.AssignedTo
			issue.AssignedTo = &v
		}
	}
	if !u.UpdatedAt.IsZero() {
		issue.UpdatedAt = u.UpdatedAt
	}
	s.data.issues[id] = issue
	return nil
}

func (s *MemoryStore) DeleteIssue(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.issues[id]; !ok {
		return notFound("issue", id)
	}
	delete(s.data.issues, id)
	return nil
}

func matchesFilter(issue models.Issue, f models.IssueFilter) bool {
	if f.Status != "" && issue.Status != f.Status {
		return false
	}
	if f.Category != "" && issue.Category != f.Category {
		return false
	}
	if f.UserID != "" && issue.UserID != f.UserID {
		return false
	}
	if f.AssignedTo != "" && issue.AssignedOrganization() != f.AssignedTo {
		return false
	}
	if f.WithCoordinates && (issue.Latitude == nil || issue.Longitude == nil) {
		return false
	}
	if !f.CreatedFrom.IsZero() && issue.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && !issue.CreatedAt.Before(f.CreatedTo) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(issue.Title), q) && !strings.Contains(strings.ToLower(issue.Description), q) {
			return false
		}
	}
	return true
}

func (s *MemoryStore) ListIssues(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	s.mu.RLock()
	matched := make([]models.Issue, 0, len(s.data.issues))
	for _, issue := range s.data.issues {
		if matchesFilter(issue, f) {
			matched = append(matched, copyIssue(issue))
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		if f.Oldest {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := int64(len(matched))
	if f.Skip > 0 {
		if f.Skip >= len(matched) {
			return []models.Issue{}, total, nil
		}
		matched = matched[f.Skip:]
	}
	if f.Limit > 0 && len(matched) > f.Limit {
		matched = matched[:f.Limit]
	}
	return matched, total, nil
}

func (s *MemoryStore) CountIssues(ctx context.Context, f models.IssueFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, issue := range s.data.issues {
		if matchesFilter(issue, f) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountIssuesByCategory(ctx context.Context) (map[models.IssueCategory]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[models.IssueCategory]int64{}
	for _, issue := range s.data.issues {
		out[issue.Category]++
	}
	return out, nil
}

func (s *MemoryStore) CountIssuesByStatus(ctx context.Context) (map[models.IssueStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[models.IssueStatus]int64{}
	for _, issue := range s.data.issues {
		out[issue.Status]++
	}
	return out, nil
}

func (s *MemoryStore) AddAssignedIssue(ctx context.Context, orgID, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.data.assignments[orgID]
	if !ok {
		set = map[string]struct{}{}
		s.data.assignments[orgID] = set
	}
	set[issueID] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveAssignedIssue(ctx context.Context, orgID, issueID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.data.assignments[orgID]; ok {
		delete(set, issueID)
	}
	return nil
}

func (s *MemoryStore) GetAssignments(ctx context.Context, orgID string) (*models.OrganizationAssignments, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := &models.OrganizationAssignments{OrganizationID: orgID, AssignedIssues: []string{}}
	for id := range s.data.assignments[orgID] {
		out.AssignedIssues = append(out.AssignedIssues, id)
	}
	sort.Strings(out.AssignedIssues)
	return out, nil
}

func (s *MemoryStore) InsertComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	s.data.comments[comment.ID] = *comment
	return nil
}

func (s *MemoryStore) ListComments(ctx context.Context, issueID string) ([]models.Comment, error) {
	s.mu.RLock()
	out := []models.Comment{}
	for _, c := range s.data.comments {
		if c.IssueID == issueID {
			out = append(out, c)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteCommentsByIssue(ctx context.Context, issueID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, c := range s.data.comments {
		if c.IssueID == issueID {
			delete(s.data.comments, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.data.votes {
		if v.IssueID == vote.IssueID && v.UserID == vote.UserID {
			return conflict("vote", vote.IssueID)
		}
	}
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	s.data.votes[vote.ID] = *vote
	return nil
}

func (s *MemoryStore) DeleteVote(ctx context.Context, issueID, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, v := range s.data.votes {
		if v.IssueID == issueID && v.UserID == userID {
			delete(s.data.votes, id)
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) HasVoted(ctx context.Context, issueID, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.data.votes {
		if v.IssueID == issueID && v.UserID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CountVotes(ctx context.Context, issueID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, v := range s.data.votes {
		if v.IssueID == issueID {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CountAllVotes(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.data.votes)), nil
}

func (s *MemoryStore) DeleteVotesByIssue(ctx context.Context, issueID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, v := range s.data.votes {
		if v.IssueID == issueID {
			delete(s.data.votes, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.data.users {
		if strings.EqualFold(u.Email, user.Email) {
			return conflict("user", user.Email)
		}
	}
	if user.UID == "" {
		user.UID = uuid.NewString()
	}
	s.data.users[user.UID] = *user
	return nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.data.users[uid]
	if !ok {
		return nil, notFound("user", uid)
	}
	return &u, nil
}

func (s *MemoryStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.data.users {
		if strings.EqualFold(u.Email, email) {
			out := u
			return &out, nil
		}
	}
	return nil, notFound("user", email)
}

func (s *MemoryStore) UpsertUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.users[user.UID] = *user
	return nil
}

func (s *MemoryStore) GetOrganizationProfile(ctx context.Context, uid string) (*models.OrganizationProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.data.profiles[uid]
	if !ok {
		return nil, notFound("organization profile", uid)
	}
	return &p, nil
}

func (s *MemoryStore) UpsertOrganizationProfile(ctx context.Context, profile *models.OrganizationProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.profiles[profile.UID] = *profile
	return nil
}

func (s *MemoryStore) DeleteOrganizationProfile(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.profiles, uid)
	return nil
}

func copyIssue(in models.Issue) models.Issue {
	out := in
	if in.Latitude != nil {
		v := *in.Latitude
		out.Latitude = &v
	}
	if in.Longitude != nil {
		v := *in.Longitude
		out.Longitude = &v
	}
	if in.ImageURL != nil {
		v := *in.ImageURL
		out.ImageURL = &v
	}
	if in.AssignedTo != nil {
		v := *in.AssignedTo
		out.AssignedTo = &v
	}
	return out
}

var _ Store = (*MemoryStore)(nil)
