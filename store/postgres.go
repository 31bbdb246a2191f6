package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicconnect-be/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// assignedIssueRow is one member of an organization's assigned issue set.
type assignedIssueRow struct {
	OrganizationID string `gorm:"primaryKey;type:varchar(64)"`
	IssueID        string `gorm:"primaryKey;type:varchar(64);index"`
	CreatedAt      time.Time
}

func (assignedIssueRow) TableName() string { return "organization_assigned_issues" }

// PostgresStore persists to PostgreSQL through gorm. Open the *gorm.DB with
// TranslateError enabled so unique violations surface as ErrConflict.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// AutoMigrate creates or updates the tables used by the store.
func (s *PostgresStore) AutoMigrate() error {
	return s.db.AutoMigrate(
		&models.Issue{},
		&models.User{},
		&models.OrganizationProfile{},
		&models.Comment{},
		&models.Vote{},
		&assignedIssueRow{},
	)
}

func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &PostgresStore{db: tx})
	})
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return upstream("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return upstream("ping", err)
	}
	return nil
}

func (s *PostgresStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *PostgresStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(issue).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflict("issue", issue.ID)
		}
		return upstream("insert issue", err)
	}
	return nil
}

func (s *PostgresStore) GetIssue(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	if err := s.db.WithContext(ctx).First(&issue, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("issue", id)
		}
		return nil, upstream("find issue", err)
	}
	return &issue, nil
}

func (s *PostgresStore) UpdateIssue(ctx context.Context, id string, u IssueUpdate) error {
	fields := map[string]interface{}{}
	if u.Title != nil {
		fields["title"] = *u.Title
	}
	if u.Description != nil {
		fields["description"] = *u.Description
	}
	if u.Location != nil {
		fields["location"] = *u.Location
	}
	if u.Category != nil {
		fields["category"] = *u.Category
	}
	if u.Latitude != nil {
		fields["latitude"] = *u.Latitude
	}
	if u.Longitude != nil {
		fields["longitude"] = *u.Longitude
	}
	if u.ImageURL != nil {
		fields["image_url"] = *u.ImageURL
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if u.Priority != nil {
		fields["priority"] = *u.Priority
	}
	if u.SetAssignedTo {
		if u.AssignedTo != nil {
			fields["assigned_to"] = *u.AssignedTo
		} else {
			fields["assigned_to"] = nil
		}
	}
	if !u.UpdatedAt.IsZero() {
		fields["updated_at"] = u.UpdatedAt
	}
	if len(fields) == 0 {
		_, err := s.GetIssue(ctx, id)
		return err
	}

	result := s.db.WithContext(ctx).Model(&models.Issue{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return upstream("update issue", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("issue", id)
	}
	return nil
}

func (s *PostgresStore) DeleteIssue(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Issue{}, "id = ?", id)
	if result.Error != nil {
		return upstream("delete issue", result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound("issue", id)
	}
	return nil
}

func (s *PostgresStore) issueQuery(ctx context.Context, f models.IssueFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Issue{})
	if f.Status != "" {
		q = q.Where("status IN ?", models.StatusAliases(f.Status))
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.UserID != "" {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.AssignedTo != "" {
		q = q.Where("assigned_to = ?", f.AssignedTo)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.WithCoordinates {
		q = q.Where("latitude IS NOT NULL AND longitude IS NOT NULL")
	}
	if !f.CreatedFrom.IsZero() {
		q = q.Where("created_at >= ?", f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		q = q.Where("created_at < ?", f.CreatedTo)
	}
	return q
}

func (s *PostgresStore) ListIssues(ctx context.Context, f models.IssueFilter) ([]models.Issue, int64, error) {
	var total int64
	if err := s.issueQuery(ctx, f).Count(&total).Error; err != nil {
		return nil, 0, upstream("count issues", err)
	}

	order := "created_at DESC, id DESC"
	if f.Oldest {
		order = "created_at ASC, id ASC"
	}
	q := s.issueQuery(ctx, f).Order(order)
	if f.Skip > 0 {
		q = q.Offset(f.Skip)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	issues := []models.Issue{}
	if err := q.Find(&issues).Error; err != nil {
		return nil, 0, upstream("find issues", err)
	}
	return issues, total, nil
}

func (s *PostgresStore) CountIssues(ctx context.Context, f models.IssueFilter) (int64, error) {
	var total int64
	if err := s.issueQuery(ctx, f).Count(&total).Error; err != nil {
		return 0, upstream("count issues", err)
	}
	return total, nil
}

type columnCount struct {
	Key   string
	Count int64
}

func (s *PostgresStore) groupIssuesBy(ctx context.Context, column string) ([]columnCount, error) {
	var rows []columnCount
	err := s.db.WithContext(ctx).Model(&models.Issue{}).
		Select("COALESCE(" + column + ", '') AS key, COUNT(*) AS count").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, upstream("group issues", err)
	}
	return rows, nil
}

func (s *PostgresStore) CountIssuesByCategory(ctx context.Context) (map[models.IssueCategory]int64, error) {
	rows, err := s.groupIssuesBy(ctx, "category")
	if err != nil {
		return nil, err
	}
	out := map[models.IssueCategory]int64{}
	for _, row := range rows {
		out[models.IssueCategory(row.Key)] += row.Count
	}
	return out, nil
}

func (s *PostgresStore) CountIssuesByStatus(ctx context.Context) (map[models.IssueStatus]int64, error) {
	rows, err := s.groupIssuesBy(ctx, "status")
	if err != nil {
		return nil, err
	}
	out := map[models.IssueStatus]int64{}
	for _, row := range rows {
		status := models.StatusOpen
		if parsed, ok := models.ParseStatus(row.Key); ok {
			status = parsed
		}
		out[status] += row.Count
	}
	return out, nil
}

func (s *PostgresStore) AddAssignedIssue(ctx context.Context, orgID, issueID string) error {
	row := assignedIssueRow{OrganizationID: orgID, IssueID: issueID, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error; err != nil {
		return upstream("add assigned issue", err)
	}
	return nil
}

func (s *PostgresStore) RemoveAssignedIssue(ctx context.Context, orgID, issueID string) error {
	err := s.db.WithContext(ctx).
		Where("organization_id = ? AND issue_id = ?", orgID, issueID).
		Delete(&assignedIssueRow{}).Error
	if err != nil {
		return upstream("remove assigned issue", err)
	}
	return nil
}

func (s *PostgresStore) GetAssignments(ctx context.Context, orgID string) (*models.OrganizationAssignments, error) {
	var rows []assignedIssueRow
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", orgID).
		Order("issue_id").
		Find(&rows).Error
	if err != nil {
		return nil, upstream("find assignments", err)
	}
	out := &models.OrganizationAssignments{OrganizationID: orgID, AssignedIssues: make([]string, 0, len(rows))}
	for _, row := range rows {
		out.AssignedIssues = append(out.AssignedIssues, row.IssueID)
		if row.CreatedAt.After(out.UpdatedAt) {
			out.UpdatedAt = row.CreatedAt
		}
	}
	return out, nil
}

func (s *PostgresStore) InsertComment(ctx context.Context, comment *models.Comment) error {
	if comment.ID == "" {
		comment.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return upstream("insert comment", err)
	}
	return nil
}

func (s *PostgresStore) ListComments(ctx context.Context, issueID string) ([]models.Comment, error) {
	comments := []models.Comment{}
	err := s.db.WithContext(ctx).
		Where("issue_id = ?", issueID).
		Order("created_at DESC").
		Find(&comments).Error
	if err != nil {
		return nil, upstream("find comments", err)
	}
	return comments, nil
}

func (s *PostgresStore) DeleteCommentsByIssue(ctx context.Context, issueID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("issue_id = ?", issueID).Delete(&models.Comment{})
	if result.Error != nil {
		return 0, upstream("delete comments", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PostgresStore) InsertVote(ctx context.Context, vote *models.Vote) error {
	if vote.ID == "" {
		vote.ID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(vote).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflict("vote", vote.IssueID)
		}
		return upstream("insert vote", err)
	}
	return nil
}

func (s *PostgresStore) DeleteVote(ctx context.Context, issueID, userID string) (bool, error) {
	result := s.db.WithContext(ctx).Where("issue_id = ? AND user_id = ?", issueID, userID).Delete(&models.Vote{})
	if result.Error != nil {
		return false, upstream("delete vote", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *PostgresStore) HasVoted(ctx context.Context, issueID, userID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Vote{}).Where("issue_id = ? AND user_id = ?", issueID, userID).Count(&count).Error
	if err != nil {
		return false, upstream("count votes", err)
	}
	return count > 0, nil
}

func (s *PostgresStore) CountVotes(ctx context.Context, issueID string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Vote{}).Where("issue_id = ?", issueID).Count(&count).Error; err != nil {
		return 0, upstream("count votes", err)
	}
	return count, nil
}

func (s *PostgresStore) CountAllVotes(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Vote{}).Count(&count).Error; err != nil {
		return 0, upstream("count votes", err)
	}
	return count, nil
}

func (s *PostgresStore) DeleteVotesByIssue(ctx context.Context, issueID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("issue_id = ?", issueID).Delete(&models.Vote{})
	if result.Error != nil {
		return 0, upstream("delete votes", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.UID == "" {
		user.UID = uuid.NewString()
	}
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return conflict("user", user.Email)
		}
		return upstream("insert user", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", uid)
		}
		return nil, upstream("find user", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "LOWER(email) = ?", strings.ToLower(email)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user", email)
		}
		return nil, upstream("find user", err)
	}
	return &user, nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Save(user).Error; err != nil {
		return upstream("upsert user", err)
	}
	return nil
}

func (s *PostgresStore) GetOrganizationProfile(ctx context.Context, uid string) (*models.OrganizationProfile, error) {
	var profile models.OrganizationProfile
	if err := s.db.WithContext(ctx).First(&profile, "uid = ?", uid).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("organization profile", uid)
		}
		return nil, upstream("find organization profile", err)
	}
	return &profile, nil
}

func (s *PostgresStore) UpsertOrganizationProfile(ctx context.Context, profile *models.OrganizationProfile) error {
	if err := s.db.WithContext(ctx).Save(profile).Error; err != nil {
		return upstream("upsert organization profile", err)
	}
	return nil
}

func (s *PostgresStore) DeleteOrganizationProfile(ctx context.Context, uid string) error {
	if err := s.db.WithContext(ctx).Delete(&models.OrganizationProfile{}, "uid = ?", uid).Error; err != nil {
		return upstream("delete organization profile", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
