package models

import "time"

// Vote represents a user's vote on an issue
type Vote struct {
	ID        string    `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(64)"`
	IssueID   string    `bson:"issue" json:"issue" gorm:"uniqueIndex:idx_votes_issue_user;not null"`
	UserID    string    `bson:"user" json:"user" gorm:"uniqueIndex:idx_votes_issue_user;not null"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (Vote) TableName() string { return "votes" }
