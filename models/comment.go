package models

import "time"

// Comment is a note left on an issue. Deleted together with its issue.
type Comment struct {
	ID        string    `bson:"_id" json:"id" gorm:"primaryKey;type:varchar(64)"`
	Content   string    `bson:"content" json:"content" gorm:"not null"`
	UserID    string    `bson:"userId" json:"userId" gorm:"not null"`
	IssueID   string    `bson:"issueId" json:"issueId" gorm:"index;not null"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
}

func (Comment) TableName() string { return "comments" }
