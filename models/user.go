package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is the stored record of a registered principal, keyed by uid.
type User struct {
	UID              string    `bson:"_id" json:"uid" gorm:"primaryKey;type:varchar(64)"`
	Username         string    `bson:"username" json:"username"`
	Email            string    `bson:"email" json:"email" gorm:"uniqueIndex;not null"`
	Password         string    `bson:"password,omitempty" json:"-"`
	IsOrganization   bool      `bson:"isOrganization" json:"isOrganization"`
	Role             string    `bson:"role,omitempty" json:"role,omitempty"`
	OrganizationName *string   `bson:"organizationName,omitempty" json:"organizationName"`
	CreatedAt        time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt        time.Time `bson:"updatedAt" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

func (u *User) HashPassword() error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

func (u *User) ComparePassword(candidate string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(candidate))
	return err == nil
}

// ClaimsOrganization reports whether the record itself marks an organization.
func (u *User) ClaimsOrganization() bool {
	return u.IsOrganization || u.Role == string(KindOrganization)
}
