// Package model contain gorm model for recording data to database
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles a user can hold
const (
	RoleAdmin    = "ADMIN"
	RoleEmployer = "EMPLOYER"
	RoleStudent  = "STUDENT"
)

// User is an account able to authenticate
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string     `gorm:"type:text;uniqueIndex;not null" json:"username"`
	Email     *string    `gorm:"type:text" json:"email,omitempty"`
	FullName  string     `gorm:"type:text" json:"full_name"`
	Password  string     `gorm:"type:text" json:"-"`
	Roles     []UserRole `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"roles"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserRole is one role granted to a user. The composite key makes a grant
// idempotent.
type UserRole struct {
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Role       string    `gorm:"type:text;primaryKey" json:"role"`
	AssignedAt time.Time `json:"assigned_at"`
}

// BeforeCreate assigns an id when the caller did not
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// RoleNames returns the names of every role the user holds
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Role)
	}
	return names
}
