package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompanyProfile is the public description of a company, proposed by a
// registration request and copied onto the company on approval
type CompanyProfile struct {
	Name        string   `gorm:"type:text;not null" json:"name" validate:"required,max=200"`
	Description *string  `gorm:"type:text" json:"description,omitempty"`
	WebsiteURL  *string  `gorm:"type:text" json:"website_url,omitempty" validate:"omitempty,url"`
	EmailPublic *string  `gorm:"type:text" json:"email_public,omitempty" validate:"omitempty,email"`
	PhonePublic *string  `gorm:"type:text" json:"phone_public,omitempty"`
	PostalCode  *string  `gorm:"type:text" json:"postal_code,omitempty"`
	Latitude    *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`

	Address `gorm:"embedded"`
}

// Verification states of a company
const (
	CompanyUnverified int8 = 0
	CompanyVerified   int8 = 1
)

// Company is an employer organisation owned by one user
type Company struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Owner       *User     `gorm:"foreignKey:OwnerUserID;references:ID" json:"-"`
	CompanyProfile
	Verification int8      `gorm:"type:smallint;not null;default:0" json:"verification"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	IsDeleted    bool      `gorm:"not null;default:false" json:"-"`
}

// BeforeCreate assigns an id when the caller did not
func (c *Company) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
