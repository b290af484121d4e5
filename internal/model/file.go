package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// File is a reference to an uploaded binary. The bytes live in external
// storage; only ownership and soft-delete state are tracked here.
type File struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	FileName    string    `gorm:"type:text" json:"file_name"`
	Extension   string    `gorm:"type:text" json:"extension"`
	StorageKey  string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	IsDeleted   bool      `gorm:"not null;default:false" json:"-"`
}

// BeforeCreate assigns an id when the caller did not
func (f *File) BeforeCreate(_ *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

// Profile is the job seeker profile of a user
type Profile struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	Headline     *string    `gorm:"type:text" json:"headline,omitempty"`
	ResumeFileID *uuid.UUID `gorm:"type:uuid" json:"resume_file_id,omitempty"`
	ResumeFile   *File      `gorm:"foreignKey:ResumeFileID;references:ID" json:"-"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// BeforeCreate assigns an id when the caller did not
func (p *Profile) BeforeCreate(_ *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
