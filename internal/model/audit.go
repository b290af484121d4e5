package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Entity types recorded in the audit log
const (
	EntityJobPost      = "job_post"
	EntityRegistration = "company_registration_request"
)

// AuditRecord is an append-only record of a job post or registration
// request transition. Application transitions live in ApplicationHistory.
type AuditRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	EntityType string    `gorm:"type:text;not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_audit_entity" json:"entity_id"`
	OldState   string    `gorm:"type:text;not null" json:"old_state"`
	NewState   string    `gorm:"type:text;not null" json:"new_state"`
	Note       string    `gorm:"type:text" json:"note"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null" json:"actor_id"`
	At         time.Time `gorm:"not null" json:"at"`
	// Seq is assigned by the database on insert
	Seq int64 `gorm:"->;-:migration" json:"-"`
}

// BeforeCreate assigns an id when the caller did not
func (a *AuditRecord) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
