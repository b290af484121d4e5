// Package audit appends transition records. Appends always run on the
// transaction that performs the state change so both commit or neither does.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/model"
)

// Orderings of the two logs. seq breaks ties between rows written at the
// same instant.
const (
	NewestHistoryFirst = "changed_at DESC, seq DESC"
	NewestRecordFirst  = "at DESC, seq DESC"
)

// Entry describes one transition of a job post or registration request
type Entry struct {
	EntityType string
	EntityID   uuid.UUID
	From       fmt.Stringer
	To         fmt.Stringer
	Note       string
	Actor      uuid.UUID
	At         time.Time
}

// Append writes a generic audit record on tx
func Append(tx *gorm.DB, e Entry) error {
	rec := model.AuditRecord{
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldState:   e.From.String(),
		NewState:   e.To.String(),
		Note:       e.Note,
		ActorID:    e.Actor,
		At:         e.At,
	}
	if err := tx.Create(&rec).Error; err != nil {
		return fmt.Errorf("append audit record for %s %s: %w", e.EntityType, e.EntityID, err)
	}
	return nil
}

// AppendApplication writes one application history record on tx
func AppendApplication(
	tx *gorm.DB,
	applicationID uuid.UUID,
	from, to model.ApplicationStatus,
	note string,
	actor uuid.UUID,
	at time.Time,
) (model.ApplicationHistory, error) {
	h := model.ApplicationHistory{
		ApplicationID: applicationID,
		OldStatus:     from,
		NewStatus:     to,
		Note:          note,
		ChangedBy:     actor,
		ChangedAt:     at,
	}
	if err := tx.Create(&h).Error; err != nil {
		return h, fmt.Errorf("append history for application %s: %w", applicationID, err)
	}
	return h, nil
}

// ApplicationHistory returns the history of one application, newest first
func ApplicationHistory(db *gorm.DB, applicationID uuid.UUID) ([]model.ApplicationHistory, error) {
	var history []model.ApplicationHistory
	err := db.Where("application_id = ?", applicationID).
		Order(NewestHistoryFirst).
		Find(&history).Error
	return history, err
}

// Records returns the audit trail of one entity, newest first
func Records(db *gorm.DB, entityType string, entityID uuid.UUID) ([]model.AuditRecord, error) {
	var records []model.AuditRecord
	err := db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order(NewestRecordFirst).
		Find(&records).Error
	return records, err
}
