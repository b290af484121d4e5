package model

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShiftInfo describes when a shift of a job post is worked. Times are
// wall-clock "15:04" strings and DayOfWeek counts from Sunday = 0. Nil fields
// are unset, and in an update they are left untouched.
type ShiftInfo struct {
	ShiftName *string `gorm:"type:text" json:"shift_name,omitempty" validate:"omitempty,notblank,max=100"`
	DayOfWeek *int8   `json:"day_of_week,omitempty" validate:"omitempty,min=0,max=6"`
	StartTime *string `gorm:"type:varchar(5)" json:"start_time,omitempty" validate:"omitempty,datetime=15:04"`
	EndTime   *string `gorm:"type:varchar(5)" json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Note      *string `gorm:"type:text" json:"note,omitempty" validate:"omitempty,max=500"`
}

// JobShift is gorm model for one working slot of a job post
type JobShift struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobPostID uuid.UUID `gorm:"type:uuid;not null;index" json:"job_post_id"`
	JobPost   *JobPost  `gorm:"foreignKey:JobPostID;references:ID" json:"-"`
	ShiftInfo
}

// BeforeCreate assigns an id when the caller did not
func (s *JobShift) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// Apply copies every non-nil field of patch onto s
func (s *ShiftInfo) Apply(patch ShiftInfo) {
	if patch.ShiftName != nil {
		s.ShiftName = patch.ShiftName
	}
	if patch.DayOfWeek != nil {
		s.DayOfWeek = patch.DayOfWeek
	}
	if patch.StartTime != nil {
		s.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		s.EndTime = patch.EndTime
	}
	if patch.Note != nil {
		s.Note = patch.Note
	}
}
