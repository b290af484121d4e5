package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApplicationStatus is the lifecycle state of an application
type ApplicationStatus int8

// Application states, persisted as small integers
const (
	ApplicationApplied ApplicationStatus = iota
	ApplicationShortlisted
	ApplicationInterview
	ApplicationHired
	ApplicationRejected
	ApplicationWithdrawn
)

// Actor identifies which side of an application may trigger a transition
type Actor int8

// Application actors
const (
	ActorEmployer Actor = iota + 1
	ActorApplicant
)

func (a Actor) String() string {
	switch a {
	case ActorEmployer:
		return "employer"
	case ActorApplicant:
		return "applicant"
	default:
		return "unknown"
	}
}

// History notes recorded when no note is supplied
const (
	NoteSubmitted = "submitted"
	NoteWithdrawn = "withdrawn by applicant"
	NoteChanged   = "Status changed"
)

var applicationStatusNames = map[ApplicationStatus]string{
	ApplicationApplied:     "applied",
	ApplicationShortlisted: "shortlisted",
	ApplicationInterview:   "interview",
	ApplicationHired:       "hired",
	ApplicationRejected:    "rejected",
	ApplicationWithdrawn:   "withdrawn",
}

// applicationTransitions maps each state to the states reachable from it and
// the actor allowed to take that step. Hired, Rejected and Withdrawn have no
// entry and are therefore terminal for everyone.
var applicationTransitions = map[ApplicationStatus]map[ApplicationStatus]Actor{
	ApplicationApplied: {
		ApplicationShortlisted: ActorEmployer,
		ApplicationInterview:   ActorEmployer,
		ApplicationHired:       ActorEmployer,
		ApplicationRejected:    ActorEmployer,
		ApplicationWithdrawn:   ActorApplicant,
	},
	ApplicationShortlisted: {
		ApplicationInterview: ActorEmployer,
		ApplicationHired:     ActorEmployer,
		ApplicationRejected:  ActorEmployer,
		ApplicationWithdrawn: ActorApplicant,
	},
	ApplicationInterview: {
		ApplicationHired:     ActorEmployer,
		ApplicationRejected:  ActorEmployer,
		ApplicationWithdrawn: ActorApplicant,
	},
}

var employerNotes = map[ApplicationStatus]string{
	ApplicationShortlisted: "Added to shortlist",
	ApplicationInterview:   "Invited to interview",
	ApplicationHired:       "Offer extended",
	ApplicationRejected:    "Application declined",
}

func (s ApplicationStatus) String() string {
	if name, ok := applicationStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("application_status(%d)", int8(s))
}

// Valid reports whether s is one of the known application states
func (s ApplicationStatus) Valid() bool {
	_, ok := applicationStatusNames[s]
	return ok
}

// IsTerminal reports whether no actor can move the application out of s
func (s ApplicationStatus) IsTerminal() bool {
	return len(applicationTransitions[s]) == 0
}

// TransitionActor returns the actor allowed to move from s to next. The
// boolean is false when next is not reachable from s at all.
func (s ApplicationStatus) TransitionActor(next ApplicationStatus) (Actor, bool) {
	actor, ok := applicationTransitions[s][next]
	return actor, ok
}

// CanTransition reports whether actor may move the application from s to next
func (s ApplicationStatus) CanTransition(next ApplicationStatus, actor Actor) bool {
	allowed, ok := s.TransitionActor(next)
	return ok && allowed == actor
}

// EmployerNote is the canonical history note of an employer move into s
func (s ApplicationStatus) EmployerNote() string {
	if note, ok := employerNotes[s]; ok {
		return note
	}
	return NoteChanged
}

// MarshalText encodes the status by name
func (s ApplicationStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid application status %d", int8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts a status name or a bare integer code
func (s *ApplicationStatus) UnmarshalJSON(data []byte) error {
	return unmarshalStatusJSON(data, s)
}

// UnmarshalText decodes a status name or integer code
func (s *ApplicationStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseApplicationStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseApplicationStatus converts a status name or integer code into a ApplicationStatus
func ParseApplicationStatus(text string) (ApplicationStatus, error) {
	return parseStatus(text, applicationStatusNames, "application")
}

// AllApplicationStatuses lists every state in ascending order
func AllApplicationStatuses() []ApplicationStatus {
	return []ApplicationStatus{
		ApplicationApplied,
		ApplicationShortlisted,
		ApplicationInterview,
		ApplicationHired,
		ApplicationRejected,
		ApplicationWithdrawn,
	}
}

// Application is one seeker's submission against one job post.
// Status is a projection of the newest history entry.
type Application struct {
	ID          uuid.UUID            `gorm:"type:uuid;primaryKey" json:"id"`
	JobPostID   uuid.UUID            `gorm:"type:uuid;not null;index" json:"job_post_id"`
	JobPost     *JobPost             `gorm:"foreignKey:JobPostID;references:ID" json:"job_post,omitempty"`
	ApplicantID uuid.UUID            `gorm:"type:uuid;not null;index" json:"applicant_id"`
	Applicant   *User                `gorm:"foreignKey:ApplicantID;references:ID" json:"-"`
	ProfileID   *uuid.UUID           `gorm:"type:uuid" json:"profile_id,omitempty"`
	CVFileID    *uuid.UUID           `gorm:"type:uuid" json:"cv_file_id,omitempty"`
	CVFile      *File                `gorm:"foreignKey:CVFileID;references:ID" json:"-"`
	CoverLetter *string              `gorm:"type:text" json:"cover_letter,omitempty"`
	Status      ApplicationStatus    `gorm:"column:status_id;type:smallint;not null;default:0" json:"status"`
	AppliedAt   time.Time            `gorm:"not null" json:"applied_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	History     []ApplicationHistory `gorm:"foreignKey:ApplicationID" json:"history,omitempty"`
}

// BeforeCreate assigns an id when the caller did not
func (a *Application) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ApplicationHistory is an append-only record of one application transition
type ApplicationHistory struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	ApplicationID uuid.UUID         `gorm:"type:uuid;not null;index" json:"application_id"`
	OldStatus     ApplicationStatus `gorm:"column:old_status_id;type:smallint;not null" json:"old_status"`
	NewStatus     ApplicationStatus `gorm:"column:new_status_id;type:smallint;not null" json:"new_status"`
	Note          string            `gorm:"type:text" json:"note"`
	ChangedBy     uuid.UUID         `gorm:"type:uuid;not null" json:"changed_by"`
	ChangedAt     time.Time         `gorm:"not null;index" json:"changed_at"`
	// Seq is assigned by the database on insert
	Seq int64 `gorm:"->;-:migration" json:"-"`
}

// TableName pins the history table name
func (ApplicationHistory) TableName() string {
	return "application_histories"
}

// BeforeCreate assigns an id when the caller did not
func (h *ApplicationHistory) BeforeCreate(_ *gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

// ApplicationStats is the per-state breakdown of a job post's applications
type ApplicationStats struct {
	JobPostID uuid.UUID                   `json:"job_post_id"`
	Counts    map[ApplicationStatus]int64 `json:"counts"`
	Total     int64                       `json:"total"`
}
