package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// JobPostStatus is the publication state of a job post
type JobPostStatus int8

// Job post states, persisted as small integers
const (
	JobPostDraft JobPostStatus = iota
	JobPostPendingReview
	JobPostPublished
	JobPostExpired
	JobPostClosed
)

var jobPostStatusNames = map[JobPostStatus]string{
	JobPostDraft:         "draft",
	JobPostPendingReview: "pending_review",
	JobPostPublished:     "published",
	JobPostExpired:       "expired",
	JobPostClosed:        "closed",
}

// jobPostTransitions lists every state reachable from a given state.
// Expired and Closed have no outgoing transitions.
var jobPostTransitions = map[JobPostStatus][]JobPostStatus{
	JobPostDraft:         {JobPostPendingReview, JobPostClosed},
	JobPostPendingReview: {JobPostPublished},
	JobPostPublished:     {JobPostExpired, JobPostClosed},
}

func (s JobPostStatus) String() string {
	if name, ok := jobPostStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("job_post_status(%d)", int8(s))
}

// Valid reports whether s is one of the known job post states
func (s JobPostStatus) Valid() bool {
	_, ok := jobPostStatusNames[s]
	return ok
}

// IsTerminal reports whether no transition leaves s
func (s JobPostStatus) IsTerminal() bool {
	return len(jobPostTransitions[s]) == 0
}

// CanTransitionTo reports whether next is reachable from s
func (s JobPostStatus) CanTransitionTo(next JobPostStatus) bool {
	for _, candidate := range jobPostTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// MarshalText encodes the status by name
func (s JobPostStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid job post status %d", int8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts a status name or a bare integer code
func (s *JobPostStatus) UnmarshalJSON(data []byte) error {
	return unmarshalStatusJSON(data, s)
}

// UnmarshalText decodes a status name or integer code
func (s *JobPostStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseJobPostStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseJobPostStatus converts a status name or integer code into a JobPostStatus
func ParseJobPostStatus(text string) (JobPostStatus, error) {
	return parseStatus(text, jobPostStatusNames, "job post")
}

// EditableJobPostInfo is the part of a job post its creator may edit without
// touching the lifecycle
type EditableJobPostInfo struct {
	Title        string         `gorm:"type:text;not null" json:"title" validate:"required,max=200"`
	Description  string         `gorm:"type:text;not null" json:"description" validate:"required"`
	Requirements *string        `gorm:"type:text" json:"requirements,omitempty"`
	Benefits     *string        `gorm:"type:text" json:"benefits,omitempty"`
	SalaryMin    *float64       `json:"salary_min,omitempty"`
	SalaryMax    *float64       `json:"salary_max,omitempty"`
	Currency     string         `gorm:"type:text;default:VND" json:"currency"`
	Slots        *int           `json:"slots,omitempty" validate:"omitempty,min=1"`
	Tags         pq.StringArray `gorm:"type:text[]" json:"tags"`
	PublishAt    *time.Time     `json:"publish_at,omitempty"`
	ExpireAt     *time.Time     `json:"expire_at,omitempty"`

	Address `gorm:"embedded"`
}

// JobPost is gorm model for a recruiting listing
type JobPost struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	Company   *Company  `gorm:"foreignKey:CompanyID;references:ID" json:"company,omitempty"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null;index" json:"created_by"`
	Creator   *User     `gorm:"foreignKey:CreatedBy;references:ID" json:"-"`
	EditableJobPostInfo
	Status    JobPostStatus `gorm:"column:status_id;type:smallint;not null;default:0" json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	IsDeleted bool          `gorm:"not null;default:false;index" json:"-"`
	Shifts    []JobShift    `gorm:"foreignKey:JobPostID;references:ID" json:"shifts,omitempty"`

	// EffectiveStatus is computed on read, never persisted
	EffectiveStatus JobPostStatus `gorm:"-" json:"effective_status"`
}

// BeforeCreate assigns an id when the caller did not
func (j *JobPost) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}

// EffectiveState returns Expired for a published post whose expire time has
// passed, otherwise the stored state.
func (j *JobPost) EffectiveState(now time.Time) JobPostStatus {
	if j.Status == JobPostPublished && j.ExpireAt != nil && !j.ExpireAt.After(now) {
		return JobPostExpired
	}
	return j.Status
}

// IsAcceptingApplications reports whether applications may be submitted now
func (j *JobPost) IsAcceptingApplications(now time.Time) bool {
	if j.EffectiveState(now) != JobPostPublished {
		return false
	}
	return j.ExpireAt == nil || j.ExpireAt.After(now)
}

// Reconcile fills EffectiveStatus for the given instant
func (j *JobPost) Reconcile(now time.Time) *JobPost {
	j.EffectiveStatus = j.EffectiveState(now)
	return j
}
