package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RegistrationStatus is the review state of a company registration request
type RegistrationStatus int8

// Registration states. Approved and Rejected are terminal.
const (
	RegistrationPending RegistrationStatus = iota
	RegistrationApproved
	RegistrationRejected
)

// NoteRejected is stored when a reviewer rejects without a note
const NoteRejected = "Request rejected"

var registrationStatusNames = map[RegistrationStatus]string{
	RegistrationPending:  "pending",
	RegistrationApproved: "approved",
	RegistrationRejected: "rejected",
}

func (s RegistrationStatus) String() string {
	if name, ok := registrationStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("registration_status(%d)", int8(s))
}

// IsTerminal reports whether the request has already been reviewed
func (s RegistrationStatus) IsTerminal() bool {
	return s != RegistrationPending
}

// MarshalText encodes the status by name
func (s RegistrationStatus) MarshalText() ([]byte, error) {
	if _, ok := registrationStatusNames[s]; !ok {
		return nil, fmt.Errorf("invalid registration status %d", int8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalJSON accepts a status name or a bare integer code
func (s *RegistrationStatus) UnmarshalJSON(data []byte) error {
	return unmarshalStatusJSON(data, s)
}

// UnmarshalText decodes a status name or integer code
func (s *RegistrationStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseRegistrationStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseRegistrationStatus converts a status name or integer code into a RegistrationStatus
func ParseRegistrationStatus(text string) (RegistrationStatus, error) {
	return parseStatus(text, registrationStatusNames, "registration")
}

// CompanyRegistrationRequest asks an administrator to recognise the requester
// as an employer with a new company. CreatedCompanyID is set iff the request
// has been approved.
type CompanyRegistrationRequest struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestedByUserID uuid.UUID `gorm:"type:uuid;not null;index" json:"requested_by_user_id"`
	RequestedBy       *User     `gorm:"foreignKey:RequestedByUserID;references:ID" json:"-"`
	CompanyProfile
	Status           RegistrationStatus `gorm:"type:smallint;not null;default:0;index" json:"status"`
	RequestedAt      time.Time          `gorm:"not null" json:"requested_at"`
	ReviewedByUserID *uuid.UUID         `gorm:"type:uuid" json:"reviewed_by_user_id,omitempty"`
	ReviewedAt       *time.Time         `json:"reviewed_at,omitempty"`
	ReviewNote       *string            `gorm:"type:text" json:"review_note,omitempty"`
	CreatedCompanyID *uuid.UUID         `gorm:"type:uuid" json:"created_company_id,omitempty"`
	CreatedCompany   *Company           `gorm:"foreignKey:CreatedCompanyID;references:ID" json:"created_company,omitempty"`
}

// BeforeCreate assigns an id when the caller did not
func (r *CompanyRegistrationRequest) BeforeCreate(_ *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
