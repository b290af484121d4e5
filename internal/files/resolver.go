// Package files resolves file references owned by applicants.
package files

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/model"
)

// CV is a resolved curriculum vitae reference
type CV struct {
	FileID    uuid.UUID
	ProfileID *uuid.UUID
}

// Resolver looks up CV files in the store
type Resolver struct{}

// NewResolver returns a store-backed Resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveCV returns the explicit reference when given, otherwise the resume
// attached to the applicant's profile. The file must belong to the applicant
// and must not be soft-deleted. A NotFound error is returned when nothing
// usable exists.
func (r *Resolver) ResolveCV(tx *gorm.DB, applicant uuid.UUID, ref *uuid.UUID) (CV, error) {
	var profile model.Profile
	var profileID *uuid.UUID
	err := tx.Where("user_id = ?", applicant).First(&profile).Error
	switch {
	case err == nil:
		profileID = &profile.ID
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return CV{}, apperror.Internal(err, "failed to load profile")
	}

	candidate := ref
	if candidate == nil {
		candidate = profile.ResumeFileID
	}
	if candidate == nil {
		return CV{}, apperror.NotFound(applicant, "no CV provided and no resume on profile")
	}

	var file model.File
	err = tx.Where("id = ? AND owner_user_id = ? AND is_deleted = ?", *candidate, applicant, false).
		First(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return CV{}, apperror.NotFound(*candidate, "CV file not found")
	}
	if err != nil {
		return CV{}, apperror.Internal(err, "failed to load CV file")
	}

	return CV{FileID: file.ID, ProfileID: profileID}, nil
}
