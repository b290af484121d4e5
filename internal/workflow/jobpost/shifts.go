package jobpost

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/validation"
)

func shiftOrder(db *gorm.DB) *gorm.DB {
	return db.Order("day_of_week NULLS LAST, start_time NULLS LAST, id")
}

// AddShift attaches a working slot to a post the actor created. Closed and
// expired posts are frozen.
func (s *Service) AddShift(ctx context.Context, actor identity.Identity, postID uuid.UUID, info model.ShiftInfo) (*model.JobShift, error) {
	if err := validation.Struct(info); err != nil {
		return nil, err
	}

	shift := model.JobShift{JobPostID: postID, ShiftInfo: info}
	err := s.InTx(ctx, s.db, "jobpost.add_shift", func(tx *gorm.DB) error {
		post, err := findForUpdate(tx, postID)
		if err != nil {
			return err
		}
		if err := editable(actor, post, s.Clock()); err != nil {
			return err
		}
		return tx.Create(&shift).Error
	}, attribute.String("job_post.id", postID.String()))
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "shift added", "job_post_id", postID, "shift_id", shift.ID, "actor", actor.UserID)
	return &shift, nil
}

// UpdateShift changes the non-nil fields of patch on a shift
func (s *Service) UpdateShift(ctx context.Context, actor identity.Identity, shiftID uuid.UUID, patch model.ShiftInfo) (*model.JobShift, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	var shift *model.JobShift
	err := s.InTx(ctx, s.db, "jobpost.update_shift", func(tx *gorm.DB) error {
		var err error
		shift, err = s.lockShift(tx, actor, shiftID)
		if err != nil {
			return err
		}
		shift.Apply(patch)
		return tx.Save(shift).Error
	}, attribute.String("job_shift.id", shiftID.String()))
	if err != nil {
		return nil, err
	}
	return shift, nil
}

// DeleteShift removes a shift from its post
func (s *Service) DeleteShift(ctx context.Context, actor identity.Identity, shiftID uuid.UUID) error {
	err := s.InTx(ctx, s.db, "jobpost.delete_shift", func(tx *gorm.DB) error {
		shift, err := s.lockShift(tx, actor, shiftID)
		if err != nil {
			return err
		}
		return tx.Delete(shift).Error
	}, attribute.String("job_shift.id", shiftID.String()))
	if err != nil {
		return err
	}

	s.Logger.InfoContext(ctx, "shift deleted", "shift_id", shiftID, "actor", actor.UserID)
	return nil
}

// ListShifts returns the shifts of a post the viewer may see
func (s *Service) ListShifts(ctx context.Context, viewer identity.Identity, postID uuid.UUID) ([]model.JobShift, error) {
	if _, err := s.Get(ctx, viewer, postID); err != nil {
		return nil, err
	}
	shifts := []model.JobShift{}
	err := s.Trace(ctx, "jobpost.list_shifts", func(ctx context.Context) error {
		return shiftOrder(s.db.WithContext(ctx)).Where("job_post_id = ?", postID).Find(&shifts).Error
	}, attribute.String("job_post.id", postID.String()))
	return shifts, err
}

// lockShift loads a shift and locks its post for an edit by actor. Shifts of
// deleted posts are reported as NotFound.
func (s *Service) lockShift(tx *gorm.DB, actor identity.Identity, shiftID uuid.UUID) (*model.JobShift, error) {
	var shift model.JobShift
	err := tx.Where("id = ?", shiftID).First(&shift).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(shiftID, "shift not found")
	}
	if err != nil {
		return nil, err
	}

	post, err := findForUpdate(tx, shift.JobPostID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound(shiftID, "shift not found")
	}
	if err != nil {
		return nil, err
	}
	if err := editable(actor, post, s.Clock()); err != nil {
		return nil, err
	}
	return &shift, nil
}
