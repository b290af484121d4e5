// Package registration owns the company registration review workflow.
// Approval creates the company, grants the employer role and closes the
// request in a single transaction.
package registration

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/audit"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/guard"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/validation"
	"PartTimeJob-backend/internal/workflow"
)

// MaxReviewNote bounds the reviewer's note
const MaxReviewNote = 500

const noteRequested = "requested"

// Service runs registration operations
type Service struct {
	db *gorm.DB
	workflow.Options
}

// NewService returns a registration Service backed by db
func NewService(db *gorm.DB, opts ...workflow.Option) *Service {
	return &Service{db: db, Options: workflow.NewOptions(opts...)}
}

// Filter narrows request listings
type Filter struct {
	Status *model.RegistrationStatus
	Page   workflow.Page
}

// Request files a new pending registration for the requester
func (s *Service) Request(ctx context.Context, requester identity.Identity, profile model.CompanyProfile) (*model.CompanyRegistrationRequest, error) {
	if requester.IsAnonymous() {
		return nil, apperror.PermissionDenied(uuid.Nil, "authentication required")
	}
	if err := validation.Struct(profile); err != nil {
		return nil, err
	}

	var req model.CompanyRegistrationRequest
	err := s.InTx(ctx, s.db, "registration.request", func(tx *gorm.DB) error {
		now := s.Clock()
		req = model.CompanyRegistrationRequest{
			RequestedByUserID: requester.UserID,
			CompanyProfile:    profile,
			Status:            model.RegistrationPending,
			RequestedAt:       now,
		}
		if err := tx.Create(&req).Error; err != nil {
			return err
		}
		return audit.Append(tx, audit.Entry{
			EntityType: model.EntityRegistration,
			EntityID:   req.ID,
			From:       model.RegistrationPending,
			To:         model.RegistrationPending,
			Note:       noteRequested,
			Actor:      requester.UserID,
			At:         now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "company registration requested", "request_id", req.ID, "actor", requester.UserID)
	return &req, nil
}

func lockPending(tx *gorm.DB, id uuid.UUID) (*model.CompanyRegistrationRequest, error) {
	var req model.CompanyRegistrationRequest
	err := tx.Clauses(workflow.ForUpdate()).Where("id = ?", id).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(id, "registration request not found")
	}
	if err != nil {
		return nil, err
	}
	if req.Status.IsTerminal() {
		return nil, apperror.New(apperror.KindAlreadyReviewed, id, "registration request was already %s", req.Status).
			WithState(req.Status)
	}
	return &req, nil
}

// Approve provisions the company and the employer role for the requester.
// Either every effect commits or none does.
func (s *Service) Approve(ctx context.Context, admin identity.Identity, id uuid.UUID, note *string) (*model.CompanyRegistrationRequest, *model.Company, error) {
	if !guard.CanReviewRegistration(admin) {
		return nil, nil, apperror.PermissionDenied(id, "only administrators can review registration requests")
	}
	if err := validation.MaxLen("note", note, MaxReviewNote); err != nil {
		return nil, nil, err
	}

	var (
		req     *model.CompanyRegistrationRequest
		company model.Company
	)
	err := s.InTx(ctx, s.db, "registration.approve", func(tx *gorm.DB) error {
		var err error
		req, err = lockPending(tx, id)
		if err != nil {
			return err
		}

		now := s.Clock()
		company = model.Company{
			OwnerUserID:    req.RequestedByUserID,
			CompanyProfile: req.CompanyProfile,
			Verification:   model.CompanyUnverified,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := tx.Create(&company).Error; err != nil {
			return err
		}

		if err := database.GrantRole(tx, req.RequestedByUserID, model.RoleEmployer, now); err != nil {
			return err
		}

		req.Status = model.RegistrationApproved
		req.ReviewedByUserID = &admin.UserID
		req.ReviewedAt = &now
		req.ReviewNote = note
		req.CreatedCompanyID = &company.ID
		err = tx.Model(req).Updates(map[string]any{
			"status":              req.Status,
			"reviewed_by_user_id": admin.UserID,
			"reviewed_at":         now,
			"review_note":         note,
			"created_company_id":  company.ID,
		}).Error
		if err != nil {
			return err
		}
		req.CreatedCompany = &company

		return audit.Append(tx, audit.Entry{
			EntityType: model.EntityRegistration,
			EntityID:   id,
			From:       model.RegistrationPending,
			To:         model.RegistrationApproved,
			Note:       deref(note),
			Actor:      admin.UserID,
			At:         now,
		})
	}, attribute.String("registration.id", id.String()))
	if err != nil {
		return nil, nil, err
	}

	s.Logger.InfoContext(ctx, "company registration approved",
		"request_id", id, "company_id", company.ID, "requester", req.RequestedByUserID, "actor", admin.UserID)
	return req, &company, nil
}

// Reject closes the request without side effects. A missing note is
// replaced with a generic one.
func (s *Service) Reject(ctx context.Context, admin identity.Identity, id uuid.UUID, note *string) (*model.CompanyRegistrationRequest, error) {
	if !guard.CanReviewRegistration(admin) {
		return nil, apperror.PermissionDenied(id, "only administrators can review registration requests")
	}
	if err := validation.MaxLen("note", note, MaxReviewNote); err != nil {
		return nil, err
	}
	text := model.NoteRejected
	if note != nil && *note != "" {
		text = *note
	}

	var req *model.CompanyRegistrationRequest
	err := s.InTx(ctx, s.db, "registration.reject", func(tx *gorm.DB) error {
		var err error
		req, err = lockPending(tx, id)
		if err != nil {
			return err
		}

		now := s.Clock()
		req.Status = model.RegistrationRejected
		req.ReviewedByUserID = &admin.UserID
		req.ReviewedAt = &now
		req.ReviewNote = &text
		err = tx.Model(req).Updates(map[string]any{
			"status":              req.Status,
			"reviewed_by_user_id": admin.UserID,
			"reviewed_at":         now,
			"review_note":         text,
		}).Error
		if err != nil {
			return err
		}

		return audit.Append(tx, audit.Entry{
			EntityType: model.EntityRegistration,
			EntityID:   id,
			From:       model.RegistrationPending,
			To:         model.RegistrationRejected,
			Note:       text,
			Actor:      admin.UserID,
			At:         now,
		})
	}, attribute.String("registration.id", id.String()))
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "company registration rejected", "request_id", id, "actor", admin.UserID)
	return req, nil
}

// Get returns a request visible to the viewer
func (s *Service) Get(ctx context.Context, viewer identity.Identity, id uuid.UUID) (*model.CompanyRegistrationRequest, error) {
	var req model.CompanyRegistrationRequest
	err := s.Trace(ctx, "registration.get", func(ctx context.Context) error {
		err := s.db.WithContext(ctx).Preload("CreatedCompany").Where("id = ?", id).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(id, "registration request not found")
		}
		if err != nil {
			return err
		}
		if !guard.CanViewRegistration(viewer, &req) {
			return apperror.PermissionDenied(id, "not allowed to view this registration request")
		}
		return nil
	}, attribute.String("registration.id", id.String()))
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// List returns requests for administrators, newest first
func (s *Service) List(ctx context.Context, admin identity.Identity, f Filter) ([]model.CompanyRegistrationRequest, error) {
	if !guard.CanReviewRegistration(admin) {
		return nil, apperror.PermissionDenied(uuid.Nil, "only administrators can list registration requests")
	}
	var reqs []model.CompanyRegistrationRequest
	err := s.Trace(ctx, "registration.list", func(ctx context.Context) error {
		q := s.db.WithContext(ctx)
		if f.Status != nil {
			q = q.Where("status = ?", *f.Status)
		}
		return f.Page.Apply(q.Order("requested_at DESC")).Find(&reqs).Error
	})
	return reqs, err
}

// ListMine returns the requester's own requests, newest first
func (s *Service) ListMine(ctx context.Context, requester identity.Identity, page workflow.Page) ([]model.CompanyRegistrationRequest, error) {
	var reqs []model.CompanyRegistrationRequest
	err := s.Trace(ctx, "registration.list_mine", func(ctx context.Context) error {
		q := s.db.WithContext(ctx).Where("requested_by_user_id = ?", requester.UserID)
		return page.Apply(q.Order("requested_at DESC")).Find(&reqs).Error
	})
	return reqs, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
