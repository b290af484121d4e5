// Package jobpost owns the publication lifecycle of job posts.
package jobpost

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/audit"
	"PartTimeJob-backend/internal/guard"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/validation"
	"PartTimeJob-backend/internal/workflow"
)

// Audit notes for changes that do not move the state
const (
	noteCreated = "created"
	noteDeleted = "deleted"
)

// Service runs job post operations
type Service struct {
	db *gorm.DB
	workflow.Options
}

// NewService returns a job post Service backed by db
func NewService(db *gorm.DB, opts ...workflow.Option) *Service {
	return &Service{db: db, Options: workflow.NewOptions(opts...)}
}

// Patch holds the fields an edit may change. Nil fields are left untouched.
type Patch struct {
	Title        *string    `json:"title" validate:"omitempty,notblank,max=200"`
	Description  *string    `json:"description" validate:"omitempty,notblank"`
	Requirements *string    `json:"requirements"`
	Benefits     *string    `json:"benefits"`
	SalaryMin    *float64   `json:"salary_min"`
	SalaryMax    *float64   `json:"salary_max"`
	Currency     *string    `json:"currency"`
	Slots        *int       `json:"slots" validate:"omitempty,min=1"`
	Tags         []string   `json:"tags"`
	PublishAt    *time.Time `json:"publish_at"`
	ExpireAt     *time.Time `json:"expire_at"`
}

// Find loads a live job post with its company. Soft-deleted posts are
// reported as NotFound.
func Find(tx *gorm.DB, id uuid.UUID) (*model.JobPost, error) {
	var post model.JobPost
	err := tx.Preload("Company").
		Where("id = ? AND is_deleted = ?", id, false).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(id, "job post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func findForUpdate(tx *gorm.DB, id uuid.UUID) (*model.JobPost, error) {
	var post model.JobPost
	err := tx.Clauses(workflow.ForUpdate()).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(id, "job post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func validateSalary(minSalary, maxSalary *float64) error {
	if minSalary != nil && maxSalary != nil && *minSalary > *maxSalary {
		return apperror.Validation("salary_min must not exceed salary_max")
	}
	return nil
}

// Create opens a draft post for a company the owner controls
func (s *Service) Create(ctx context.Context, owner identity.Identity, companyID uuid.UUID, info model.EditableJobPostInfo) (*model.JobPost, error) {
	if err := validation.Struct(info); err != nil {
		return nil, err
	}
	if err := validateSalary(info.SalaryMin, info.SalaryMax); err != nil {
		return nil, err
	}

	var post model.JobPost
	err := s.InTx(ctx, s.db, "jobpost.create", func(tx *gorm.DB) error {
		var company model.Company
		err := tx.Where("id = ? AND is_deleted = ?", companyID, false).First(&company).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound(companyID, "company not found")
		}
		if err != nil {
			return err
		}
		if !guard.CanCreateJobPost(owner, &company) {
			return apperror.PermissionDenied(companyID, "only the company owner can post jobs for it")
		}

		now := s.Clock()
		post = model.JobPost{
			CompanyID:           company.ID,
			CreatedBy:           owner.UserID,
			EditableJobPostInfo: info,
			Status:              model.JobPostDraft,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		if post.Currency == "" {
			post.Currency = "VND"
		}
		if err := tx.Create(&post).Error; err != nil {
			return err
		}
		post.Company = &company

		return audit.Append(tx, audit.Entry{
			EntityType: model.EntityJobPost,
			EntityID:   post.ID,
			From:       model.JobPostDraft,
			To:         model.JobPostDraft,
			Note:       noteCreated,
			Actor:      owner.UserID,
			At:         now,
		})
	}, attribute.String("company.id", companyID.String()))
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "job post created", "job_post_id", post.ID, "company_id", companyID, "actor", owner.UserID)
	return post.Reconcile(s.Clock()), nil
}

// Get returns a post the viewer is allowed to see
func (s *Service) Get(ctx context.Context, viewer identity.Identity, id uuid.UUID) (*model.JobPost, error) {
	var post *model.JobPost
	err := s.Trace(ctx, "jobpost.get", func(ctx context.Context) error {
		var err error
		post, err = Find(s.db.WithContext(ctx), id)
		if err != nil {
			return err
		}
		if !guard.CanViewJobPost(viewer, post, s.Clock()) {
			return apperror.PermissionDenied(id, "job post is not published")
		}
		return nil
	}, attribute.String("job_post.id", id.String()))
	if err != nil {
		return nil, err
	}
	return post.Reconcile(s.Clock()), nil
}

// Transition moves a post to requested. The move is checked against the
// effective state, so a published post past its expire time can no longer
// be closed or expired again.
func (s *Service) Transition(ctx context.Context, actor identity.Identity, id uuid.UUID, requested model.JobPostStatus) (*model.JobPost, error) {
	if !requested.Valid() {
		return nil, apperror.Validation("unknown job post status %d", int8(requested))
	}

	var (
		post *model.JobPost
		from model.JobPostStatus
	)
	err := s.InTx(ctx, s.db, "jobpost.transition", func(tx *gorm.DB) error {
		var err error
		post, err = findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !guard.CanMutateJobPost(actor, post) {
			return apperror.PermissionDenied(id, "only the job post creator can change its status")
		}

		now := s.Clock()
		from = post.EffectiveState(now)
		if !from.CanTransitionTo(requested) {
			return apperror.InvalidTransition(id, from, requested)
		}

		updates := map[string]any{"status_id": requested, "updated_at": now}
		if requested == model.JobPostPublished && post.PublishAt == nil {
			post.PublishAt = &now
			updates["publish_at"] = now
		}
		if err := tx.Model(post).Updates(updates).Error; err != nil {
			return err
		}
		post.Status = requested
		post.UpdatedAt = now

		return audit.Append(tx, audit.Entry{
			EntityType: model.EntityJobPost,
			EntityID:   id,
			From:       from,
			To:         requested,
			Actor:      actor.UserID,
			At:         now,
		})
	}, attribute.String("job_post.id", id.String()), attribute.String("job_post.requested", requested.String()))
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "job post transitioned", "job_post_id", id, "from", from, "to", requested, "actor", actor.UserID)
	return post.Reconcile(s.Clock()), nil
}

// Update edits the descriptive fields of a post. Closed and expired posts
// are frozen.
func (s *Service) Update(ctx context.Context, actor identity.Identity, id uuid.UUID, patch Patch) (*model.JobPost, error) {
	if err := validation.Struct(patch); err != nil {
		return nil, err
	}

	var post *model.JobPost
	err := s.InTx(ctx, s.db, "jobpost.update", func(tx *gorm.DB) error {
		var err error
		post, err = findForUpdate(tx, id)
		if err != nil {
			return err
		}
		now := s.Clock()
		if err := editable(actor, post, now); err != nil {
			return err
		}

		applyPatch(&post.EditableJobPostInfo, patch)
		if err := validation.Struct(post.EditableJobPostInfo); err != nil {
			return err
		}
		if err := validateSalary(post.SalaryMin, post.SalaryMax); err != nil {
			return err
		}
		post.UpdatedAt = now
		return tx.Save(post).Error
	}, attribute.String("job_post.id", id.String()))
	if err != nil {
		return nil, err
	}
	return post.Reconcile(s.Clock()), nil
}

// editable rejects edits by anyone but the creator and edits of closed or
// expired posts
func editable(actor identity.Identity, post *model.JobPost, now time.Time) error {
	if !guard.CanMutateJobPost(actor, post) {
		return apperror.PermissionDenied(post.ID, "only the job post creator can edit it")
	}
	if state := post.EffectiveState(now); state.IsTerminal() {
		return apperror.New(apperror.KindInvalidTransition, post.ID, "job post is %s and can no longer be edited", state).WithState(state)
	}
	return nil
}

func applyPatch(info *model.EditableJobPostInfo, p Patch) {
	if p.Title != nil {
		info.Title = *p.Title
	}
	if p.Description != nil {
		info.Description = *p.Description
	}
	if p.Requirements != nil {
		info.Requirements = p.Requirements
	}
	if p.Benefits != nil {
		info.Benefits = p.Benefits
	}
	if p.SalaryMin != nil {
		info.SalaryMin = p.SalaryMin
	}
	if p.SalaryMax != nil {
		info.SalaryMax = p.SalaryMax
	}
	if p.Currency != nil {
		info.Currency = *p.Currency
	}
	if p.Slots != nil {
		info.Slots = p.Slots
	}
	if p.Tags != nil {
		info.Tags = p.Tags
	}
	if p.PublishAt != nil {
		info.PublishAt = p.PublishAt
	}
	if p.ExpireAt != nil {
		info.ExpireAt = p.ExpireAt
	}
}

// SoftDelete hides a post from every read and transition path
func (s *Service) SoftDelete(ctx context.Context, actor identity.Identity, id uuid.UUID) error {
	err := s.InTx(ctx, s.db, "jobpost.delete", func(tx *gorm.DB) error {
		post, err := findForUpdate(tx, id)
		if err != nil {
			return err
		}
		if !guard.CanMutateJobPost(actor, post) {
			return apperror.PermissionDenied(id, "only the job post creator can delete it")
		}

		now := s.Clock()
		if err := tx.Model(post).Updates(map[string]any{"is_deleted": true, "updated_at": now}).Error; err != nil {
			return err
		}
		state := post.EffectiveState(now)
		return audit.Append(tx, audit.Entry{
			EntityType: model.EntityJobPost,
			EntityID:   id,
			From:       state,
			To:         state,
			Note:       noteDeleted,
			Actor:      actor.UserID,
			At:         now,
		})
	}, attribute.String("job_post.id", id.String()))
	if err != nil {
		return err
	}

	s.Logger.InfoContext(ctx, "job post deleted", "job_post_id", id, "actor", actor.UserID)
	return nil
}

// ListOpen returns posts accepting applications now, newest first, with an
// optional case-insensitive title filter
func (s *Service) ListOpen(ctx context.Context, search string, page workflow.Page) ([]model.JobPost, error) {
	var posts []model.JobPost
	err := s.Trace(ctx, "jobpost.list_open", func(ctx context.Context) error {
		q := accepting(s.db.WithContext(ctx).Preload("Company"), s.Clock())
		if search = strings.TrimSpace(search); search != "" {
			q = q.Where("title ILIKE ?", "%"+escapeLike(search)+"%")
		}
		return page.Apply(q.Order("publish_at DESC NULLS LAST, created_at DESC")).Find(&posts).Error
	})
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	for i := range posts {
		posts[i].Reconcile(now)
	}
	return posts, nil
}

// ListByCompany returns the posts of a live company that accept
// applications now, each with its shifts
func (s *Service) ListByCompany(ctx context.Context, companyID uuid.UUID, page workflow.Page) ([]model.JobPost, error) {
	var posts []model.JobPost
	err := s.Trace(ctx, "jobpost.list_by_company", func(ctx context.Context) error {
		db := s.db.WithContext(ctx)
		var n int64
		if err := db.Model(&model.Company{}).Where("id = ? AND is_deleted = ?", companyID, false).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return apperror.NotFound(companyID, "company not found")
		}

		q := accepting(db.Preload("Company").Preload("Shifts", shiftOrder), s.Clock()).
			Where("company_id = ?", companyID)
		return page.Apply(q.Order("created_at DESC")).Find(&posts).Error
	}, attribute.String("company.id", companyID.String()))
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	for i := range posts {
		posts[i].Reconcile(now)
	}
	return posts, nil
}

// accepting narrows q to live published posts whose expire time is unset or
// after now
func accepting(q *gorm.DB, now time.Time) *gorm.DB {
	return q.Where("is_deleted = ? AND status_id = ?", false, model.JobPostPublished).
		Where("expire_at IS NULL OR expire_at > ?", now)
}

// ListMine returns every live post created by actor
func (s *Service) ListMine(ctx context.Context, actor identity.Identity, page workflow.Page) ([]model.JobPost, error) {
	var posts []model.JobPost
	err := s.Trace(ctx, "jobpost.list_mine", func(ctx context.Context) error {
		q := s.db.WithContext(ctx).
			Where("created_by = ? AND is_deleted = ?", actor.UserID, false).
			Order("created_at DESC")
		return page.Apply(q).Find(&posts).Error
	})
	if err != nil {
		return nil, err
	}

	now := s.Clock()
	for i := range posts {
		posts[i].Reconcile(now)
	}
	return posts, nil
}

// History returns the audit trail of a post the viewer may see
func (s *Service) History(ctx context.Context, viewer identity.Identity, id uuid.UUID) ([]model.AuditRecord, error) {
	if _, err := s.Get(ctx, viewer, id); err != nil {
		return nil, err
	}
	var records []model.AuditRecord
	err := s.Trace(ctx, "jobpost.history", func(ctx context.Context) error {
		var err error
		records, err = audit.Records(s.db.WithContext(ctx), model.EntityJobPost, id)
		return err
	})
	return records, err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
