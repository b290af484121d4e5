// Package application owns the lifecycle of job applications: submission,
// employer-driven progression and withdrawal by the applicant. Every accepted
// transition writes exactly one history record in the same transaction.
package application

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/audit"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/files"
	"PartTimeJob-backend/internal/guard"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/validation"
	"PartTimeJob-backend/internal/workflow"
	"PartTimeJob-backend/internal/workflow/jobpost"
)

// Input limits
const (
	MaxCoverLetter  = 2000
	MaxEmployerNote = 500
)

// CVResolver finds the CV an application should reference
type CVResolver interface {
	ResolveCV(tx *gorm.DB, applicant uuid.UUID, ref *uuid.UUID) (files.CV, error)
}

// Service runs application operations
type Service struct {
	db       *gorm.DB
	resolver CVResolver
	workflow.Options
}

// NewService returns an application Service backed by db
func NewService(db *gorm.DB, resolver CVResolver, opts ...workflow.Option) *Service {
	return &Service{db: db, resolver: resolver, Options: workflow.NewOptions(opts...)}
}

// Filter narrows application listings
type Filter struct {
	Status *model.ApplicationStatus
	Page   workflow.Page
}

func (f Filter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != nil {
		q = q.Where("status_id = ?", *f.Status)
	}
	return f.Page.Apply(q.Order("applied_at DESC"))
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order(audit.NewestHistoryFirst)
}

func (s *Service) lock(tx *gorm.DB, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	err := tx.Clauses(workflow.ForUpdate()).Where("id = ?", id).First(&app).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound(id, "application not found")
	}
	if err != nil {
		return nil, err
	}

	// Applications of a deleted job post are gone for everyone
	post, err := jobpost.Find(tx, app.JobPostID)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound(id, "application not found")
	}
	if err != nil {
		return nil, err
	}
	app.JobPost = post
	return &app, nil
}

// livePosting keeps applications whose job post has not been deleted
func livePosting(db *gorm.DB) *gorm.DB {
	return db.Where("job_post_id IN (?)",
		db.Session(&gorm.Session{NewDB: true}).Model(&model.JobPost{}).Select("id").Where("is_deleted = ?", false))
}

// Submit creates an application in state Applied. The posting must be
// accepting applications and a CV must resolve, from cvRef or from the
// applicant's profile. A second live application for the same pair is
// rejected by the store's unique index and reported as AlreadyApplied.
func (s *Service) Submit(ctx context.Context, applicant identity.Identity, postID uuid.UUID, cvRef *uuid.UUID, coverLetter *string) (*model.Application, error) {
	if applicant.IsAnonymous() {
		return nil, apperror.PermissionDenied(postID, "authentication required")
	}
	if err := validation.MaxLen("cover_letter", coverLetter, MaxCoverLetter); err != nil {
		return nil, err
	}

	var app model.Application
	err := s.InTx(ctx, s.db, "application.submit", func(tx *gorm.DB) error {
		post, err := jobpost.Find(tx, postID)
		if err != nil {
			return err
		}

		now := s.Clock()
		if !post.IsAcceptingApplications(now) {
			return apperror.New(apperror.KindExpired, postID, "job post is not accepting applications").
				WithState(post.EffectiveState(now))
		}

		cv, err := s.resolver.ResolveCV(tx, applicant.UserID, cvRef)
		if errors.Is(err, apperror.ErrNotFound) {
			return &apperror.Error{Kind: apperror.KindMissingCV, EntityID: postID, Message: "a CV is required to apply", Err: err}
		}
		if err != nil {
			return err
		}

		app = model.Application{
			JobPostID:   postID,
			ApplicantID: applicant.UserID,
			ProfileID:   cv.ProfileID,
			CVFileID:    &cv.FileID,
			CoverLetter: coverLetter,
			Status:      model.ApplicationApplied,
			AppliedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Create(&app).Error; err != nil {
			if database.IsUniqueViolation(err, database.ActiveApplicationIndex) {
				return apperror.New(apperror.KindAlreadyApplied, postID, "you have already applied to this job post")
			}
			if database.IsForeignKeyViolation(err) {
				return apperror.NotFound(postID, "job post not found")
			}
			return err
		}

		h, err := audit.AppendApplication(tx, app.ID, model.ApplicationApplied, model.ApplicationApplied, model.NoteSubmitted, applicant.UserID, now)
		if err != nil {
			return err
		}
		app.History = []model.ApplicationHistory{h}
		app.JobPost = post.Reconcile(now)
		return nil
	}, attribute.String("job_post.id", postID.String()))
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "application submitted", "application_id", app.ID, "job_post_id", postID, "actor", applicant.UserID)
	return &app, nil
}

// TransitionByEmployer moves an application forward on behalf of the
// posting's creator. An empty note is replaced with the canonical
// description of the move.
func (s *Service) TransitionByEmployer(ctx context.Context, employer identity.Identity, id uuid.UUID, requested model.ApplicationStatus, note *string) (*model.Application, error) {
	if !requested.Valid() {
		return nil, apperror.Validation("unknown application status %d", int8(requested))
	}
	if err := validation.MaxLen("note", note, MaxEmployerNote); err != nil {
		return nil, err
	}

	text := requested.EmployerNote()
	if note != nil && *note != "" {
		text = *note
	}
	return s.move(ctx, "application.transition", employer, id, requested, model.ActorEmployer, text)
}

// Withdraw lets the applicant pull out of a non-terminal application.
// Withdrawing twice fails with InvalidTransition.
func (s *Service) Withdraw(ctx context.Context, applicant identity.Identity, id uuid.UUID) (*model.Application, error) {
	return s.move(ctx, "application.withdraw", applicant, id, model.ApplicationWithdrawn, model.ActorApplicant, model.NoteWithdrawn)
}

func (s *Service) move(
	ctx context.Context,
	op string,
	actor identity.Identity,
	id uuid.UUID,
	requested model.ApplicationStatus,
	side model.Actor,
	note string,
) (*model.Application, error) {
	var (
		app  *model.Application
		from model.ApplicationStatus
	)
	err := s.InTx(ctx, s.db, op, func(tx *gorm.DB) error {
		var err error
		app, err = s.lock(tx, id)
		if err != nil {
			return err
		}
		if !guard.CanMutateApplication(actor, app, requested) {
			return apperror.PermissionDenied(id, "not allowed to move this application to %s", requested)
		}

		from = app.Status
		if !from.CanTransition(requested, side) {
			return apperror.InvalidTransition(id, from, requested)
		}

		now := s.Clock()
		if err := tx.Model(app).Updates(map[string]any{"status_id": requested, "updated_at": now}).Error; err != nil {
			return err
		}
		app.Status = requested
		app.UpdatedAt = now

		_, err = audit.AppendApplication(tx, id, from, requested, note, actor.UserID, now)
		return err
	}, attribute.String("application.id", id.String()), attribute.String("application.requested", requested.String()))
	if err != nil {
		return nil, err
	}

	s.Logger.InfoContext(ctx, "application transitioned", "application_id", id, "from", from, "to", requested, "actor", actor.UserID, "side", side)
	return app, nil
}

// Get returns an application with its history, newest first
func (s *Service) Get(ctx context.Context, viewer identity.Identity, id uuid.UUID) (*model.Application, error) {
	var app model.Application
	err := s.Trace(ctx, "application.get", func(ctx context.Context) error {
		err := s.db.WithContext(ctx).
			Preload("JobPost", "is_deleted = ?", false).
			Preload("History", newestFirst).
			Where("id = ?", id).
			First(&app).Error
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && app.JobPost == nil) {
			return apperror.NotFound(id, "application not found")
		}
		if err != nil {
			return err
		}
		if !guard.CanViewApplication(viewer, &app) {
			return apperror.PermissionDenied(id, "not allowed to view this application")
		}
		return nil
	}, attribute.String("application.id", id.String()))
	if err != nil {
		return nil, err
	}
	if app.JobPost != nil {
		app.JobPost.Reconcile(s.Clock())
	}
	return &app, nil
}

// ListMine returns the applicant's own applications
func (s *Service) ListMine(ctx context.Context, applicant identity.Identity, f Filter) ([]model.Application, error) {
	var apps []model.Application
	err := s.Trace(ctx, "application.list_mine", func(ctx context.Context) error {
		q := livePosting(s.db.WithContext(ctx).Preload("JobPost").Where("applicant_id = ?", applicant.UserID))
		return f.apply(q).Find(&apps).Error
	})
	return apps, err
}

func (s *Service) ownedPosting(ctx context.Context, employer identity.Identity, postID uuid.UUID) error {
	post, err := jobpost.Find(s.db.WithContext(ctx), postID)
	if err != nil {
		return err
	}
	if !guard.OwnsJobPost(employer, post) {
		return apperror.PermissionDenied(postID, "only the job post creator can see its applications")
	}
	return nil
}

// ListByPosting returns the applications of a posting the employer created
func (s *Service) ListByPosting(ctx context.Context, employer identity.Identity, postID uuid.UUID, f Filter) ([]model.Application, error) {
	var apps []model.Application
	err := s.Trace(ctx, "application.list_by_posting", func(ctx context.Context) error {
		if err := s.ownedPosting(ctx, employer, postID); err != nil {
			return err
		}
		q := s.db.WithContext(ctx).Where("job_post_id = ?", postID)
		return f.apply(q).Find(&apps).Error
	}, attribute.String("job_post.id", postID.String()))
	return apps, err
}

// StatsByPosting counts the posting's applications per current state
func (s *Service) StatsByPosting(ctx context.Context, employer identity.Identity, postID uuid.UUID) (*model.ApplicationStats, error) {
	stats := &model.ApplicationStats{JobPostID: postID, Counts: map[model.ApplicationStatus]int64{}}
	err := s.Trace(ctx, "application.stats", func(ctx context.Context) error {
		if err := s.ownedPosting(ctx, employer, postID); err != nil {
			return err
		}

		var rows []struct {
			Status model.ApplicationStatus `gorm:"column:status_id"`
			Count  int64
		}
		err := s.db.WithContext(ctx).Model(&model.Application{}).
			Select("status_id, COUNT(*) AS count").
			Where("job_post_id = ?", postID).
			Group("status_id").
			Scan(&rows).Error
		if err != nil {
			return err
		}
		for _, r := range rows {
			stats.Counts[r.Status] = r.Count
			stats.Total += r.Count
		}
		return nil
	}, attribute.String("job_post.id", postID.String()))
	if err != nil {
		return nil, err
	}
	return stats, nil
}
