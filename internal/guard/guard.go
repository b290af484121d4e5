// Package guard answers whether an identity may view or mutate an entity.
// Every predicate is pure and denies when a needed relation is missing.
package guard

import (
	"time"

	"github.com/google/uuid"

	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
)

// OwnsJobPost is the employer branch: the caller holds Employer and created the post
func OwnsJobPost(id identity.Identity, post *model.JobPost) bool {
	if post == nil || post.CreatedBy == uuid.Nil || id.IsAnonymous() {
		return false
	}
	return id.HasRole(model.RoleEmployer) && post.CreatedBy == id.UserID
}

// CanCreateJobPost requires an Employer owning the live company
func CanCreateJobPost(id identity.Identity, company *model.Company) bool {
	if company == nil || company.IsDeleted || id.IsAnonymous() {
		return false
	}
	return id.HasRole(model.RoleEmployer) && company.OwnerUserID == id.UserID
}

// CanMutateJobPost covers edit, delete and every lifecycle transition
func CanMutateJobPost(id identity.Identity, post *model.JobPost) bool {
	return OwnsJobPost(id, post)
}

// CanViewJobPost lets anyone see a post that is currently published. Other
// states are visible to the creator, the company owner and administrators.
func CanViewJobPost(id identity.Identity, post *model.JobPost, now time.Time) bool {
	if post == nil {
		return false
	}
	if post.EffectiveState(now) == model.JobPostPublished {
		return true
	}
	if id.IsAnonymous() {
		return false
	}
	if id.HasRole(model.RoleAdmin) || post.CreatedBy == id.UserID {
		return true
	}
	return post.Company != nil && post.Company.OwnerUserID == id.UserID
}

func isApplicant(id identity.Identity, app *model.Application) bool {
	return app != nil && !id.IsAnonymous() && app.ApplicantID == id.UserID
}

// CanViewApplication grants the applicant, or an Employer who created the
// target posting. app.JobPost must be loaded for the employer branch.
func CanViewApplication(id identity.Identity, app *model.Application) bool {
	if app == nil {
		return false
	}
	if isApplicant(id, app) {
		return true
	}
	return OwnsJobPost(id, app.JobPost)
}

// CanMutateApplication grants withdrawal to the applicant only and every
// other transition to the employer branch only
func CanMutateApplication(id identity.Identity, app *model.Application, requested model.ApplicationStatus) bool {
	if app == nil {
		return false
	}
	if requested == model.ApplicationWithdrawn {
		return isApplicant(id, app)
	}
	return OwnsJobPost(id, app.JobPost)
}

// CanReviewRegistration requires an administrator
func CanReviewRegistration(id identity.Identity) bool {
	return !id.IsAnonymous() && id.HasRole(model.RoleAdmin)
}

// CanViewRegistration grants administrators and the requester
func CanViewRegistration(id identity.Identity, req *model.CompanyRegistrationRequest) bool {
	if req == nil || id.IsAnonymous() {
		return false
	}
	return id.HasRole(model.RoleAdmin) || req.RequestedByUserID == id.UserID
}
