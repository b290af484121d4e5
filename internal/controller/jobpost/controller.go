// Package jobpost provides HTTP handlers for the job post lifecycle.
package jobpost

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/utilities"
	postflow "PartTimeJob-backend/internal/workflow/jobpost"
)

// JobPostController serves job post endpoints
type JobPostController struct {
	Posts *postflow.Service
}

// NewJobPostController creates a new instance of JobPostController
func NewJobPostController(posts *postflow.Service) *JobPostController {
	return &JobPostController{
		Posts: posts,
	}
}

type createJobPostRequest struct {
	CompanyID uuid.UUID `json:"company_id" binding:"required"`
	model.EditableJobPostInfo
}

type transitionRequest struct {
	Status *model.JobPostStatus `json:"status" binding:"required"`
}

// CreateJobPostHandler opens a draft post for one of the caller's companies
// @Summary Create job post
// @Description Only the owner of the company can post for it. New posts start as draft.
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param Jobpost body createJobPostRequest true "Job post information"
// @Success 201 {object} model.JobPost "Successfully create job post"
// @Failure 400 {object} utilities.ErrorResponse "Invalid job post"
// @Failure 403 {object} utilities.ErrorResponse "Not the company owner"
// @Failure 404 {object} utilities.ErrorResponse "Company not found"
// @Router /jobposts [post]
func (jc *JobPostController) CreateJobPostHandler(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	var req createJobPostRequest
	if !utilities.BindJSON(c, &req) {
		return
	}

	post, err := jc.Posts.Create(c.Request.Context(), actor, req.CompanyID, req.EditableJobPostInfo)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// GetOpenPosts lists posts accepting applications
// @Summary List open job posts
// @Description Published and not yet expired, newest first
// @Tags Jobpost
// @Produce json
// @Param search query string false "Case-insensitive substring of the title"
// @Param page query integer false "1-based page"
// @Param size query integer false "Page size, at most 100"
// @Success 200 {array} model.JobPost
// @Failure 400 {object} utilities.ErrorResponse "Invalid paging"
// @Router /jobposts [get]
func (jc *JobPostController) GetOpenPosts(c *gin.Context) {
	page, ok := utilities.ParsePage(c)
	if !ok {
		return
	}

	posts, err := jc.Posts.ListOpen(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetMyPosts lists every post the caller created
// @Summary List my job posts
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param page query integer false "1-based page"
// @Param size query integer false "Page size, at most 100"
// @Success 200 {array} model.JobPost
// @Router /jobposts/mine [get]
func (jc *JobPostController) GetMyPosts(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	page, ok := utilities.ParsePage(c)
	if !ok {
		return
	}

	posts, err := jc.Posts.ListMine(c.Request.Context(), actor, page)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetPostByID returns a single post. Unpublished posts are only visible to
// their creator, the company owner and administrators.
// @Summary Get job post by ID
// @Tags Jobpost
// @Produce json
// @Param id path string true "Job post id"
// @Success 200 {object} model.JobPost
// @Failure 403 {object} utilities.ErrorResponse "Post is not published"
// @Failure 404 {object} utilities.ErrorResponse "Job post not found"
// @Router /jobposts/{id} [get]
func (jc *JobPostController) GetPostByID(c *gin.Context) {
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewer, _ := identity.FromContext(c)

	post, err := jc.Posts.Get(c.Request.Context(), viewer, id)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// EditJobPost patches the descriptive fields of a post
// @Summary Edit job post
// @Description Closed and expired posts can no longer be edited
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Param Jobpost body postflow.Patch true "Fields to change"
// @Success 200 {object} model.JobPost
// @Failure 400 {object} utilities.ErrorResponse "Invalid patch"
// @Failure 403 {object} utilities.ErrorResponse "Not the creator"
// @Failure 409 {object} utilities.ErrorResponse "Post is closed or expired"
// @Router /jobposts/{id} [patch]
func (jc *JobPostController) EditJobPost(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var patch postflow.Patch
	if !utilities.BindJSON(c, &patch) {
		return
	}

	post, err := jc.Posts.Update(c.Request.Context(), actor, id, patch)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// TransitionJobPost moves a post through its lifecycle
// @Summary Change job post status
// @Description draft to pending_review or closed, pending_review to published, published to expired or closed
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Param status body transitionRequest true "Requested status"
// @Success 200 {object} model.JobPost
// @Failure 403 {object} utilities.ErrorResponse "Not the creator"
// @Failure 409 {object} utilities.ErrorResponse "Transition not allowed"
// @Router /jobposts/{id}/transition [post]
func (jc *JobPostController) TransitionJobPost(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transitionRequest
	if !utilities.BindJSON(c, &req) {
		return
	}

	post, err := jc.Posts.Transition(c.Request.Context(), actor, id, *req.Status)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeleteJobPost soft-deletes a post
// @Summary Delete job post
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Success 200 {object} utilities.MessageResponse
// @Failure 403 {object} utilities.ErrorResponse "Not the creator"
// @Failure 404 {object} utilities.ErrorResponse "Job post not found"
// @Router /jobposts/{id} [delete]
func (jc *JobPostController) DeleteJobPost(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := jc.Posts.SoftDelete(c.Request.Context(), actor, id); err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Job post deleted"})
}

// GetPostHistory returns the audit trail of a post
// @Summary Job post audit trail
// @Tags Jobpost
// @Produce json
// @Param id path string true "Job post id"
// @Success 200 {array} model.AuditRecord
// @Failure 403 {object} utilities.ErrorResponse "Post is not visible"
// @Router /jobposts/{id}/history [get]
func (jc *JobPostController) GetPostHistory(c *gin.Context) {
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewer, _ := identity.FromContext(c)

	records, err := jc.Posts.History(c.Request.Context(), viewer, id)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// GetCompanyPosts lists the open posts of one company
// @Summary List open job posts of a company
// @Description Published and not yet expired, newest first, each with its shifts
// @Tags Jobpost
// @Produce json
// @Param id path string true "Company id"
// @Param page query integer false "1-based page"
// @Param size query integer false "Page size, at most 100"
// @Success 200 {array} model.JobPost
// @Failure 404 {object} utilities.ErrorResponse "Company not found"
// @Router /companies/{id}/jobposts [get]
func (jc *JobPostController) GetCompanyPosts(c *gin.Context) {
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	page, ok := utilities.ParsePage(c)
	if !ok {
		return
	}

	posts, err := jc.Posts.ListByCompany(c.Request.Context(), id, page)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, posts)
}

// GetShifts lists the working slots of a post
// @Summary List job post shifts
// @Tags Jobpost
// @Produce json
// @Param id path string true "Job post id"
// @Success 200 {array} model.JobShift
// @Failure 403 {object} utilities.ErrorResponse "Post is not published"
// @Failure 404 {object} utilities.ErrorResponse "Job post not found"
// @Router /jobposts/{id}/shifts [get]
func (jc *JobPostController) GetShifts(c *gin.Context) {
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	viewer, _ := identity.FromContext(c)

	shifts, err := jc.Posts.ListShifts(c.Request.Context(), viewer, id)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shifts)
}

// AddShift attaches a shift to a post
// @Summary Add job post shift
// @Description Times use the 15:04 layout, day_of_week counts from Sunday as 0
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Param shift body model.ShiftInfo true "Shift"
// @Success 201 {object} model.JobShift
// @Failure 400 {object} utilities.ErrorResponse "Invalid shift"
// @Failure 403 {object} utilities.ErrorResponse "Not the creator"
// @Failure 409 {object} utilities.ErrorResponse "Post is closed or expired"
// @Router /jobposts/{id}/shifts [post]
func (jc *JobPostController) AddShift(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var info model.ShiftInfo
	if !utilities.BindJSON(c, &info) {
		return
	}

	shift, err := jc.Posts.AddShift(c.Request.Context(), actor, id, info)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, shift)
}

// UpdateShift patches a shift
// @Summary Edit job post shift
// @Tags Jobpost
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param shiftID path string true "Shift id"
// @Param shift body model.ShiftInfo true "Fields to change"
// @Success 200 {object} model.JobShift
// @Failure 403 {object} utilities.ErrorResponse "Not the creator"
// @Failure 404 {object} utilities.ErrorResponse "Shift not found"
// @Router /jobposts/shifts/{shiftID} [patch]
func (jc *JobPostController) UpdateShift(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "shiftID")
	if !ok {
		return
	}
	var patch model.ShiftInfo
	if !utilities.BindJSON(c, &patch) {
		return
	}

	shift, err := jc.Posts.UpdateShift(c.Request.Context(), actor, id, patch)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, shift)
}

// DeleteShift removes a shift
// @Summary Delete job post shift
// @Tags Jobpost
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param shiftID path string true "Shift id"
// @Success 200 {object} utilities.MessageResponse
// @Failure 403 {object} utilities.ErrorResponse "Not the creator"
// @Failure 404 {object} utilities.ErrorResponse "Shift not found"
// @Router /jobposts/shifts/{shiftID} [delete]
func (jc *JobPostController) DeleteShift(c *gin.Context) {
	actor, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "shiftID")
	if !ok {
		return
	}

	if err := jc.Posts.DeleteShift(c.Request.Context(), actor, id); err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, utilities.MessageResponse{Message: "Shift deleted"})
}
