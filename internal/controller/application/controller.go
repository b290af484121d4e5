// Package application provides HTTP handlers for job application operations.
package application

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/utilities"
	appflow "PartTimeJob-backend/internal/workflow/application"
)

// ApplicationController handles job application related endpoints
type ApplicationController struct {
	Applications *appflow.Service
}

// NewApplicationController creates a new instance of ApplicationController
func NewApplicationController(apps *appflow.Service) *ApplicationController {
	return &ApplicationController{
		Applications: apps,
	}
}

type submitRequest struct {
	CVFileID    *uuid.UUID `json:"cv_file_id"`
	CoverLetter *string    `json:"cover_letter"`
}

type transitionRequest struct {
	Status *model.ApplicationStatus `json:"status" binding:"required"`
	Note   *string                  `json:"note"`
}

func parseFilter(c *gin.Context) (appflow.Filter, bool) {
	page, ok := utilities.ParsePage(c)
	if !ok {
		return appflow.Filter{}, false
	}
	f := appflow.Filter{Page: page}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseApplicationStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
				Error: fmt.Sprintf("Invalid status: %s", raw),
				Kind:  string(apperror.KindValidation),
			})
			return appflow.Filter{}, false
		}
		f.Status = &status
	}
	return f, true
}

// ApplyHandler submits an application to a job post
// @Summary Apply to a job post
// @Description The CV defaults to the resume on the applicant's profile when cv_file_id is omitted
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Param application body submitRequest true "Application information"
// @Success 201 {object} model.Application "Successfully apply job post"
// @Failure 400 {object} utilities.ErrorResponse "Missing CV, posting not accepting applications, or invalid body"
// @Failure 404 {object} utilities.ErrorResponse "Job post not found"
// @Failure 409 {object} utilities.ErrorResponse "Already applied"
// @Router /jobposts/{id}/applications [post]
func (ac *ApplicationController) ApplyHandler(c *gin.Context) {
	applicant, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	postID, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req submitRequest
	if !utilities.BindJSON(c, &req) {
		return
	}

	app, err := ac.Applications.Submit(c.Request.Context(), applicant, postID, req.CVFileID, req.CoverLetter)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, app)
}

// TransitionHandler lets the posting's creator move an application forward
// @Summary Change application status
// @Description shortlisted, interview, hired or rejected. An empty note is replaced with a standard one.
// @Tags Application
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Application id"
// @Param status body transitionRequest true "Requested status"
// @Success 200 {object} model.Application
// @Failure 403 {object} utilities.ErrorResponse "Not the job post creator"
// @Failure 409 {object} utilities.ErrorResponse "Transition not allowed"
// @Router /applications/{id}/transition [post]
func (ac *ApplicationController) TransitionHandler(c *gin.Context) {
	employer, ok := utilities.RequireIdentity(c)
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

	app, err := ac.Applications.TransitionByEmployer(c.Request.Context(), employer, id, *req.Status, req.Note)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// WithdrawHandler lets the applicant pull out
// @Summary Withdraw application
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Application id"
// @Success 200 {object} model.Application
// @Failure 403 {object} utilities.ErrorResponse "Not the applicant"
// @Failure 409 {object} utilities.ErrorResponse "Application already closed"
// @Router /applications/{id}/withdraw [post]
func (ac *ApplicationController) WithdrawHandler(c *gin.Context) {
	applicant, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	app, err := ac.Applications.Withdraw(c.Request.Context(), applicant, id)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// GetApplication returns an application with its history
// @Summary Get application by ID
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Application id"
// @Success 200 {object} model.Application
// @Failure 403 {object} utilities.ErrorResponse "Neither applicant nor job post creator"
// @Failure 404 {object} utilities.ErrorResponse "Application not found"
// @Router /applications/{id} [get]
func (ac *ApplicationController) GetApplication(c *gin.Context) {
	viewer, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	app, err := ac.Applications.Get(c.Request.Context(), viewer, id)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, app)
}

// GetMyApplications lists the caller's applications
// @Summary List my applications
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "Only applications in this status"
// @Param page query integer false "1-based page"
// @Param size query integer false "Page size, at most 100"
// @Success 200 {array} model.Application
// @Router /applications/mine [get]
func (ac *ApplicationController) GetMyApplications(c *gin.Context) {
	applicant, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}

	apps, err := ac.Applications.ListMine(c.Request.Context(), applicant, f)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// GetPostApplications lists the applications of one of the caller's posts
// @Summary List applications of a job post
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Param status query string false "Only applications in this status"
// @Success 200 {array} model.Application
// @Failure 403 {object} utilities.ErrorResponse "Not the job post creator"
// @Router /jobposts/{id}/applications [get]
func (ac *ApplicationController) GetPostApplications(c *gin.Context) {
	employer, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	postID, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	f, ok := parseFilter(c)
	if !ok {
		return
	}

	apps, err := ac.Applications.ListByPosting(c.Request.Context(), employer, postID, f)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, apps)
}

// GetPostStats counts a post's applications per status
// @Summary Application counts of a job post
// @Tags Application
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Job post id"
// @Success 200 {object} model.ApplicationStats
// @Failure 403 {object} utilities.ErrorResponse "Not the job post creator"
// @Router /jobposts/{id}/applications/stats [get]
func (ac *ApplicationController) GetPostStats(c *gin.Context) {
	employer, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	postID, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	stats, err := ac.Applications.StatsByPosting(c.Request.Context(), employer, postID)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
