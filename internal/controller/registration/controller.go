// Package registration provides HTTP handlers for company registration review.
package registration

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/utilities"
	regflow "PartTimeJob-backend/internal/workflow/registration"
)

// RegistrationController serves registration endpoints
type RegistrationController struct {
	Registrations *regflow.Service
}

// NewRegistrationController creates a new instance of RegistrationController
func NewRegistrationController(regs *regflow.Service) *RegistrationController {
	return &RegistrationController{
		Registrations: regs,
	}
}

type reviewRequest struct {
	Note *string `json:"note"`
}

// ApprovalResponse carries the closed request and the company it created
type ApprovalResponse struct {
	Request *model.CompanyRegistrationRequest `json:"request"`
	Company *model.Company                    `json:"company"`
}

// RequestHandler files a registration for a new company
// @Summary Request company registration
// @Tags Registration
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param company body model.CompanyProfile true "Company profile"
// @Success 201 {object} model.CompanyRegistrationRequest
// @Failure 400 {object} utilities.ErrorResponse "Invalid profile"
// @Router /registrations [post]
func (rc *RegistrationController) RequestHandler(c *gin.Context) {
	requester, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	var profile model.CompanyProfile
	if !utilities.BindJSON(c, &profile) {
		return
	}

	req, err := rc.Registrations.Request(c.Request.Context(), requester, profile)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// ApproveHandler approves a pending request, creating the company and
// granting the employer role
// @Summary Approve registration
// @Description Only administrators have access to this endpoint
// @Tags Registration
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Request id"
// @Param review body reviewRequest false "Optional note"
// @Success 200 {object} ApprovalResponse
// @Failure 403 {object} utilities.ErrorResponse "Not an administrator"
// @Failure 404 {object} utilities.ErrorResponse "Request not found"
// @Failure 409 {object} utilities.ErrorResponse "Already reviewed"
// @Router /registrations/{id}/approve [post]
func (rc *RegistrationController) ApproveHandler(c *gin.Context) {
	admin, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var review reviewRequest
	if !bindOptional(c, &review) {
		return
	}

	req, company, err := rc.Registrations.Approve(c.Request.Context(), admin, id, review.Note)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ApprovalResponse{Request: req, Company: company})
}

// RejectHandler rejects a pending request
// @Summary Reject registration
// @Description Only administrators have access to this endpoint
// @Tags Registration
// @Accept json
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Request id"
// @Param review body reviewRequest false "Optional note"
// @Success 200 {object} model.CompanyRegistrationRequest
// @Failure 403 {object} utilities.ErrorResponse "Not an administrator"
// @Failure 409 {object} utilities.ErrorResponse "Already reviewed"
// @Router /registrations/{id}/reject [post]
func (rc *RegistrationController) RejectHandler(c *gin.Context) {
	admin, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var review reviewRequest
	if !bindOptional(c, &review) {
		return
	}

	req, err := rc.Registrations.Reject(c.Request.Context(), admin, id, review.Note)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// GetRegistration returns a request to its requester or an administrator
// @Summary Get registration by ID
// @Tags Registration
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param id path string true "Request id"
// @Success 200 {object} model.CompanyRegistrationRequest
// @Failure 403 {object} utilities.ErrorResponse "Not allowed"
// @Failure 404 {object} utilities.ErrorResponse "Request not found"
// @Router /registrations/{id} [get]
func (rc *RegistrationController) GetRegistration(c *gin.Context) {
	viewer, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	id, ok := utilities.ParseUUIDParam(c, "id")
	if !ok {
		return
	}

	req, err := rc.Registrations.Get(c.Request.Context(), viewer, id)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// ListRegistrations lists requests for administrators
// @Summary List registrations
// @Tags Registration
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Param status query string false "pending, approved or rejected"
// @Success 200 {array} model.CompanyRegistrationRequest
// @Failure 403 {object} utilities.ErrorResponse "Not an administrator"
// @Router /registrations [get]
func (rc *RegistrationController) ListRegistrations(c *gin.Context) {
	admin, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	page, ok := utilities.ParsePage(c)
	if !ok {
		return
	}
	f := regflow.Filter{Page: page}
	if raw := c.Query("status"); raw != "" {
		status, err := model.ParseRegistrationStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
				Error: fmt.Sprintf("Invalid status: %s", raw),
				Kind:  string(apperror.KindValidation),
			})
			return
		}
		f.Status = &status
	}

	reqs, err := rc.Registrations.List(c.Request.Context(), admin, f)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// ListMyRegistrations lists the caller's own requests
// @Summary List my registrations
// @Tags Registration
// @Produce json
// @Param Authorization header string true "Insert your access token" default(Bearer <your access token>)
// @Success 200 {array} model.CompanyRegistrationRequest
// @Router /registrations/mine [get]
func (rc *RegistrationController) ListMyRegistrations(c *gin.Context) {
	requester, ok := utilities.RequireIdentity(c)
	if !ok {
		return
	}
	page, ok := utilities.ParsePage(c)
	if !ok {
		return
	}

	reqs, err := rc.Registrations.ListMine(c.Request.Context(), requester, page)
	if err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

// bindOptional binds a body when one was sent
func bindOptional(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return utilities.BindJSON(c, dst)
}
