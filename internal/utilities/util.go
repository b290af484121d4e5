// Package utilities contain utility code that use across the package
package utilities

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"PartTimeJob-backend/internal/apperror"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/workflow"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error    string `json:"error"`
	Kind     string `json:"kind,omitempty"`
	EntityID string `json:"entity_id,omitempty"`
	State    string `json:"state,omitempty"`
}

// MessageResponse is the body of a request that returns no entity
type MessageResponse struct {
	Message string `json:"message"`
}

var statusByKind = map[apperror.Kind]int{
	apperror.KindPermissionDenied:  http.StatusForbidden,
	apperror.KindNotFound:          http.StatusNotFound,
	apperror.KindInvalidTransition: http.StatusConflict,
	apperror.KindAlreadyApplied:    http.StatusConflict,
	apperror.KindAlreadyReviewed:   http.StatusConflict,
	apperror.KindMissingCV:         http.StatusBadRequest,
	apperror.KindExpired:           http.StatusBadRequest,
	apperror.KindValidation:        http.StatusBadRequest,
	apperror.KindInternal:          http.StatusInternalServerError,
}

// StatusOf maps an error kind to its HTTP status
func StatusOf(kind apperror.Kind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError writes err as an ErrorResponse. Internal causes are logged
// and replaced with a generic message.
func RespondError(c *gin.Context, err error) {
	var appErr *apperror.Error
	if !errors.As(err, &appErr) {
		appErr = apperror.Internal(err, "internal error")
	}

	resp := ErrorResponse{Error: appErr.Message, Kind: string(appErr.Kind), State: appErr.State}
	if appErr.EntityID != uuid.Nil {
		resp.EntityID = appErr.EntityID.String()
	}
	if appErr.Kind == apperror.KindInternal {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		if resp.Error == "" {
			resp.Error = "internal error"
		}
	}
	if resp.Error == "" {
		resp.Error = string(appErr.Kind)
	}

	c.AbortWithStatusJSON(StatusOf(appErr.Kind), resp)
}

// ParseUUIDParam reads a uuid path parameter, responding 400 when malformed
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("Invalid %s: %s", name, c.Param(name)),
			Kind:  string(apperror.KindValidation),
		})
		return uuid.Nil, false
	}
	return id, true
}

// BindJSON binds the request body, responding 400 on failure
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: fmt.Sprintf("Invalid request body: %s", err.Error()),
			Kind:  string(apperror.KindValidation),
		})
		return false
	}
	return true
}

// RequireIdentity returns the caller attached by the auth middleware,
// responding 401 when there is none
func RequireIdentity(c *gin.Context) (identity.Identity, bool) {
	id, err := identity.FromContext(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
		return identity.Identity{}, false
	}
	return id, true
}

// ParsePage reads the page and size query parameters. Missing values fall
// back to the first page of the default size.
func ParsePage(c *gin.Context) (workflow.Page, bool) {
	var page workflow.Page
	for name, dst := range map[string]*int{"page": &page.Number, "size": &page.Size} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error: fmt.Sprintf("Invalid %s: %s", name, raw),
				Kind:  string(apperror.KindValidation),
			})
			return workflow.Page{}, false
		}
		*dst = n
	}
	return page.Normalize(), true
}
