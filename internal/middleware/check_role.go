package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/utilities"
)

// CheckRole will protect endpoint from user that holds none of roles
func CheckRole(roles ...string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, err := identity.FromContext(ctx)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: err.Error(),
			})
			return
		}

		if !id.HasAnyRole(roles...) {
			ctx.AbortWithStatusJSON(http.StatusForbidden, utilities.ErrorResponse{
				Error: "User doesn't have permission to access",
			})
			return
		}
		ctx.Next()
	}
}
