// Package middleware contain utilities middleware code
package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/auth"
	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/utilities"
)

// UserKey is the context key holding the authenticated model.User
const UserKey = "user"

// RequireAuth validates the Bearer token, loads the user with their roles and
// attaches the caller's identity before allowing access to the endpoint.
func RequireAuth(db *database.DBinstanceStruct, tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenString, err := utilities.ExtractBearerToken(ctx)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, utilities.ErrorResponse{
				Error: err.Error(),
			})
			return
		}

		claims, err := tokens.Validate(tokenString)
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: "Access token expired",
			})
			return
		case errors.Is(err, auth.ErrInvalidIssuer):
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: "Invalid token issuer",
			})
			return
		case err != nil:
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: fmt.Sprintf("Failed to validate token: %s", err.Error()),
			})
			return
		}

		userID, err := auth.UserID(claims)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
				Error: "Invalid access token",
			})
			return
		}

		var foundUser model.User
		if err := db.WithContext(ctx.Request.Context()).Preload("Roles").Where("id = ?", userID).First(&foundUser).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				ctx.AbortWithStatusJSON(http.StatusUnauthorized, utilities.ErrorResponse{
					Error: "User not exist",
				})
				return
			}

			slog.ErrorContext(ctx.Request.Context(), "failed to load authenticated user", "user_id", userID, "error", err)
			ctx.AbortWithStatusJSON(http.StatusInternalServerError, utilities.ErrorResponse{
				Error: "Failed to retrieve user data",
			})
			return
		}

		ctx.Set(UserKey, foundUser)
		identity.Set(ctx, identity.New(foundUser.ID, foundUser.RoleNames()...))
		ctx.Next()
	}
}

// OptionalAuth attaches an identity when a valid token is present and lets
// anonymous requests through otherwise
func OptionalAuth(db *database.DBinstanceStruct, tokens *auth.TokenIssuer) gin.HandlerFunc {
	required := RequireAuth(db, tokens)
	return func(ctx *gin.Context) {
		if ctx.GetHeader("Authorization") == "" {
			ctx.Next()
			return
		}
		required(ctx)
	}
}
