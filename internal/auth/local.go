package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"PartTimeJob-backend/internal/database"
	"PartTimeJob-backend/internal/identity"
	"PartTimeJob-backend/internal/model"
	"PartTimeJob-backend/internal/utilities"
)

// MinPasswordLength is the shortest password accepted at registration
const MinPasswordLength = 8

// LocalAuthHandler holds DB reference and token issuer for handler methods.
type LocalAuthHandler struct {
	DB     *database.DBinstanceStruct
	Tokens *TokenIssuer
}

// NewLocalAuthHandler creates a new instance of LocalAuthHandler
func NewLocalAuthHandler(db *database.DBinstanceStruct, tokens *TokenIssuer) *LocalAuthHandler {
	return &LocalAuthHandler{
		DB:     db,
		Tokens: tokens,
	}
}

type registerInfo struct {
	Username string  `json:"username" binding:"required,min=3,max=64"`
	Password string  `json:"password" binding:"required"`
	FullName string  `json:"full_name" binding:"max=200"`
	Email    *string `json:"email" binding:"omitempty,email"`
}

type loginInfo struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User        model.User `json:"user"`
	AccessToken string     `json:"access_token"`
}

// LocalRegisterHandler creates a student account
// @Summary Register a local account
// @Description Username must be unused and password at least 8 characters. New accounts hold the STUDENT role.
// @Tags Auth
// @Accept json
// @Produce json
// @Param Info body registerInfo true "Account details"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} utilities.ErrorResponse "Info provided not met the condition"
// @Failure 500 {object} utilities.ErrorResponse "Database or password hashing error"
// @Router /auth/register [post]
func (lh *LocalAuthHandler) LocalRegisterHandler(c *gin.Context) {
	var info registerInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username and password must be provided",
		})
		return
	}

	if len(info.Password) < MinPasswordLength {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: fmt.Sprintf("Password should longer or equal to %d characters", MinPasswordLength),
		})
		return
	}

	var user model.User
	err := lh.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		user, err = database.CreateUser(tx, info.Username, info.Password, model.RoleStudent)
		if err != nil {
			return err
		}
		if info.FullName == "" && info.Email == nil {
			return nil
		}
		user.FullName = info.FullName
		user.Email = info.Email
		return tx.Model(&user).Updates(map[string]any{"full_name": info.FullName, "email": info.Email}).Error
	})
	switch {
	case database.IsUniqueViolation(err, ""):
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username already exist",
		})
		return
	case err != nil:
		slog.Error("failed to register user", "username", info.Username, "error", err)
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Failed to create user",
		})
		return
	}

	lh.respondWithToken(c, http.StatusCreated, user)
}

// LocalLoginHandler checks a username and password and returns a token
// @Summary Log in with username and password
// @Tags Auth
// @Accept json
// @Produce json
// @Param Info body loginInfo true "Credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} utilities.ErrorResponse "Username or password is not provided"
// @Failure 401 {object} utilities.ErrorResponse "Username or password is incorrect"
// @Failure 500 {object} utilities.ErrorResponse "Database error"
// @Router /auth/login [post]
func (lh *LocalAuthHandler) LocalLoginHandler(c *gin.Context) {
	var info loginInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		c.JSON(http.StatusBadRequest, utilities.ErrorResponse{
			Error: "Username or password is not provided",
		})
		return
	}

	var user model.User
	err := lh.DB.Preload("Roles").Where("username = ?", info.Username).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		slog.Info("login failed", "username", info.Username, "reason", "unknown user")
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{
			Error: "Username or password is incorrect",
		})
		return
	case err != nil:
		slog.Error("failed to load user", "username", info.Username, "error", err)
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Database error",
		})
		return
	}

	if user.Password == "" || !utilities.VerifyPassword(info.Password, user.Password) {
		slog.Info("login failed", "username", info.Username, "reason", "wrong password")
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{
			Error: "Username or password is incorrect",
		})
		return
	}

	slog.Info("login succeeded", "user_id", user.ID)
	lh.respondWithToken(c, http.StatusOK, user)
}

// MeHandler returns the authenticated user with their roles
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} utilities.ErrorResponse
// @Router /auth/me [get]
func (lh *LocalAuthHandler) MeHandler(c *gin.Context) {
	id, err := identity.FromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, utilities.ErrorResponse{Error: err.Error()})
		return
	}

	var user model.User
	if err := lh.DB.Preload("Roles").Where("id = ?", id.UserID).First(&user).Error; err != nil {
		utilities.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (lh *LocalAuthHandler) respondWithToken(c *gin.Context, status int, user model.User) {
	token, err := lh.Tokens.Generate(user.ID)
	if err != nil {
		slog.Error("failed to generate access token", "user_id", user.ID, "error", err)
		c.JSON(http.StatusInternalServerError, utilities.ErrorResponse{
			Error: "Failed to generate access token",
		})
		return
	}
	c.JSON(status, AuthResponse{User: user, AccessToken: token})
}

