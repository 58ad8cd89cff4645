package api

import (
	"errors"
	"strings"

	"finera/config"
	"finera/database"
	"finera/middleware"
	"finera/models"
	"finera/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthHandler registration, login and account endpoints
type AuthHandler struct {
	cfg          *config.Config
	emailService *service.EmailService
}

// NewAuthHandler creates the auth handler
func NewAuthHandler(cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		cfg:          cfg,
		emailService: service.NewEmailService(&cfg.Email),
	}
}

// RegisterRequest registration payload
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50" example:"nimal"`
	Email    string `json:"email" binding:"required,email,max=100" example:"nimal@example.com"`
	Password string `json:"password" binding:"required,min=6,max=100" example:"password123"`
	FullName string `json:"fullName" binding:"max=100" example:"Nimal Perera"`
}

// LoginRequest login payload, the identifier may be a username or an email
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required" example:"nimal"`
	Password        string `json:"password" binding:"required" example:"password123"`
}

// AuthResponse issued credential
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Register creates an account
// @Summary Register
// @Description Create an account and return a token. A welcome mail is sent when mail is enabled.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "account"
// @Success 201 {object} Response{data=AuthResponse} "registered"
// @Failure 400 {object} Response "invalid request"
// @Failure 409 {object} Response "username or email taken"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var count int64
	if err := database.DB.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		internalError(c, err, "failed to register")
		return
	}
	if count > 0 {
		Conflict(c, "username or email already exists")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, err, "failed to hash password")
		return
	}

	user := models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPassword),
		FullName: strings.TrimSpace(req.FullName),
	}
	if err := database.DB.Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			Conflict(c, "username or email already exists")
			return
		}
		internalError(c, err, "failed to create user")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		internalError(c, err, "failed to generate token")
		return
	}

	if h.emailService.Enabled() {
		go h.sendWelcome(user)
	}

	Created(c, "registered", AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) sendWelcome(user models.User) {
	name := user.FullName
	if name == "" {
		name = user.Username
	}
	if err := h.emailService.SendWelcomeEmail(user.Email, name); err != nil {
		log.Warn().Err(err).Uint("user_id", user.ID).Msg("welcome mail not sent")
	}
}

// Login exchanges credentials for a token
// @Summary Login
// @Description Authenticate with username or email and get a JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "credentials"
// @Success 200 {object} Response{data=AuthResponse} "logged in"
// @Failure 400 {object} Response "invalid request"
// @Failure 401 {object} Response "invalid credentials"
// @Failure 429 {object} Response "too many attempts"
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}
	identifier := strings.TrimSpace(req.UsernameOrEmail)

	var user models.User
	if err := database.DB.Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error; err != nil {
		Unauthorized(c, "invalid username/email or password")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		Unauthorized(c, "invalid username/email or password")
		return
	}

	token, err := middleware.GenerateToken(user.ID, user.Username, user.Email, h.cfg.JWT.ExpireTime)
	if err != nil {
		internalError(c, err, "failed to generate token")
		return
	}

	Success(c, AuthResponse{Token: token, User: user})
}

// GetProfile returns the caller's account
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.User} "profile"
// @Failure 401 {object} Response "unauthorized"
// @Failure 404 {object} Response "user not found"
// @Router /api/auth/profile [get]
func (h *AuthHandler) GetProfile(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "user not found")
		return
	}

	Success(c, user)
}

// ChangePasswordRequest password change payload
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" binding:"required" example:"password123"`
	NewPassword string `json:"newPassword" binding:"required,min=6,max=100" example:"newpassword123"`
}

// ChangePassword replaces the caller's password
// @Summary Change password
// @Tags Auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "passwords"
// @Success 200 {object} Response "changed"
// @Failure 400 {object} Response "invalid request"
// @Failure 401 {object} Response "old password does not match"
// @Router /api/auth/password [put]
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	userID := middleware.GetCurrentUserID(c)

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, bindingMessage(err))
		return
	}

	var user models.User
	if err := database.DB.First(&user, userID).Error; err != nil {
		NotFound(c, "user not found")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
		Unauthorized(c, "old password does not match")
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		internalError(c, err, "failed to hash password")
		return
	}

	if err := database.DB.Model(&user).Update("password", string(hashedPassword)).Error; err != nil {
		internalError(c, err, "failed to update password")
		return
	}

	SuccessWithMessage(c, "password changed", nil)
}
