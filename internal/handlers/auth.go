package handlers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/exclusive/internal/config"
	"github.com/example/exclusive/internal/middleware"
	"github.com/example/exclusive/internal/models"
	"github.com/example/exclusive/internal/services"
	"github.com/example/exclusive/internal/utils"
)

const verificationCodeType = "email_verification"

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db       *gorm.DB
	cfg      *config.Config
	sessions *services.SessionService
	email    *services.EmailService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config, sessions *services.SessionService, email *services.EmailService) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg, sessions: sessions, email: email}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register creates a new user account and opens a session. The welcome email
// is fire-and-forget: registration succeeds even when delivery fails.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Email == "" || req.Password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "email and password are required")
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: passwordHash,
	}

	if err := h.db.Create(&user).Error; err != nil {
		return err
	}

	accessToken, err := h.sessions.Issue(c.Context(), user.ID, user.Email, false)
	if err != nil {
		return err
	}

	go func(name, email string) {
		if err := h.email.SendWelcomeEmail(name, email); err != nil {
			log.Printf("[Auth] failed to send welcome email to %s: %v", email, err)
		}
	}(user.Name, user.Email)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user":        userResponse(user),
		"accessToken": accessToken,
	})
}

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

// Login authenticates an existing user. The response never distinguishes an
// unknown email from a wrong password.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid email or password")
	}

	accessToken, err := h.sessions.Issue(c.Context(), user.ID, user.Email, req.RememberMe)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user":        userResponse(user),
		"accessToken": accessToken,
	})
}

type refreshRequest struct {
	AccessToken string `json:"accessToken"`
}

// Refresh rotates the session's access token. The client presents its
// last-issued access token even after the token's own expiry.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.AccessToken == "" {
		return fiber.NewError(fiber.StatusBadRequest, "accessToken is required")
	}

	accessToken, err := h.sessions.Refresh(c.Context(), req.AccessToken)
	if err != nil {
		if errors.Is(err, services.ErrUnauthenticated) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid refresh token or refresh token expired")
		}
		return err
	}

	return c.JSON(fiber.Map{"accessToken": accessToken})
}

// Logout revokes the current session. Idempotent.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	accessToken, ok := middleware.GetCurrentAccessToken(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.sessions.Revoke(c.Context(), accessToken); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// SendVerification issues a fresh email verification code, replacing any
// previous one.
func (h *AuthHandler) SendVerification(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "user not found")
		}
		return err
	}

	if user.IsEmailVerified {
		return fiber.NewError(fiber.StatusConflict, "email is already verified")
	}

	code, err := utils.GenerateVerificationCode()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate verification code")
	}

	if err := h.db.Where("user_id = ? AND type = ?", user.ID, verificationCodeType).
		Delete(&models.VerificationCode{}).Error; err != nil {
		return err
	}

	verification := models.VerificationCode{
		UserID:    user.ID,
		Email:     user.Email,
		Code:      code,
		Type:      verificationCodeType,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
	if err := h.db.Create(&verification).Error; err != nil {
		return err
	}

	if err := h.email.SendVerificationEmail(displayName(user), user.Email, code); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Verification code sent to your email"})
}

type verifyEmailRequest struct {
	Code string `json:"code"`
}

// VerifyEmail validates the submitted code and marks the user verified.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req verifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "user not found")
		}
		return err
	}

	if user.IsEmailVerified {
		return fiber.NewError(fiber.StatusConflict, "email is already verified")
	}

	var verification models.VerificationCode
	err := h.db.Where(
		"user_id = ? AND email = ? AND code = ? AND type = ? AND is_used = ? AND expires_at > ?",
		user.ID, user.Email, req.Code, verificationCodeType, false, time.Now(),
	).First(&verification).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired verification code")
		}
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&verification).Update("is_used", true).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("is_email_verified", true).Error
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": "Email verified successfully"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

const forgotPasswordMessage = "If an account with that email exists, we've sent a password reset link"

// ForgotPassword starts the reset flow. The response is identical whether or
// not the email matches an account.
func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var req forgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	var user models.User
	if err := h.db.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(fiber.Map{"message": forgotPasswordMessage})
		}
		return err
	}

	resetToken, err := utils.GenerateResetToken()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate reset token")
	}

	if err := h.db.Where("user_id = ?", user.ID).Delete(&models.PasswordReset{}).Error; err != nil {
		return err
	}

	reset := models.PasswordReset{
		UserID:    user.ID,
		Email:     user.Email,
		Token:     resetToken,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := h.db.Create(&reset).Error; err != nil {
		return err
	}

	resetLink := h.cfg.FrontendURL + "/reset-password?token=" + resetToken
	if err := h.email.SendPasswordResetEmail(displayName(user), user.Email, resetLink); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": forgotPasswordMessage})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// ResetPassword completes the reset flow and revokes every live session for
// the user.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req resetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Token == "" || req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "token and newPassword are required")
	}

	var reset models.PasswordReset
	err := h.db.Where("token = ? AND is_used = ? AND expires_at > ?", req.Token, false, time.Now()).
		First(&reset).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or expired reset token")
		}
		return err
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&reset).Update("is_used", true).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).Where("id = ?", reset.UserID).
			Update("password_hash", passwordHash).Error
	})
	if err != nil {
		return err
	}

	if err := h.sessions.RevokeAllForUser(c.Context(), reset.UserID); err != nil {
		log.Printf("[Auth] failed to revoke sessions for user %s: %v", reset.UserID, err)
	}

	return c.JSON(fiber.Map{"message": "Password reset successfully"})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword rotates the password of the authenticated user and revokes
// every live session.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req changePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.NewPassword == "" {
		return fiber.NewError(fiber.StatusBadRequest, "newPassword is required")
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "user not found")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		return fiber.NewError(fiber.StatusUnauthorized, "current password is incorrect")
	}

	passwordHash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	if err := h.db.Model(&user).Update("password_hash", passwordHash).Error; err != nil {
		return err
	}

	if err := h.sessions.RevokeAllForUser(c.Context(), user.ID); err != nil {
		log.Printf("[Auth] failed to revoke sessions for user %s: %v", user.ID, err)
	}

	return c.JSON(fiber.Map{"message": "Password changed successfully"})
}

func userResponse(user models.User) fiber.Map {
	return fiber.Map{
		"id":              user.ID,
		"email":           user.Email,
		"name":            user.Name,
		"isEmailVerified": user.IsEmailVerified,
		"createdAt":       user.CreatedAt,
		"updatedAt":       user.UpdatedAt,
	}
}

func displayName(user models.User) string {
	if user.Name != "" {
		return user.Name
	}
	return "User"
}
