package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered customer.
type User struct {
	BaseModel
	Email           string  `gorm:"uniqueIndex" json:"email"`
	Name            string  `json:"name"`
	PasswordHash    string  `json:"-"`
	IsEmailVerified bool    `json:"is_email_verified"`
	Orders          []Order `json:"orders,omitempty"`
}

// VerificationCode tracks email verification codes sent to users.
type VerificationCode struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Email     string    `json:"email"`
	Code      string    `json:"code"`
	Type      string    `json:"type"`
	IsUsed    bool      `json:"is_used"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PasswordReset tracks one-time password reset tokens.
type PasswordReset struct {
	BaseModel
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Email     string    `json:"email"`
	Token     string    `gorm:"uniqueIndex" json:"-"`
	IsUsed    bool      `json:"is_used"`
	ExpiresAt time.Time `json:"expires_at"`
}
