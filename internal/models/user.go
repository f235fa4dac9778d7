package models

import "time"

// User represents a registered account. The password hash is empty for
// federated identities; verification and reset tokens are opaque random
// values always paired with an expiry. A consumed reset token is kept
// with ResetTokenUsed set so "already used" can be told apart from
// "never issued".
type User struct {
	Base
	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash" json:"-"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Provider     string `gorm:"default:local" json:"-"`
	IsSeller     bool   `gorm:"default:false" json:"is_seller"`

	// Email verification
	EmailVerified      bool       `gorm:"default:false" json:"email_verified"`
	VerificationToken  string     `gorm:"index" json:"-"`
	VerificationExpiry *time.Time `json:"-"`

	// Password reset
	ResetToken       string     `gorm:"index" json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`
	ResetTokenUsed   bool       `gorm:"default:false" json:"-"`

	// Lockout tracking
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	AccountLockedUntil  *time.Time `json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}
