package models

import "time"

type User struct {
	ID              string     `gorm:"primaryKey;size:64" json:"uid"`
	Name            string     `gorm:"size:255;not null" json:"displayName"`
	Email           string     `gorm:"size:255;not null;uniqueIndex:idx_users_email" json:"email"`
	PasswordHash    string     `gorm:"size:255;not null" json:"-"`
	EmailVerified   bool       `gorm:"not null;default:false" json:"emailVerified"`
	EmailVerifiedAt *time.Time `json:"emailVerifiedAt,omitempty"`
	CreatedAt       time.Time  `gorm:"not null" json:"createdAt"`
	UpdatedAt       time.Time  `gorm:"not null" json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// Verification token types
const (
	TokenTypeEmailVerification = "email_verification"
	TokenTypePasswordReset     = "password_reset"
)

// VerificationToken is a single-use emailed token.
type VerificationToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"size:128;not null;uniqueIndex:idx_verification_tokens_token" json:"-"`
	UserID    string    `gorm:"size:64;not null;index:idx_verification_tokens_user" json:"userId"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	ExpiresAt time.Time `gorm:"not null;index:idx_verification_tokens_expires_at" json:"expiresAt"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (VerificationToken) TableName() string { return "verification_tokens" }

func (t *VerificationToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// SessionToken records an issued access token; a token is only honoured while its row exists.
type SessionToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"type:text;not null;uniqueIndex:idx_session_tokens_token" json:"-"`
	UserID    string    `gorm:"size:64;not null;index:idx_session_tokens_user" json:"userId"`
	ExpiresAt time.Time `gorm:"not null;index:idx_session_tokens_expires_at" json:"expiresAt"`
	CreatedAt time.Time `gorm:"not null" json:"createdAt"`
}

func (SessionToken) TableName() string { return "session_tokens" }
