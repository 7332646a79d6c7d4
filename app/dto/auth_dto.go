// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "time"

// CaptchaAnswer is the optional rotate captcha solution attached to abuse-prone requests.
type CaptchaAnswer struct {
	CaptchaID    string   `json:"captchaId,omitempty" validate:"omitempty,max=64" example:"0b6f7a8e-3c1d-4c55-9d2c-1a0e4f6c9b21"`
	CaptchaAngle *float64 `json:"captchaAngle,omitempty" validate:"omitempty,min=0,max=360" example:"135"`
}

// RegisterRequest represents the registration form
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255" example:"Siti Aminah"`
	Email    string `json:"email" validate:"required,email,max=255" example:"siti@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
	CaptchaAnswer
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"siti@example.com"`
	Password string `json:"password" validate:"required,max=100" example:"SecurePass123!"`
}

// EmailRequest carries an address for resend-verification and forgot-password
type EmailRequest struct {
	Email string `json:"email" validate:"required,email,max=255" example:"siti@example.com"`
	CaptchaAnswer
}

// ResetPasswordRequest consumes a password reset token
type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required,hexadecimal,max=128"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"NewSecurePass123!"`
}

// UserDTO is the public view of an account
type UserDTO struct {
	UID           string    `json:"uid" example:"7d9f3c8e-1b2a-4c3d-9e8f-0a1b2c3d4e5f"`
	DisplayName   string    `json:"displayName" example:"Siti Aminah"`
	Email         string    `json:"email" example:"siti@example.com"`
	EmailVerified bool      `json:"emailVerified" example:"false"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RegisterResponse is returned after an account is created
type RegisterResponse struct {
	User                  UserDTO `json:"user"`
	VerificationEmailSent bool    `json:"verificationEmailSent"`
}

// LoginResponse carries the issued access token
type LoginResponse struct {
	Token     string    `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType string    `json:"tokenType" example:"Bearer"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      UserDTO   `json:"user"`
}

// CaptchaResponse is a rotate captcha challenge
type CaptchaResponse struct {
	ID        string `json:"id"`
	Image     string `json:"image"`
	Thumb     string `json:"thumb"`
	ThumbSize int    `json:"thumbSize"`
}
