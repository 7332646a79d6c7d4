// Package businessflow contains the core business logic and use cases of the service
package businessflow

import (
	"errors"
	"fmt"

	"github.com/marcoalfans/manud-be/repository"
)

// Business flow error constants
var (
	// Catalog errors
	ErrUmkmNotFound        = errors.New("UMKM not found")
	ErrDestinationNotFound = errors.New("Destination not found")
	ErrFavoriteNotFound    = errors.New("Favorite not found")
	ErrInvalidID           = errors.New("invalid id")
	ErrInvalidRecord       = errors.New("invalid record")
	ErrAllocationFailed    = errors.New("id allocation failed")

	// Account errors
	ErrEmailAlreadyExists   = errors.New("Email already in use")
	ErrIncorrectCredentials = errors.New("Incorrect email or password")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrUserNotFound         = errors.New("user not found")
	ErrAlreadyVerified      = errors.New("already verified")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrTokenNotFound        = errors.New("Token not found")
	ErrInvalidCaptcha       = errors.New("invalid captcha")

	// Upstream errors
	ErrChatbotUnavailable = errors.New("chatbot unavailable")
	ErrCaptchaUnavailable = errors.New("captcha unavailable")
	ErrStoreUnavailable   = errors.New("store unavailable")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// AsBusinessError returns the outermost BusinessError in err's chain.
func AsBusinessError(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

func IsUmkmNotFound(err error) bool {
	return errors.Is(err, ErrUmkmNotFound)
}

func IsDestinationNotFound(err error) bool {
	return errors.Is(err, ErrDestinationNotFound)
}

func IsFavoriteNotFound(err error) bool {
	return errors.Is(err, ErrFavoriteNotFound)
}

// IsNotFound reports any missing-resource failure.
func IsNotFound(err error) bool {
	return IsUmkmNotFound(err) || IsDestinationNotFound(err) || IsFavoriteNotFound(err) ||
		errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrTokenNotFound)
}

func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}

func IsInvalidRecord(err error) bool {
	return errors.Is(err, ErrInvalidRecord)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsIncorrectCredentials(err error) bool {
	return errors.Is(err, ErrIncorrectCredentials)
}

func IsEmailNotVerified(err error) bool {
	return errors.Is(err, ErrEmailNotVerified)
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAlreadyVerified(err error) bool {
	return errors.Is(err, ErrAlreadyVerified)
}

func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

func IsTokenNotFound(err error) bool {
	return errors.Is(err, ErrTokenNotFound)
}

func IsInvalidCaptcha(err error) bool {
	return errors.Is(err, ErrInvalidCaptcha)
}

func IsChatbotUnavailable(err error) bool {
	return errors.Is(err, ErrChatbotUnavailable)
}

func IsCaptchaUnavailable(err error) bool {
	return errors.Is(err, ErrCaptchaUnavailable)
}

func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// IsConflict reports a write that lost to existing state.
func IsConflict(err error) bool {
	return IsEmailAlreadyExists(err) || IsAlreadyVerified(err) || errors.Is(err, repository.ErrConflict)
}

// IsBadInput reports a request the caller has to fix before retrying.
func IsBadInput(err error) bool {
	return IsInvalidID(err) || IsInvalidRecord(err) || IsInvalidToken(err) || IsInvalidCaptcha(err)
}

func IsAllocationFailed(err error) bool {
	return errors.Is(err, ErrAllocationFailed)
}
