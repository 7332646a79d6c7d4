// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/services"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/utils"
)

// Authenticator resolves a bearer token to its claims while the session is live.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*services.TokenClaims, error)
}

// AuthMiddleware handles JWT validation for protected endpoints
type AuthMiddleware struct {
	auth    Authenticator
	timeout time.Duration
}

func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth, timeout: 5 * time.Second}
}

// Authenticate rejects requests without a valid bearer token backed by a stored session.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return unauthorized(c, "Authorization header is required", "MISSING_AUTHORIZATION_HEADER")
		}
		scheme, token, _ := strings.Cut(strings.TrimSpace(authHeader), " ")
		if scheme != "Bearer" {
			return unauthorized(c, "Invalid authorization header format. Expected 'Bearer <token>'", "INVALID_AUTHORIZATION_FORMAT")
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return unauthorized(c, "Access token is required", "MISSING_ACCESS_TOKEN")
		}

		ctx, cancel := context.WithTimeout(c.Context(), m.timeout)
		defer cancel()

		claims, err := m.auth.Authenticate(ctx, token)
		if err != nil {
			if businessflow.IsInvalidToken(err) {
				return unauthorized(c, "Invalid or expired access token", "TOKEN_INVALID")
			}
			return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
				Success: false,
				Message: "Token validation failed",
				Error:   dto.ErrorDetail{Code: "TOKEN_VALIDATION_FAILED"},
			})
		}

		c.Locals(utils.UserIDLocal, claims.UserID)
		c.Locals(utils.AccessTokenLocal, token)
		c.Locals(utils.ClaimsLocal, claims)
		return c.Next()
	}
}

// GetUserIDFromContext extracts the authenticated user id from the request locals
func GetUserIDFromContext(c fiber.Ctx) (string, bool) {
	userID, ok := c.Locals(utils.UserIDLocal).(string)
	return userID, ok && userID != ""
}

// GetAccessTokenFromContext returns the bearer token the request was authenticated with
func GetAccessTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals(utils.AccessTokenLocal).(string)
	return token, ok && token != ""
}

func unauthorized(c fiber.Ctx, message, code string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error:   dto.ErrorDetail{Code: code},
	})
}
