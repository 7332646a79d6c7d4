package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/middleware"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Register(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	VerifyEmail(c fiber.Ctx) error
	ResendVerification(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	ResetPassword(c fiber.Ctx) error
	Captcha(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow, log logging.Logger, timeout time.Duration) *AuthHandler {
	return &AuthHandler{
		baseHandler: newBaseHandler(log, timeout),
		authFlow:    authFlow,
	}
}

// Register handles account creation
// @Summary User Registration
// @Description Create an unverified account and send a verification email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.RegisterResponse} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation error or captcha rejected"
// @Failure 409 {object} dto.APIResponse "Email already in use"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/register [post]
func (h *AuthHandler) Register(c fiber.Ctx) error {
	var req dto.RegisterRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/register")
	defer cancel()

	result, err := h.authFlow.Register(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "User registered successfully. Please check your email to verify your account", result)
}

// Login handles user authentication
// @Summary User Login
// @Description Authenticate with email and password; previous sessions are revoked
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.LoginResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 401 {object} dto.APIResponse "Incorrect email or password"
// @Failure 403 {object} dto.APIResponse "Email not verified"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/login")
	defer cancel()

	result, err := h.authFlow.Login(ctx, &req, h.clientMetadata(c))
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", result)
}

// Logout revokes the presented session
// @Summary User Logout
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Failure 404 {object} dto.APIResponse "Token not found"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	token, hasToken := middleware.GetAccessTokenFromContext(c)
	if !ok || !hasToken {
		return h.unauthorized(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/logout")
	defer cancel()

	if err := h.authFlow.Logout(ctx, userID, token); err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Logout successful", nil)
}

// VerifyEmail consumes an email verification token
// @Summary Verify Email
// @Tags Authentication
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Email verified"
// @Failure 400 {object} dto.APIResponse "Invalid or expired token"
// @Router /api/v1/auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Verification token is required", "MISSING_TOKEN", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/verify-email")
	defer cancel()

	user, err := h.authFlow.VerifyEmail(ctx, token)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Email verified successfully", user)
}

// ResendVerification issues a fresh verification email
// @Summary Resend Verification Email
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Account email"
// @Success 200 {object} dto.APIResponse "Verification email sent"
// @Failure 404 {object} dto.APIResponse "User not found"
// @Failure 409 {object} dto.APIResponse "Email is already verified"
// @Router /api/v1/auth/resend-verification [post]
func (h *AuthHandler) ResendVerification(c fiber.Ctx) error {
	var req dto.EmailRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/resend-verification")
	defer cancel()

	if err := h.authFlow.ResendVerification(ctx, &req); err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Verification email sent", nil)
}

// ForgotPassword starts a password reset
// @Summary Forgot Password
// @Description Always succeeds for unknown emails so accounts cannot be enumerated
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Account email"
// @Success 200 {object} dto.APIResponse "Reset email sent when the account exists"
// @Router /api/v1/auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.EmailRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/forgot-password")
	defer cancel()

	if err := h.authFlow.ForgotPassword(ctx, &req, h.clientMetadata(c)); err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "If the email is registered, a password reset link has been sent", nil)
}

// ResetPassword consumes a reset token and sets a new password
// @Summary Reset Password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.ResetPasswordRequest true "Reset token and new password"
// @Success 200 {object} dto.APIResponse "Password reset"
// @Failure 400 {object} dto.APIResponse "Invalid or expired token"
// @Router /api/v1/auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/reset-password")
	defer cancel()

	if err := h.authFlow.ResetPassword(ctx, &req, h.clientMetadata(c)); err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Password reset successfully", nil)
}

// Captcha returns a rotate captcha challenge
// @Summary Captcha Challenge
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.CaptchaResponse} "Challenge created"
// @Failure 503 {object} dto.APIResponse "Captcha disabled"
// @Router /api/v1/auth/captcha [get]
func (h *AuthHandler) Captcha(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/auth/captcha")
	defer cancel()

	challenge, err := h.authFlow.Captcha(ctx)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Captcha generated", challenge)
}
