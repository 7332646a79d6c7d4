// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/middleware"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/utils"
)

const defaultRequestTimeout = 30 * time.Second

// baseHandler carries the response envelope, validation and error mapping shared by every handler.
type baseHandler struct {
	validator *validator.Validate
	logger    logging.Logger
	timeout   time.Duration
}

func newBaseHandler(log logging.Logger, timeout time.Duration) baseHandler {
	if log == nil {
		log = logging.Nop()
	}
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return baseHandler{validator: validator.New(), logger: log, timeout: timeout}
}

func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// bindJSON decodes and validates a request body, writing the 400 response itself on failure.
func (h *baseHandler) bindJSON(c fiber.Ctx, req any) (bool, error) {
	if err := c.Bind().JSON(req); err != nil {
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	return h.validate(c, req)
}

func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", err.Error())
		}
		validationErrors := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			validationErrors = append(validationErrors, getValidationErrorMessage(fe))
		}
		return false, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", validationErrors)
	}
	return true, nil
}

// createRequestContext derives a bounded context carrying request-scoped values for logging.
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Context(), h.timeout)

	requestID, _ := c.Locals("request_id").(string)
	if requestID == "" {
		requestID = c.Get("X-Request-ID")
	}
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestID)
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	ctx = context.WithValue(ctx, utils.TimeoutKey, h.timeout)
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		ctx = context.WithValue(ctx, utils.UserIDKey, userID)
	}
	return ctx, cancel
}

func (h *baseHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if requestID, ok := c.Locals("request_id").(string); ok {
		metadata.SetRequestID(requestID)
	}
	return metadata
}

// handleError maps business failures onto HTTP statuses. Unexpected failures are logged
// and answered with a generic 500 so store details never reach the client.
func (h *baseHandler) handleError(ctx context.Context, c fiber.Ctx, err error) error {
	code, message := "INTERNAL_ERROR", "Internal server error"
	be, isBusiness := businessflow.AsBusinessError(err)
	if isBusiness {
		code, message = be.Code, be.Message
	}

	status := fiber.StatusInternalServerError
	switch {
	case businessflow.IsNotFound(err):
		status = fiber.StatusNotFound
	case businessflow.IsBadInput(err):
		status = fiber.StatusBadRequest
	case businessflow.IsIncorrectCredentials(err):
		status = fiber.StatusUnauthorized
	case businessflow.IsEmailNotVerified(err):
		status = fiber.StatusForbidden
	case businessflow.IsChatbotUnavailable(err):
		status = fiber.StatusBadGateway
	case businessflow.IsAllocationFailed(err), businessflow.IsCaptchaUnavailable(err), businessflow.IsStoreUnavailable(err):
		status = fiber.StatusServiceUnavailable
	case businessflow.IsConflict(err):
		status = fiber.StatusConflict
	}

	if status >= fiber.StatusInternalServerError {
		h.logger.WithContext(ctx).Error("Request failed", "code", code, "status", status, "path", c.Path(), "error", err)
		if !isBusiness || status == fiber.StatusInternalServerError {
			message = "Internal server error"
		}
	}
	return h.ErrorResponse(c, status, message, code, nil)
}

func (h *baseHandler) unauthorized(c fiber.Ctx) error {
	return h.ErrorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "uuid":
		return err.Field() + " must be a UUID"
	case "hexadecimal":
		return err.Field() + " must be hexadecimal"
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}
