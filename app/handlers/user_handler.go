package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/middleware"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
)

// UserHandler serves the caller's own account
type UserHandler struct {
	baseHandler
	authFlow businessflow.AuthFlow
}

func NewUserHandler(authFlow businessflow.AuthFlow, log logging.Logger, timeout time.Duration) *UserHandler {
	return &UserHandler{baseHandler: newBaseHandler(log, timeout), authFlow: authFlow}
}

// Me returns the authenticated user's profile
// @Summary Current User
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Profile"
// @Failure 401 {object} dto.APIResponse "Authentication required"
// @Router /api/v1/users/me [get]
func (h *UserHandler) Me(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.unauthorized(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/users/me")
	defer cancel()

	user, err := h.authFlow.Me(ctx, userID)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get User Success", user)
}
