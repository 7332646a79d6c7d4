package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/dto"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
)

// SystemHandler serves the welcome page, health and store probe
type SystemHandler struct {
	baseHandler
	systemFlow businessflow.SystemFlow
}

func NewSystemHandler(systemFlow businessflow.SystemFlow, log logging.Logger, timeout time.Duration) *SystemHandler {
	return &SystemHandler{baseHandler: newBaseHandler(log, timeout), systemFlow: systemFlow}
}

// Welcome describes the API
// @Summary Welcome
// @Tags System
// @Produce json
// @Success 200 {object} dto.WelcomeResponse
// @Router / [get]
func (h *SystemHandler) Welcome(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(h.systemFlow.Welcome())
}

// Health reports dependency status
// @Summary Health Check
// @Tags System
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.HealthResponse} "Service is healthy"
// @Failure 503 {object} dto.APIResponse{data=dto.HealthResponse} "A dependency is down"
// @Router /api/v1/health [get]
func (h *SystemHandler) Health(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/health")
	defer cancel()

	report := h.systemFlow.Health(ctx)
	if report.Status != "healthy" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.APIResponse{
			Success: false,
			Message: "Service is unhealthy",
			Data:    report,
		})
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Service is healthy", report)
}

// ProbeStore writes and reads back the probe counter
// @Summary Store Probe
// @Tags System
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.StoreProbeResponse} "Store connection successful"
// @Failure 503 {object} dto.APIResponse "Store unavailable"
// @Router /api/v1/test/store [get]
func (h *SystemHandler) ProbeStore(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/test/store")
	defer cancel()

	probe, err := h.systemFlow.ProbeStore(ctx)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Store connection successful", probe)
}
