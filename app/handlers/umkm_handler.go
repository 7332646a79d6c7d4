package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/dto"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/normalizer"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// UmkmHandlerInterface defines the contract for UMKM handlers
type UmkmHandlerInterface interface {
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Export(c fiber.Ctx) error
}

// UmkmHandler serves the UMKM catalog
type UmkmHandler struct {
	baseHandler
	umkmFlow   businessflow.UmkmFlow
	exportFlow businessflow.ExportFlow
}

func NewUmkmHandler(umkmFlow businessflow.UmkmFlow, exportFlow businessflow.ExportFlow, log logging.Logger, timeout time.Duration) *UmkmHandler {
	return &UmkmHandler{
		baseHandler: newBaseHandler(log, timeout),
		umkmFlow:    umkmFlow,
		exportFlow:  exportFlow,
	}
}

// List pages through UMKM records
// @Summary List UMKM
// @Description Cursor pagination; malformed parameters fall back to defaults
// @Tags UMKM
// @Produce json
// @Param limit query int false "Page size (1-100, default 20)"
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param sortBy query string false "id, name, category or createdAt"
// @Param order query string false "asc or desc"
// @Param q query string false "Name prefix"
// @Param category query string false "Exact category"
// @Success 200 {object} dto.APIResponse "Get UMKM Success"
// @Router /api/v1/umkm [get]
func (h *UmkmHandler) List(c fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_QUERY", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/umkm")
	defer cancel()

	page, err := h.umkmFlow.List(ctx, q)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get UMKM Success", page)
}

// Get returns one UMKM record
// @Summary UMKM Detail
// @Tags UMKM
// @Produce json
// @Param id path int true "UMKM id"
// @Success 200 {object} dto.APIResponse{data=models.Umkm} "Get UMKM Detail Success"
// @Failure 400 {object} dto.APIResponse "Invalid id"
// @Failure 404 {object} dto.APIResponse "UMKM not found"
// @Router /api/v1/umkm/{id} [get]
func (h *UmkmHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/umkm/:id")
	defer cancel()

	u, err := h.umkmFlow.Get(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get UMKM Detail Success", u)
}

// Create adds a UMKM record under a freshly allocated id
// @Summary Create UMKM
// @Tags UMKM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body normalizer.UmkmInput true "UMKM fields"
// @Success 201 {object} dto.APIResponse{data=models.Umkm} "UMKM created"
// @Failure 503 {object} dto.APIResponse "Id allocation failed"
// @Router /api/v1/umkm [post]
func (h *UmkmHandler) Create(c fiber.Ctx) error {
	var in normalizer.UmkmInput
	if err := c.Bind().JSON(&in); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/umkm")
	defer cancel()

	u, err := h.umkmFlow.Create(ctx, in)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "UMKM created", u)
}

// Update applies the fields present in the body
// @Summary Update UMKM
// @Tags UMKM
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "UMKM id"
// @Param request body normalizer.UmkmInput true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Umkm} "UMKM updated"
// @Failure 404 {object} dto.APIResponse "UMKM not found"
// @Router /api/v1/umkm/{id} [put]
func (h *UmkmHandler) Update(c fiber.Ctx) error {
	var in normalizer.UmkmInput
	if err := c.Bind().JSON(&in); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/umkm/:id")
	defer cancel()

	u, err := h.umkmFlow.Update(ctx, c.Params("id"), in)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "UMKM updated", u)
}

// Delete removes a UMKM record
// @Summary Delete UMKM
// @Tags UMKM
// @Produce json
// @Security BearerAuth
// @Param id path int true "UMKM id"
// @Success 200 {object} dto.APIResponse{data=dto.DeletedResponse} "UMKM deleted"
// @Failure 404 {object} dto.APIResponse "UMKM not found"
// @Router /api/v1/umkm/{id} [delete]
func (h *UmkmHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/umkm/:id")
	defer cancel()

	id, err := h.umkmFlow.Delete(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "UMKM deleted", dto.DeletedResponse{ID: id})
}

// Export downloads every UMKM record as a workbook
// @Summary Export UMKM
// @Tags UMKM
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "XLSX workbook"
// @Router /api/v1/umkm/export [get]
func (h *UmkmHandler) Export(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/umkm/export")
	defer cancel()

	filename, data, err := h.exportFlow.ExportUmkm(ctx)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return sendWorkbook(c, filename, data)
}

func sendWorkbook(c fiber.Ctx, filename string, data []byte) error {
	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Status(fiber.StatusOK).Send(data)
}
