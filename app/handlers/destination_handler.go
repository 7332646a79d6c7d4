package handlers

import (
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/marcoalfans/manud-be/app/dto"
	"github.com/marcoalfans/manud-be/app/middleware"
	businessflow "github.com/marcoalfans/manud-be/business_flow"
	"github.com/marcoalfans/manud-be/logging"
	"github.com/marcoalfans/manud-be/normalizer"
)

// DestinationHandlerInterface defines the contract for destination handlers
type DestinationHandlerInterface interface {
	Browse(c fiber.Ctx) error
	List(c fiber.Ctx) error
	Get(c fiber.Ctx) error
	Create(c fiber.Ctx) error
	Update(c fiber.Ctx) error
	Delete(c fiber.Ctx) error
	Export(c fiber.Ctx) error
	Favorites(c fiber.Ctx) error
	SaveFavorite(c fiber.Ctx) error
	DeleteFavorite(c fiber.Ctx) error
	DeleteAllFavorites(c fiber.Ctx) error
}

// DestinationHandler serves the destination dataset and per-user favorites
type DestinationHandler struct {
	baseHandler
	destinationFlow businessflow.DestinationFlow
	exportFlow      businessflow.ExportFlow
}

func NewDestinationHandler(destinationFlow businessflow.DestinationFlow, exportFlow businessflow.ExportFlow, log logging.Logger, timeout time.Duration) *DestinationHandler {
	return &DestinationHandler{
		baseHandler:     newBaseHandler(log, timeout),
		destinationFlow: destinationFlow,
		exportFlow:      exportFlow,
	}
}

// Browse filters the dataset
// @Summary Browse Destinations
// @Description Name prefix d, regency contains r, category contains c; at most 500 rows
// @Tags Destinations
// @Produce json
// @Param d query string false "Name prefix"
// @Param r query string false "Regency contains"
// @Param c query string false "Category contains"
// @Success 200 {object} dto.APIResponse{data=[]models.Destination} "Get Destinations Success"
// @Router /api/v1/destinations/dataset [get]
func (h *DestinationHandler) Browse(c fiber.Ctx) error {
	var q dto.BrowseQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_QUERY", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset")
	defer cancel()

	rows, err := h.destinationFlow.Browse(ctx, q)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get Destinations Success", rows)
}

// List pages through the dataset
// @Summary List Destinations
// @Tags Destinations
// @Produce json
// @Param limit query int false "Page size (1-100, default 20)"
// @Param cursor query string false "Opaque cursor from a previous page"
// @Param sortBy query string false "id, name, category or createdAt"
// @Param order query string false "asc or desc"
// @Param q query string false "Name prefix"
// @Param category query string false "Exact category"
// @Success 200 {object} dto.APIResponse "Get Destinations Success"
// @Router /api/v1/destinations/dataset/list [get]
func (h *DestinationHandler) List(c fiber.Ctx) error {
	var q dto.ListQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_QUERY", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset/list")
	defer cancel()

	page, err := h.destinationFlow.List(ctx, q)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get Destinations Success", page)
}

// Get returns one dataset destination
// @Summary Destination Detail
// @Tags Destinations
// @Produce json
// @Param id path int true "Destination id"
// @Success 200 {object} dto.APIResponse{data=models.Destination} "Get Detail Destination Success"
// @Failure 404 {object} dto.APIResponse "Destination not found"
// @Router /api/v1/destinations/dataset/{id} [get]
func (h *DestinationHandler) Get(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset/:id")
	defer cancel()

	d, err := h.destinationFlow.Get(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get Detail Destination Success", d)
}

// Create adds a dataset destination
// @Summary Create Destination
// @Tags Destinations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body normalizer.DestinationInput true "Destination fields"
// @Success 201 {object} dto.APIResponse{data=models.Destination} "Destination Created"
// @Router /api/v1/destinations/dataset [post]
func (h *DestinationHandler) Create(c fiber.Ctx) error {
	var in normalizer.DestinationInput
	if err := c.Bind().JSON(&in); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset")
	defer cancel()

	d, err := h.destinationFlow.Create(ctx, in)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Destination Created", d)
}

// Update applies the fields present in the body
// @Summary Update Destination
// @Tags Destinations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Destination id"
// @Param request body normalizer.DestinationInput true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Destination} "Destination Updated"
// @Failure 404 {object} dto.APIResponse "Destination not found"
// @Router /api/v1/destinations/dataset/{id} [put]
func (h *DestinationHandler) Update(c fiber.Ctx) error {
	var in normalizer.DestinationInput
	if err := c.Bind().JSON(&in); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset/:id")
	defer cancel()

	d, err := h.destinationFlow.Update(ctx, c.Params("id"), in)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Destination Updated", d)
}

// Delete removes a dataset destination
// @Summary Delete Destination
// @Tags Destinations
// @Produce json
// @Security BearerAuth
// @Param id path int true "Destination id"
// @Success 200 {object} dto.APIResponse{data=dto.DeletedResponse} "Destination Deleted"
// @Failure 404 {object} dto.APIResponse "Destination not found"
// @Router /api/v1/destinations/dataset/{id} [delete]
func (h *DestinationHandler) Delete(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset/:id")
	defer cancel()

	id, err := h.destinationFlow.Delete(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Destination Deleted", dto.DeletedResponse{ID: id})
}

// Export downloads the dataset as a workbook
// @Summary Export Destinations
// @Tags Destinations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} file "XLSX workbook"
// @Router /api/v1/destinations/dataset/export [get]
func (h *DestinationHandler) Export(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/dataset/export")
	defer cancel()

	filename, data, err := h.exportFlow.ExportDestinations(ctx)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return sendWorkbook(c, filename, data)
}

// Favorites lists the caller's saved destinations
// @Summary List Favorites
// @Tags Favorites
// @Produce json
// @Security BearerAuth
// @Param d query string false "Name prefix"
// @Success 200 {object} dto.APIResponse{data=[]models.Favorite} "Get Destinations Success"
// @Router /api/v1/destinations [get]
func (h *DestinationHandler) Favorites(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.unauthorized(c)
	}
	var q dto.FavoriteQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query", "INVALID_QUERY", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations")
	defer cancel()

	favs, err := h.destinationFlow.Favorites(ctx, userID, q.Name)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Get Destinations Success", favs)
}

// SaveFavorite copies a dataset destination into the caller's favorites
// @Summary Save Favorite
// @Tags Favorites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.FavoriteRequest true "Dataset destination id"
// @Success 201 {object} dto.APIResponse{data=models.Favorite} "Destination Saved Successfully"
// @Failure 404 {object} dto.APIResponse "Destination not found"
// @Router /api/v1/destinations [post]
func (h *DestinationHandler) SaveFavorite(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.unauthorized(c)
	}
	var req dto.FavoriteRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations")
	defer cancel()

	fav, err := h.destinationFlow.SaveFavorite(ctx, userID, req.ID)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Destination Saved Successfully", fav)
}

// DeleteFavorite removes one favorite
// @Summary Delete Favorite
// @Tags Favorites
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.FavoriteRequest true "Destination id"
// @Success 200 {object} dto.APIResponse{data=dto.DeletedResponse} "Delete Destination Success"
// @Failure 404 {object} dto.APIResponse "Favorite not found"
// @Router /api/v1/destinations [delete]
func (h *DestinationHandler) DeleteFavorite(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.unauthorized(c)
	}
	var req dto.FavoriteRequest
	if ok, err := h.bindJSON(c, &req); !ok {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations")
	defer cancel()

	if err := h.destinationFlow.DeleteFavorite(ctx, userID, req.ID); err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Delete Destination Success", dto.DeletedResponse{ID: req.ID})
}

// DeleteAllFavorites clears the caller's favorites
// @Summary Delete All Favorites
// @Tags Favorites
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.DeleteAllResponse} "Delete Destination Success"
// @Router /api/v1/destinations/all [delete]
func (h *DestinationHandler) DeleteAllFavorites(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return h.unauthorized(c)
	}

	ctx, cancel := h.createRequestContext(c, "/api/v1/destinations/all")
	defer cancel()

	n, err := h.destinationFlow.DeleteAllFavorites(ctx, userID)
	if err != nil {
		return h.handleError(ctx, c, err)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Delete Destination Success", dto.DeleteAllResponse{Deleted: n})
}
