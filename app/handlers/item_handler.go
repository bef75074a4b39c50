package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/middleware"
	businessflow "github.com/inventara/inventara/business_flow"
)

// ItemHandlerInterface defines the contract for item handlers
type ItemHandlerInterface interface {
	CreateItem(c fiber.Ctx) error
	GetItem(c fiber.Ctx) error
	ListItems(c fiber.Ctx) error
	UpdateItem(c fiber.Ctx) error
	DeleteItems(c fiber.Ctx) error
	PreviewCustomId(c fiber.Ctx) error
	LikeItem(c fiber.Ctx) error
	UnlikeItem(c fiber.Ctx) error
	ExportItems(c fiber.Ctx) error
}

// ItemHandler handles item-related HTTP requests
type ItemHandler struct {
	itemFlow  businessflow.ItemFlow
	validator *validator.Validate
}

// NewItemHandler creates a new item handler
func NewItemHandler(itemFlow businessflow.ItemFlow) *ItemHandler {
	return &ItemHandler{
		itemFlow:  itemFlow,
		validator: validator.New(),
	}
}

func itemIDParam(c fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("itemID"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// CreateItem creates an item with a server-allocated custom id
// @Summary Create Item
// @Description Create an item; the custom id is allocated from the inventory's id format
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.CreateItemRequest true "Item fields"
// @Success 201 {object} dto.APIResponse{data=dto.ItemResponse} "Item created"
// @Failure 400 {object} dto.APIResponse "Id format misconfigured or generated id too long"
// @Failure 403 {object} dto.APIResponse "Write access denied"
// @Failure 500 {object} dto.APIResponse "Allocation retries exhausted"
// @Router /api/v1/inventories/{uuid}/items [post]
func (h *ItemHandler) CreateItem(c fiber.Ctx) error {
	var req dto.CreateItemRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.itemFlow.CreateItem(requestContext(c, "/api/v1/inventories/:uuid/items"), actor(c), &req, clientMetadata(c))
	if err != nil {
		if !businessflow.IsIdFormatInvalid(err) && !businessflow.IsGeneratedIdTooLong(err) {
			log.Println("Create item failed", err)
		}
		return businessErrorResponse(c, err, "Failed to create item", "CREATE_ITEM_FAILED")
	}
	return successResponse(c, fiber.StatusCreated, "Item created", result)
}

// GetItem returns one item
// @Summary Get Item
// @Tags Items
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Param itemID path int true "Item id"
// @Success 200 {object} dto.APIResponse{data=dto.ItemResponse} "Item"
// @Failure 404 {object} dto.APIResponse "Item not found"
// @Router /api/v1/inventories/{uuid}/items/{itemID} [get]
func (h *ItemHandler) GetItem(c fiber.Ctx) error {
	itemID, ok := itemIDParam(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid item id", "INVALID_REQUEST", nil)
	}

	result, err := h.itemFlow.GetItem(requestContext(c, "/api/v1/inventories/:uuid/items/:itemID"), actor(c), c.Params("uuid"), itemID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to fetch item", "ITEM_FETCH_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Item fetched", result)
}

// ListItems lists the items of one inventory
// @Summary List Items
// @Tags Items
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Custom id filter"
// @Success 200 {object} dto.APIResponse{data=dto.ListItemsResponse} "Items"
// @Router /api/v1/inventories/{uuid}/items [get]
func (h *ItemHandler) ListItems(c fiber.Ctx) error {
	req := dto.ListItemsRequest{
		InventoryUUID: c.Params("uuid"),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 0),
	}
	if search := c.Query("search"); search != "" {
		req.Search = &search
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.itemFlow.ListItems(requestContext(c, "/api/v1/inventories/:uuid/items"), actor(c), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list items", "LIST_ITEMS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Items fetched", result)
}

// UpdateItem applies a version-guarded item update
// @Summary Update Item
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param itemID path int true "Item id"
// @Param request body dto.UpdateItemRequest true "Changes with expected version"
// @Success 200 {object} dto.APIResponse{data=dto.ItemResponse} "Item updated"
// @Failure 409 {object} dto.APIResponse "Stale version"
// @Router /api/v1/inventories/{uuid}/items/{itemID} [put]
func (h *ItemHandler) UpdateItem(c fiber.Ctx) error {
	itemID, ok := itemIDParam(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid item id", "INVALID_REQUEST", nil)
	}

	var req dto.UpdateItemRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	req.ItemID = itemID
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.itemFlow.UpdateItem(requestContext(c, "/api/v1/inventories/:uuid/items/:itemID"), actor(c), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsVersionConflict(err) {
			middleware.RecordVersionConflict("item")
		}
		return businessErrorResponse(c, err, "Failed to update item", "UPDATE_ITEM_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Item updated", result)
}

// DeleteItems performs a bulk version-guarded item deletion
// @Summary Delete Items
// @Tags Items
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.DeleteItemsRequest true "Targets with expected versions"
// @Success 200 {object} dto.APIResponse{data=dto.BulkItemResult} "Partitioned outcome"
// @Router /api/v1/inventories/{uuid}/items/delete [post]
func (h *ItemHandler) DeleteItems(c fiber.Ctx) error {
	var req dto.DeleteItemsRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.itemFlow.DeleteItems(requestContext(c, "/api/v1/inventories/:uuid/items/delete"), actor(c), &req, clientMetadata(c))
	if err != nil {
		log.Println("Delete items failed", err)
		return businessErrorResponse(c, err, "Failed to delete items", "DELETE_ITEMS_FAILED")
	}
	if len(result.SkippedIDs) > 0 {
		middleware.RecordVersionConflict("item")
	}
	return successResponse(c, fiber.StatusOK, "Deletion processed", result)
}

// PreviewCustomId forecasts the next custom id without consuming it
// @Summary Preview Custom Id
// @Description Forecast the next custom id; random and guid parts are placeholders
// @Tags Items
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Success 200 {object} dto.APIResponse{data=dto.PreviewCustomIdResponse} "Preview"
// @Failure 400 {object} dto.APIResponse "Id format misconfigured"
// @Router /api/v1/inventories/{uuid}/items/custom-id/preview [get]
func (h *ItemHandler) PreviewCustomId(c fiber.Ctx) error {
	result, err := h.itemFlow.PreviewCustomId(requestContext(c, "/api/v1/inventories/:uuid/items/custom-id/preview"), actor(c), c.Params("uuid"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to preview custom id", "PREVIEW_CUSTOM_ID_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Custom id previewed", result)
}

// ExportItems streams the inventory's items as an XLSX workbook
// @Summary Export Items
// @Tags Items
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param uuid path string true "Inventory UUID"
// @Success 200 {file} binary "XLSX workbook"
// @Router /api/v1/inventories/{uuid}/items/export [get]
func (h *ItemHandler) ExportItems(c fiber.Ctx) error {
	filename, payload, err := h.itemFlow.ExportItemsXLSX(requestContext(c, "/api/v1/inventories/:uuid/items/export"), actor(c), c.Params("uuid"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to export items", "EXPORT_ITEMS_FAILED")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}

// LikeItem records the caller's like on an item
// @Summary Like Item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param itemID path int true "Item id"
// @Success 200 {object} dto.APIResponse "Item liked"
// @Router /api/v1/inventories/{uuid}/items/{itemID}/like [post]
func (h *ItemHandler) LikeItem(c fiber.Ctx) error {
	itemID, ok := itemIDParam(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid item id", "INVALID_REQUEST", nil)
	}

	if err := h.itemFlow.LikeItem(requestContext(c, "/api/v1/inventories/:uuid/items/:itemID/like"), actor(c), c.Params("uuid"), itemID); err != nil {
		return businessErrorResponse(c, err, "Failed to like item", "LIKE_ITEM_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Item liked", nil)
}

// UnlikeItem removes the caller's like from an item
// @Summary Unlike Item
// @Tags Items
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param itemID path int true "Item id"
// @Success 200 {object} dto.APIResponse "Item unliked"
// @Router /api/v1/inventories/{uuid}/items/{itemID}/like [delete]
func (h *ItemHandler) UnlikeItem(c fiber.Ctx) error {
	itemID, ok := itemIDParam(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid item id", "INVALID_REQUEST", nil)
	}

	if err := h.itemFlow.UnlikeItem(requestContext(c, "/api/v1/inventories/:uuid/items/:itemID/like"), actor(c), c.Params("uuid"), itemID); err != nil {
		return businessErrorResponse(c, err, "Failed to unlike item", "UNLIKE_ITEM_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Item unliked", nil)
}
