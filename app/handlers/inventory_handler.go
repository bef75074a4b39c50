package handlers

import (
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/middleware"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
)

// InventoryHandlerInterface defines the contract for inventory handlers
type InventoryHandlerInterface interface {
	CreateInventory(c fiber.Ctx) error
	GetInventory(c fiber.Ctx) error
	ListInventories(c fiber.Ctx) error
	UpdateInventory(c fiber.Ctx) error
	DeleteInventories(c fiber.Ctx) error
	GetIdFormat(c fiber.Ctx) error
	ReplaceIdFormat(c fiber.Ctx) error
	GetFieldSet(c fiber.Ctx) error
	ReplaceFieldSet(c fiber.Ctx) error
	ListCategories(c fiber.Ctx) error
	ListTags(c fiber.Ctx) error
	ListAccessGrants(c fiber.Ctx) error
	GrantAccess(c fiber.Ctx) error
	RevokeAccess(c fiber.Ctx) error
}

// InventoryHandler handles inventory-related HTTP requests
type InventoryHandler struct {
	inventoryFlow businessflow.InventoryFlow
	accessFlow    businessflow.InventoryAccessFlow
	validator     *validator.Validate
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(inventoryFlow businessflow.InventoryFlow, accessFlow businessflow.InventoryAccessFlow) *InventoryHandler {
	return &InventoryHandler{
		inventoryFlow: inventoryFlow,
		accessFlow:    accessFlow,
		validator:     validator.New(),
	}
}

// actor returns the authenticated user or nil for anonymous requests
func actor(c fiber.Ctx) *models.User {
	user, ok := middleware.GetCurrentUserFromContext(c)
	if !ok {
		return nil
	}
	return user
}

func queryInt(c fiber.Ctx, key string, def int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}

// CreateInventory handles inventory creation
// @Summary Create Inventory
// @Description Create a new inventory owned by the caller
// @Tags Inventories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateInventoryRequest true "Inventory data"
// @Success 201 {object} dto.APIResponse{data=dto.InventoryResponse} "Inventory created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/inventories [post]
func (h *InventoryHandler) CreateInventory(c fiber.Ctx) error {
	var req dto.CreateInventoryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.inventoryFlow.CreateInventory(requestContext(c, "/api/v1/inventories"), actor(c), &req, clientMetadata(c))
	if err != nil {
		log.Println("Create inventory failed", err)
		return businessErrorResponse(c, err, "Failed to create inventory", "CREATE_INVENTORY_FAILED")
	}

	return successResponse(c, fiber.StatusCreated, "Inventory created", result)
}

// GetInventory returns one inventory with the caller's effective role
// @Summary Get Inventory
// @Tags Inventories
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Success 200 {object} dto.APIResponse{data=dto.InventoryResponse} "Inventory"
// @Failure 404 {object} dto.APIResponse "Inventory not found"
// @Router /api/v1/inventories/{uuid} [get]
func (h *InventoryHandler) GetInventory(c fiber.Ctx) error {
	result, err := h.inventoryFlow.GetInventory(requestContext(c, "/api/v1/inventories/:uuid"), actor(c), c.Params("uuid"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to fetch inventory", "INVENTORY_FETCH_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Inventory fetched", result)
}

// ListInventories lists inventories visible to the caller
// @Summary List Inventories
// @Tags Inventories
// @Produce json
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Name filter"
// @Success 200 {object} dto.APIResponse{data=dto.ListInventoriesResponse} "Inventories"
// @Router /api/v1/inventories [get]
func (h *InventoryHandler) ListInventories(c fiber.Ctx) error {
	req := dto.ListInventoriesRequest{
		Page:       queryInt(c, "page", 1),
		PageSize:   queryInt(c, "page_size", 0),
		OwnedOnly:  c.Query("owned_only") == "true",
		PublicOnly: c.Query("public_only") == "true",
	}
	if search := c.Query("search"); search != "" {
		req.Search = &search
	}
	if categoryID := queryInt(c, "category_id", 0); categoryID > 0 {
		id := uint(categoryID)
		req.CategoryID = &id
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.inventoryFlow.ListInventories(requestContext(c, "/api/v1/inventories"), actor(c), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list inventories", "LIST_INVENTORIES_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Inventories fetched", result)
}

// UpdateInventory applies a version-guarded inventory update
// @Summary Update Inventory
// @Tags Inventories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.UpdateInventoryRequest true "Changes with expected version"
// @Success 200 {object} dto.APIResponse{data=dto.InventoryResponse} "Inventory updated"
// @Failure 409 {object} dto.APIResponse "Stale version"
// @Router /api/v1/inventories/{uuid} [put]
func (h *InventoryHandler) UpdateInventory(c fiber.Ctx) error {
	var req dto.UpdateInventoryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.inventoryFlow.UpdateInventory(requestContext(c, "/api/v1/inventories/:uuid"), actor(c), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsVersionConflict(err) {
			middleware.RecordVersionConflict("inventory")
		}
		return businessErrorResponse(c, err, "Failed to update inventory", "UPDATE_INVENTORY_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Inventory updated", result)
}

// DeleteInventories performs a bulk version-guarded deletion
// @Summary Delete Inventories
// @Tags Inventories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.DeleteInventoriesRequest true "Targets with expected versions"
// @Success 200 {object} dto.APIResponse{data=dto.BulkInventoryResult} "Partitioned outcome"
// @Router /api/v1/inventories/delete [post]
func (h *InventoryHandler) DeleteInventories(c fiber.Ctx) error {
	var req dto.DeleteInventoriesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.inventoryFlow.DeleteInventories(requestContext(c, "/api/v1/inventories/delete"), actor(c), &req, clientMetadata(c))
	if err != nil {
		log.Println("Delete inventories failed", err)
		return businessErrorResponse(c, err, "Failed to delete inventories", "DELETE_INVENTORIES_FAILED")
	}
	if len(result.SkippedIDs) > 0 {
		middleware.RecordVersionConflict("inventory")
	}
	return successResponse(c, fiber.StatusOK, "Deletion processed", result)
}

// GetIdFormat returns the inventory's custom id format
// @Summary Get Id Format
// @Tags Inventories
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Success 200 {object} dto.APIResponse{data=dto.IdFormatResponse} "Id format"
// @Router /api/v1/inventories/{uuid}/id-format [get]
func (h *InventoryHandler) GetIdFormat(c fiber.Ctx) error {
	result, err := h.inventoryFlow.GetIdFormat(requestContext(c, "/api/v1/inventories/:uuid/id-format"), actor(c), c.Params("uuid"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to fetch id format", "GET_ID_FORMAT_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Id format fetched", result)
}

// ReplaceIdFormat replaces the inventory's custom id format
// @Summary Replace Id Format
// @Tags Inventories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.ReplaceIdFormatRequest true "New schema with expected version"
// @Success 200 {object} dto.APIResponse{data=dto.IdFormatResponse} "Id format replaced"
// @Failure 409 {object} dto.APIResponse "Stale version"
// @Router /api/v1/inventories/{uuid}/id-format [put]
func (h *InventoryHandler) ReplaceIdFormat(c fiber.Ctx) error {
	var req dto.ReplaceIdFormatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.inventoryFlow.ReplaceIdFormat(requestContext(c, "/api/v1/inventories/:uuid/id-format"), actor(c), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsVersionConflict(err) {
			middleware.RecordVersionConflict("id_format")
		}
		return businessErrorResponse(c, err, "Failed to replace id format", "REPLACE_ID_FORMAT_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Id format replaced", result)
}

// GetFieldSet returns the inventory's field configuration
// @Summary Get Field Set
// @Tags Inventories
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Success 200 {object} dto.APIResponse{data=dto.FieldSetResponse} "Field set"
// @Router /api/v1/inventories/{uuid}/fields [get]
func (h *InventoryHandler) GetFieldSet(c fiber.Ctx) error {
	result, err := h.inventoryFlow.GetFieldSet(requestContext(c, "/api/v1/inventories/:uuid/fields"), actor(c), c.Params("uuid"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to fetch field set", "GET_FIELD_SET_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Field set fetched", result)
}

// ReplaceFieldSet replaces the inventory's field configuration
// @Summary Replace Field Set
// @Tags Inventories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.ReplaceFieldSetRequest true "New definition with expected version"
// @Success 200 {object} dto.APIResponse{data=dto.FieldSetResponse} "Field set replaced"
// @Failure 409 {object} dto.APIResponse "Stale version"
// @Router /api/v1/inventories/{uuid}/fields [put]
func (h *InventoryHandler) ReplaceFieldSet(c fiber.Ctx) error {
	var req dto.ReplaceFieldSetRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.inventoryFlow.ReplaceFieldSet(requestContext(c, "/api/v1/inventories/:uuid/fields"), actor(c), &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsVersionConflict(err) {
			middleware.RecordVersionConflict("field_set")
		}
		return businessErrorResponse(c, err, "Failed to replace field set", "REPLACE_FIELD_SET_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Field set replaced", result)
}

// ListCategories lists all inventory categories
// @Summary List Categories
// @Tags Inventories
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.ListCategoriesResponse} "Categories"
// @Router /api/v1/categories [get]
func (h *InventoryHandler) ListCategories(c fiber.Ctx) error {
	result, err := h.inventoryFlow.ListCategories(requestContext(c, "/api/v1/categories"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list categories", "LIST_CATEGORIES_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Categories fetched", result)
}

// ListTags lists tag names for autocomplete
// @Summary List Tags
// @Tags Inventories
// @Produce json
// @Param prefix query string false "Name prefix"
// @Param limit query int false "Max results"
// @Success 200 {object} dto.APIResponse{data=dto.ListTagsResponse} "Tags"
// @Router /api/v1/tags [get]
func (h *InventoryHandler) ListTags(c fiber.Ctx) error {
	req := &dto.ListTagsRequest{
		Prefix: c.Query("prefix"),
		Limit:  queryInt(c, "limit", 0),
	}
	result, err := h.inventoryFlow.ListTags(requestContext(c, "/api/v1/tags"), req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list tags", "LIST_TAGS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Tags fetched", result)
}

// ListAccessGrants lists the explicit grants of one inventory
// @Summary List Access Grants
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ListAccessGrantsResponse} "Grants"
// @Router /api/v1/inventories/{uuid}/access [get]
func (h *InventoryHandler) ListAccessGrants(c fiber.Ctx) error {
	result, err := h.accessFlow.ListGrants(requestContext(c, "/api/v1/inventories/:uuid/access"), actor(c), c.Params("uuid"))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list access grants", "LIST_ACCESS_GRANTS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Access grants fetched", result)
}

// GrantAccess assigns an explicit role to a user on an inventory
// @Summary Grant Access
// @Tags Access
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.GrantAccessRequest true "Target user and role"
// @Success 200 {object} dto.APIResponse{data=dto.AccessGrantResponse} "Access granted"
// @Failure 403 {object} dto.APIResponse "Owner role cannot be granted"
// @Router /api/v1/inventories/{uuid}/access [post]
func (h *InventoryHandler) GrantAccess(c fiber.Ctx) error {
	var req dto.GrantAccessRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.accessFlow.GrantAccess(requestContext(c, "/api/v1/inventories/:uuid/access"), actor(c), &req, clientMetadata(c))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to grant access", "GRANT_ACCESS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Access granted", result)
}

// RevokeAccess removes an explicit grant
// @Summary Revoke Access
// @Tags Access
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param userID path int true "Target user id"
// @Success 200 {object} dto.APIResponse "Access revoked"
// @Failure 404 {object} dto.APIResponse "Grant not found"
// @Router /api/v1/inventories/{uuid}/access/{userID} [delete]
func (h *InventoryHandler) RevokeAccess(c fiber.Ctx) error {
	targetID, err := strconv.ParseUint(c.Params("userID"), 10, 64)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid user id", "INVALID_REQUEST", nil)
	}
	req := dto.RevokeAccessRequest{
		InventoryUUID: c.Params("uuid"),
		UserID:        uint(targetID),
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	if err := h.accessFlow.RevokeAccess(requestContext(c, "/api/v1/inventories/:uuid/access/:userID"), actor(c), &req, clientMetadata(c)); err != nil {
		return businessErrorResponse(c, err, "Failed to revoke access", "REVOKE_ACCESS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Access revoked", nil)
}
