package handlers

import (
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
)

// AdminUserHandlerInterface defines the contract for admin user management handlers
type AdminUserHandlerInterface interface {
	ListUsers(c fiber.Ctx) error
	BlockUsers(c fiber.Ctx) error
	UnblockUsers(c fiber.Ctx) error
	PromoteUsers(c fiber.Ctx) error
	DemoteUsers(c fiber.Ctx) error
	RemoveUsers(c fiber.Ctx) error
	ExportUsers(c fiber.Ctx) error
}

// AdminUserHandler handles administrator user-management HTTP requests
type AdminUserHandler struct {
	adminFlow businessflow.AdminUserFlow
	validator *validator.Validate
}

// NewAdminUserHandler creates a new admin user-management handler
func NewAdminUserHandler(adminFlow businessflow.AdminUserFlow) *AdminUserHandler {
	return &AdminUserHandler{
		adminFlow: adminFlow,
		validator: validator.New(),
	}
}

// ListUsers lists platform users with pagination and search
// @Summary List Users
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param search query string false "Name or email filter"
// @Param sort_by query string false "Sort column"
// @Param order query string false "asc or desc"
// @Success 200 {object} dto.APIResponse{data=dto.ListUsersResponse} "Users"
// @Router /api/v1/admin/users [get]
func (h *AdminUserHandler) ListUsers(c fiber.Ctx) error {
	req := dto.ListUsersRequest{
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 0),
		SortBy:   c.Query("sort_by"),
		Order:    c.Query("order"),
	}
	if search := c.Query("search"); search != "" {
		req.Search = &search
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.adminFlow.ListUsers(requestContext(c, "/api/v1/admin/users"), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list users", "LIST_USERS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Users fetched", result)
}

func (h *AdminUserHandler) bulkUpdate(c fiber.Ctx, endpoint string, op func(req *dto.BulkUserUpdateRequest) (*dto.BulkUserResult, error)) error {
	var req dto.BulkUserUpdateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := op(&req)
	if err != nil {
		log.Println("Bulk user update failed", endpoint, err)
		return businessErrorResponse(c, err, "Bulk user update failed", "BULK_USER_UPDATE_FAILED")
	}
	return successResponse(c, fiber.StatusOK, result.Message, result)
}

// BlockUsers blocks the selected users
// @Summary Block Users
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkUserUpdateRequest true "Targets with expected versions"
// @Success 200 {object} dto.APIResponse{data=dto.BulkUserResult} "Partitioned outcome"
// @Router /api/v1/admin/users/block [post]
func (h *AdminUserHandler) BlockUsers(c fiber.Ctx) error {
	endpoint := "/api/v1/admin/users/block"
	return h.bulkUpdate(c, endpoint, func(req *dto.BulkUserUpdateRequest) (*dto.BulkUserResult, error) {
		return h.adminFlow.BlockUsers(requestContext(c, endpoint), actor(c), req, clientMetadata(c))
	})
}

// UnblockUsers unblocks the selected users
// @Summary Unblock Users
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkUserUpdateRequest true "Targets with expected versions"
// @Success 200 {object} dto.APIResponse{data=dto.BulkUserResult} "Partitioned outcome"
// @Router /api/v1/admin/users/unblock [post]
func (h *AdminUserHandler) UnblockUsers(c fiber.Ctx) error {
	endpoint := "/api/v1/admin/users/unblock"
	return h.bulkUpdate(c, endpoint, func(req *dto.BulkUserUpdateRequest) (*dto.BulkUserResult, error) {
		return h.adminFlow.UnblockUsers(requestContext(c, endpoint), actor(c), req, clientMetadata(c))
	})
}

// PromoteUsers grants the ADMIN role to the selected users
// @Summary Promote Users
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkUserUpdateRequest true "Targets with expected versions"
// @Success 200 {object} dto.APIResponse{data=dto.BulkUserResult} "Partitioned outcome"
// @Router /api/v1/admin/users/promote [post]
func (h *AdminUserHandler) PromoteUsers(c fiber.Ctx) error {
	endpoint := "/api/v1/admin/users/promote"
	return h.bulkUpdate(c, endpoint, func(req *dto.BulkUserUpdateRequest) (*dto.BulkUserResult, error) {
		return h.adminFlow.PromoteUsers(requestContext(c, endpoint), actor(c), req, clientMetadata(c))
	})
}

// DemoteUsers removes the ADMIN role from the selected users
// @Summary Demote Users
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.BulkUserUpdateRequest true "Targets with expected versions"
// @Success 200 {object} dto.APIResponse{data=dto.BulkUserResult} "Partitioned outcome"
// @Router /api/v1/admin/users/demote [post]
func (h *AdminUserHandler) DemoteUsers(c fiber.Ctx) error {
	endpoint := "/api/v1/admin/users/demote"
	return h.bulkUpdate(c, endpoint, func(req *dto.BulkUserUpdateRequest) (*dto.BulkUserResult, error) {
		return h.adminFlow.DemoteUsers(requestContext(c, endpoint), actor(c), req, clientMetadata(c))
	})
}

// RemoveUsers permanently deletes the selected users
// @Summary Remove Users
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RemoveUsersRequest true "Target user ids"
// @Success 200 {object} dto.APIResponse{data=dto.RemoveUsersResult} "Removal outcome"
// @Router /api/v1/admin/users/remove [post]
func (h *AdminUserHandler) RemoveUsers(c fiber.Ctx) error {
	var req dto.RemoveUsersRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.adminFlow.RemoveUsers(requestContext(c, "/api/v1/admin/users/remove"), actor(c), &req, clientMetadata(c))
	if err != nil {
		log.Println("Remove users failed", err)
		return businessErrorResponse(c, err, "Failed to remove users", "REMOVE_USERS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Removal processed", result)
}

// ExportUsers streams the user list as an XLSX workbook
// @Summary Export Users
// @Tags Admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Success 200 {file} binary "XLSX workbook"
// @Router /api/v1/admin/users/export [get]
func (h *AdminUserHandler) ExportUsers(c fiber.Ctx) error {
	filename, payload, err := h.adminFlow.ExportUsersXLSX(requestContext(c, "/api/v1/admin/users/export"))
	if err != nil {
		log.Println("Export users failed", err)
		return businessErrorResponse(c, err, "Failed to export users", "EXPORT_USERS_FAILED")
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	return c.Send(payload)
}
