package handlers

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
)

// DiscussionHandlerInterface defines the contract for discussion handlers
type DiscussionHandlerInterface interface {
	CreatePost(c fiber.Ctx) error
	ListPosts(c fiber.Ctx) error
	DeletePost(c fiber.Ctx) error
}

// DiscussionHandler handles discussion board HTTP requests
type DiscussionHandler struct {
	discussionFlow businessflow.DiscussionFlow
	validator      *validator.Validate
}

// NewDiscussionHandler creates a new discussion handler
func NewDiscussionHandler(discussionFlow businessflow.DiscussionFlow) *DiscussionHandler {
	return &DiscussionHandler{
		discussionFlow: discussionFlow,
		validator:      validator.New(),
	}
}

func postIDParam(c fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("postID"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// CreatePost adds a message to the inventory's discussion board
// @Summary Post Discussion Message
// @Tags Discussions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param request body dto.CreateDiscussionPostRequest true "Message"
// @Success 201 {object} dto.APIResponse{data=dto.DiscussionPostResponse} "Message posted"
// @Failure 404 {object} dto.APIResponse "Inventory not found"
// @Router /api/v1/inventories/{uuid}/discussion [post]
func (h *DiscussionHandler) CreatePost(c fiber.Ctx) error {
	var req dto.CreateDiscussionPostRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	req.InventoryUUID = c.Params("uuid")
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.discussionFlow.CreatePost(requestContext(c, "/api/v1/inventories/:uuid/discussion"), actor(c), &req, clientMetadata(c))
	if err != nil {
		return businessErrorResponse(c, err, "Failed to post message", "CREATE_DISCUSSION_POST_FAILED")
	}
	return successResponse(c, fiber.StatusCreated, "Message posted", result)
}

// ListPosts returns one page of the inventory's discussion board
// @Summary List Discussion Messages
// @Tags Discussions
// @Produce json
// @Param uuid path string true "Inventory UUID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param order query string false "Sort order (asc or desc)"
// @Success 200 {object} dto.APIResponse{data=dto.ListDiscussionPostsResponse} "Messages"
// @Failure 404 {object} dto.APIResponse "Inventory not found"
// @Router /api/v1/inventories/{uuid}/discussion [get]
func (h *DiscussionHandler) ListPosts(c fiber.Ctx) error {
	req := dto.ListDiscussionPostsRequest{
		InventoryUUID: c.Params("uuid"),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 0),
		Order:         c.Query("order"),
	}
	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.discussionFlow.ListPosts(requestContext(c, "/api/v1/inventories/:uuid/discussion"), &req)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to list messages", "LIST_DISCUSSION_POSTS_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Messages fetched", result)
}

// DeletePost removes a message; only the author or an admin may do this
// @Summary Delete Discussion Message
// @Tags Discussions
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Inventory UUID"
// @Param postID path int true "Post id"
// @Success 200 {object} dto.APIResponse "Message deleted"
// @Failure 403 {object} dto.APIResponse "Not the author and not an admin"
// @Failure 404 {object} dto.APIResponse "Post not found"
// @Router /api/v1/inventories/{uuid}/discussion/{postID} [delete]
func (h *DiscussionHandler) DeletePost(c fiber.Ctx) error {
	postID, ok := postIDParam(c)
	if !ok {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid post id", "INVALID_REQUEST", nil)
	}

	if err := h.discussionFlow.DeletePost(requestContext(c, "/api/v1/inventories/:uuid/discussion/:postID"), actor(c), c.Params("uuid"), postID, clientMetadata(c)); err != nil {
		return businessErrorResponse(c, err, "Failed to delete message", "DELETE_DISCUSSION_POST_FAILED")
	}
	return successResponse(c, fiber.StatusOK, "Message deleted", nil)
}
