package businessflow

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
)

// DiscussionFlow handles the per-inventory discussion board. The board is
// readable by anyone who can see the inventory; writing requires an account,
// and a post is removable only by its author or a platform admin.
type DiscussionFlow interface {
	CreatePost(ctx context.Context, actor *models.User, req *dto.CreateDiscussionPostRequest, metadata *ClientMetadata) (*dto.DiscussionPostResponse, error)
	ListPosts(ctx context.Context, req *dto.ListDiscussionPostsRequest) (*dto.ListDiscussionPostsResponse, error)
	DeletePost(ctx context.Context, actor *models.User, inventoryUUID string, postID uint, metadata *ClientMetadata) error
}

type DiscussionFlowImpl struct {
	discussionRepo repository.DiscussionRepository
	inventoryRepo  repository.InventoryRepository
	auditRepo      repository.AuditLogRepository
	db             *gorm.DB
}

func NewDiscussionFlow(
	discussionRepo repository.DiscussionRepository,
	inventoryRepo repository.InventoryRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) DiscussionFlow {
	return &DiscussionFlowImpl{
		discussionRepo: discussionRepo,
		inventoryRepo:  inventoryRepo,
		auditRepo:      auditRepo,
		db:             db,
	}
}

func (f *DiscussionFlowImpl) CreatePost(ctx context.Context, actor *models.User, req *dto.CreateDiscussionPostRequest, metadata *ClientMetadata) (*dto.DiscussionPostResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Message is required", nil)
	}

	post := &models.DiscussionPost{
		InventoryID: inventory.ID,
		AuthorID:    actor.ID,
		TextMD:      text,
	}
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.discussionRepo.Save(txCtx, post); err != nil {
			return err
		}
		f.writeAuditLog(txCtx, actor, models.AuditActionDiscussionPosted, metadata, map[string]any{
			"inventory_id": inventory.ID,
			"post_id":      post.ID,
		})
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CREATE_DISCUSSION_POST_FAILED", "Failed to post message", err)
	}

	post.Author = actor
	out := ToDiscussionPostDTO(*post)
	return &dto.DiscussionPostResponse{Post: out}, nil
}

// ListPosts returns one page of the board, newest first unless asked otherwise
func (f *DiscussionFlowImpl) ListPosts(ctx context.Context, req *dto.ListDiscussionPostsRequest) (*dto.ListDiscussionPostsResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = utils.DefaultPageSize
	}
	if pageSize > utils.MaxPageSize {
		pageSize = utils.MaxPageSize
	}
	orderBy := "created_at DESC"
	if req.Order == "asc" {
		orderBy = "created_at ASC"
	}
	offset := (page - 1) * pageSize

	posts, err := f.discussionRepo.ListByInventory(ctx, inventory.ID, orderBy, pageSize, offset)
	if err != nil {
		return nil, NewBusinessError("LIST_DISCUSSION_POSTS_FAILED", "Failed to list discussion posts", err)
	}
	total, err := f.discussionRepo.CountByInventory(ctx, inventory.ID)
	if err != nil {
		return nil, NewBusinessError("LIST_DISCUSSION_POSTS_FAILED", "Failed to count discussion posts", err)
	}

	resp := &dto.ListDiscussionPostsResponse{
		Posts:    make([]dto.DiscussionPostDTO, 0, len(posts)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  int64(offset+len(posts)) < total,
	}
	for _, post := range posts {
		resp.Posts = append(resp.Posts, ToDiscussionPostDTO(*post))
	}
	return resp, nil
}

// DeletePost removes one message. Only the author and platform admins may
// delete; a missing post is reported as not found, never as denied.
func (f *DiscussionFlowImpl) DeletePost(ctx context.Context, actor *models.User, inventoryUUID string, postID uint, metadata *ClientMetadata) error {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return err
	}

	post, err := f.discussionRepo.ByID(ctx, postID)
	if err != nil {
		return NewBusinessError("DISCUSSION_POST_FETCH_FAILED", "Failed to fetch discussion post", err)
	}
	if post == nil || post.InventoryID != inventory.ID {
		return NewBusinessError("DISCUSSION_POST_NOT_FOUND", "Discussion post not found", ErrDiscussionPostNotFound)
	}
	if post.AuthorID != actor.ID && !actor.IsAdmin() {
		return NewBusinessError("DISCUSSION_DELETE_DENIED", "Only the author or an admin can delete this post", ErrOperationNotAllowed)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		affected, err := f.discussionRepo.Delete(txCtx, post.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrDiscussionPostNotFound
		}
		f.writeAuditLog(txCtx, actor, models.AuditActionDiscussionDeleted, metadata, map[string]any{
			"inventory_id": inventory.ID,
			"post_id":      post.ID,
		})
		return nil
	})
	if err != nil {
		if IsDiscussionPostNotFound(err) {
			return NewBusinessError("DISCUSSION_POST_NOT_FOUND", "Discussion post not found", err)
		}
		return NewBusinessError("DELETE_DISCUSSION_POST_FAILED", "Failed to delete discussion post", err)
	}
	return nil
}

func (f *DiscussionFlowImpl) requireInventory(ctx context.Context, inventoryUUID string) (*models.Inventory, error) {
	inventory, err := f.inventoryRepo.ByUUID(ctx, inventoryUUID)
	if err != nil {
		return nil, NewBusinessError("INVENTORY_FETCH_FAILED", "Failed to fetch inventory", err)
	}
	if inventory == nil {
		return nil, NewBusinessError("INVENTORY_NOT_FOUND", "Inventory not found", ErrInventoryNotFound)
	}
	return inventory, nil
}

// writeAuditLog records the action; audit failures never fail the operation
func (f *DiscussionFlowImpl) writeAuditLog(ctx context.Context, actor *models.User, action string, metadata *ClientMetadata, details map[string]any) {
	entry := &models.AuditLog{
		Action:  action,
		Success: utils.ToPtr(true),
	}
	if actor != nil {
		entry.UserID = &actor.ID
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Metadata = raw
		}
	}
	_ = f.auditRepo.Save(ctx, entry)
}
