package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
)

// InventoryFlow handles the inventory business logic
type InventoryFlow interface {
	CreateInventory(ctx context.Context, actor *models.User, req *dto.CreateInventoryRequest, metadata *ClientMetadata) (*dto.InventoryResponse, error)
	GetInventory(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.InventoryResponse, error)
	ListInventories(ctx context.Context, actor *models.User, req *dto.ListInventoriesRequest) (*dto.ListInventoriesResponse, error)
	UpdateInventory(ctx context.Context, actor *models.User, req *dto.UpdateInventoryRequest, metadata *ClientMetadata) (*dto.InventoryResponse, error)
	DeleteInventories(ctx context.Context, actor *models.User, req *dto.DeleteInventoriesRequest, metadata *ClientMetadata) (*dto.BulkInventoryResult, error)
	GetIdFormat(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.IdFormatResponse, error)
	ReplaceIdFormat(ctx context.Context, actor *models.User, req *dto.ReplaceIdFormatRequest, metadata *ClientMetadata) (*dto.IdFormatResponse, error)
	GetFieldSet(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.FieldSetResponse, error)
	ReplaceFieldSet(ctx context.Context, actor *models.User, req *dto.ReplaceFieldSetRequest, metadata *ClientMetadata) (*dto.FieldSetResponse, error)
	ListCategories(ctx context.Context) (*dto.ListCategoriesResponse, error)
	ListTags(ctx context.Context, req *dto.ListTagsRequest) (*dto.ListTagsResponse, error)
}

type InventoryFlowImpl struct {
	inventoryRepo repository.InventoryRepository
	idFormatRepo  repository.IdFormatRepository
	fieldSetRepo  repository.InventoryFieldSetRepository
	categoryRepo  repository.CategoryRepository
	tagRepo       repository.TagRepository
	auditRepo     repository.AuditLogRepository
	resolver      AccessRoleResolver
	db            *gorm.DB
}

func NewInventoryFlow(
	inventoryRepo repository.InventoryRepository,
	idFormatRepo repository.IdFormatRepository,
	fieldSetRepo repository.InventoryFieldSetRepository,
	categoryRepo repository.CategoryRepository,
	tagRepo repository.TagRepository,
	auditRepo repository.AuditLogRepository,
	resolver AccessRoleResolver,
	db *gorm.DB,
) InventoryFlow {
	return &InventoryFlowImpl{
		inventoryRepo: inventoryRepo,
		idFormatRepo:  idFormatRepo,
		fieldSetRepo:  fieldSetRepo,
		categoryRepo:  categoryRepo,
		tagRepo:       tagRepo,
		auditRepo:     auditRepo,
		resolver:      resolver,
		db:            db,
	}
}

// CreateInventory persists the inventory together with its implicit default
// custom id format and an empty field set, all at version 1.
func (f *InventoryFlowImpl) CreateInventory(ctx context.Context, actor *models.User, req *dto.CreateInventoryRequest, metadata *ClientMetadata) (*dto.InventoryResponse, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewBusinessError("VALIDATION_ERROR", "Inventory name is required", ErrInventoryNameRequired)
	}

	if req.CategoryID != nil {
		category, err := f.categoryRepo.ByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, NewBusinessError("CREATE_INVENTORY_FAILED", "Failed to fetch category", err)
		}
		if category == nil {
			return nil, NewBusinessError("CATEGORY_NOT_FOUND", "Category not found", ErrCategoryNotFound)
		}
	}

	inventory := &models.Inventory{
		Name:        name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		OwnerID:     actor.ID,
		CategoryID:  req.CategoryID,
		IsPublic:    utils.ToPtr(req.IsPublic),
		Version:     1,
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.inventoryRepo.Save(txCtx, inventory); err != nil {
			return err
		}
		format := &models.InventoryIdFormat{
			InventoryID: inventory.ID,
			Schema:      models.DefaultIdFormatSchema(),
			Version:     1,
		}
		if err := f.idFormatRepo.Save(txCtx, format); err != nil {
			return err
		}
		fieldSet := &models.InventoryFieldSet{
			InventoryID: inventory.ID,
			Definition:  models.FieldSetDefinition{},
			Version:     1,
		}
		if err := f.fieldSetRepo.Save(txCtx, fieldSet); err != nil {
			return err
		}
		if len(req.Tags) > 0 {
			tags, err := f.resolveTags(txCtx, req.Tags)
			if err != nil {
				return err
			}
			if err := f.inventoryRepo.ReplaceTags(txCtx, inventory.ID, tags); err != nil {
				return err
			}
			inventory.Tags = make([]models.Tag, 0, len(tags))
			for _, tag := range tags {
				inventory.Tags = append(inventory.Tags, *tag)
			}
		}
		f.writeAuditLog(txCtx, actor, models.AuditActionInventoryCreated, metadata, map[string]any{
			"inventory_id": inventory.ID,
			"name":         inventory.Name,
		})
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("CREATE_INVENTORY_FAILED", "Failed to create inventory", err)
	}

	out := ToInventoryDTO(*inventory)
	return &dto.InventoryResponse{Inventory: out}, nil
}

func (f *InventoryFlowImpl) GetInventory(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.InventoryResponse, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return nil, err
	}

	role, err := f.resolver.GetInventoryRole(ctx, inventory.ID, actor)
	if err != nil {
		role = models.InventoryRoleViewer
	}

	out := ToInventoryDTO(*inventory)
	return &dto.InventoryResponse{Inventory: out, EffectiveRole: string(role)}, nil
}

func (f *InventoryFlowImpl) ListInventories(ctx context.Context, actor *models.User, req *dto.ListInventoriesRequest) (*dto.ListInventoriesResponse, error) {
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

	filter := models.InventoryFilter{}
	switch {
	case req.OwnedOnly && actor != nil:
		filter.OwnerID = &actor.ID
	case req.PublicOnly:
		filter.IsPublic = utils.ToPtr(true)
	}
	if req.CategoryID != nil {
		filter.CategoryID = req.CategoryID
	}
	if req.Search != nil && strings.TrimSpace(*req.Search) != "" {
		trimmed := strings.TrimSpace(*req.Search)
		filter.Search = &trimmed
	}

	inventories, err := f.inventoryRepo.ByFilter(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_INVENTORIES_FAILED", "Failed to list inventories", err)
	}
	total, err := f.inventoryRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_INVENTORIES_FAILED", "Failed to count inventories", err)
	}

	resp := &dto.ListInventoriesResponse{
		Inventories: make([]dto.InventoryDTO, 0, len(inventories)),
		Total:       total,
		Page:        page,
		PageSize:    pageSize,
	}
	for _, inventory := range inventories {
		resp.Inventories = append(resp.Inventories, ToInventoryDTO(*inventory))
	}
	return resp, nil
}

// UpdateInventory applies setting changes conditionally on the submitted version
func (f *InventoryFlowImpl) UpdateInventory(ctx context.Context, actor *models.User, req *dto.UpdateInventoryRequest, metadata *ClientMetadata) (*dto.InventoryResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.resolver.CanManageInventory(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot manage this inventory", ErrInventoryAccessDenied)
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, NewBusinessError("VALIDATION_ERROR", "Inventory name is required", ErrInventoryNameRequired)
		}
		changes["name"] = name
	}
	if req.Description != nil {
		changes["description"] = req.Description
	}
	if req.ImageURL != nil {
		changes["image_url"] = req.ImageURL
	}
	if req.CategoryID != nil {
		category, err := f.categoryRepo.ByID(ctx, *req.CategoryID)
		if err != nil {
			return nil, NewBusinessError("UPDATE_INVENTORY_FAILED", "Failed to fetch category", err)
		}
		if category == nil {
			return nil, NewBusinessError("CATEGORY_NOT_FOUND", "Category not found", ErrCategoryNotFound)
		}
		changes["category_id"] = req.CategoryID
	}
	if req.IsPublic != nil {
		changes["is_public"] = req.IsPublic
	}
	if len(changes) == 0 && req.Tags == nil {
		return nil, NewBusinessError("VALIDATION_ERROR", "At least one field must be provided for update", nil)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		affected, err := f.inventoryRepo.UpdateVersioned(txCtx, inventory.ID, req.Version, changes)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrVersionConflict
		}
		if req.Tags != nil {
			tags, err := f.resolveTags(txCtx, *req.Tags)
			if err != nil {
				return err
			}
			if err := f.inventoryRepo.ReplaceTags(txCtx, inventory.ID, tags); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, NewBusinessError("VERSION_CONFLICT", "The inventory changed since you loaded it; reload and retry", ErrVersionConflict)
		}
		return nil, NewBusinessError("UPDATE_INVENTORY_FAILED", "Failed to update inventory", err)
	}

	f.writeAuditLog(ctx, actor, models.AuditActionInventoryUpdated, metadata, map[string]any{
		"inventory_id": inventory.ID,
	})

	updated, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	out := ToInventoryDTO(*updated)
	return &dto.InventoryResponse{Inventory: out}, nil
}

// DeleteInventories deletes each target conditionally on its own submitted
// version, skipping targets the actor may not manage. The three id sets are
// disjoint and together cover the request exactly.
func (f *InventoryFlowImpl) DeleteInventories(ctx context.Context, actor *models.User, req *dto.DeleteInventoriesRequest, metadata *ClientMetadata) (*dto.BulkInventoryResult, error) {
	if len(req.Inventories) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No inventories selected", nil)
	}

	result := &dto.BulkInventoryResult{
		DeletedIDs:       make([]uint, 0, len(req.Inventories)),
		SkippedIDs:       make([]uint, 0),
		PolicySkippedIDs: make([]uint, 0),
	}

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, target := range req.Inventories {
			if !f.resolver.CanManageInventory(txCtx, target.ID, actor) {
				result.PolicySkippedIDs = append(result.PolicySkippedIDs, target.ID)
				continue
			}
			affected, err := f.inventoryRepo.DeleteVersioned(txCtx, target.ID, target.Version)
			if err != nil {
				return err
			}
			if affected == 1 {
				result.DeletedIDs = append(result.DeletedIDs, target.ID)
				f.writeAuditLog(txCtx, actor, models.AuditActionInventoryDeleted, metadata, map[string]any{
					"inventory_id": target.ID,
				})
			} else {
				result.SkippedIDs = append(result.SkippedIDs, target.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("DELETE_INVENTORIES_FAILED", "Failed to delete inventories", err)
	}

	return result, nil
}

func (f *InventoryFlowImpl) GetIdFormat(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.IdFormatResponse, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return nil, err
	}

	row, err := f.idFormatRepo.ByInventoryID(ctx, inventory.ID)
	if err != nil {
		return nil, NewBusinessError("GET_ID_FORMAT_FAILED", "Failed to fetch id format", err)
	}
	if row == nil {
		// No stored row: report the fallback the allocator would use
		return &dto.IdFormatResponse{Schema: models.GuidFallbackSchema(), Version: 0}, nil
	}

	return &dto.IdFormatResponse{Schema: row.Schema, Version: row.Version}, nil
}

// ReplaceIdFormat swaps the stored schema conditionally on the submitted
// version. The schema is persisted as-is; structural invariants surface on
// the next allocation, not here.
func (f *InventoryFlowImpl) ReplaceIdFormat(ctx context.Context, actor *models.User, req *dto.ReplaceIdFormatRequest, metadata *ClientMetadata) (*dto.IdFormatResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.resolver.CanManageInventory(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot manage this inventory", ErrInventoryAccessDenied)
	}

	row, err := f.idFormatRepo.ByInventoryID(ctx, inventory.ID)
	if err != nil {
		return nil, NewBusinessError("REPLACE_ID_FORMAT_FAILED", "Failed to fetch id format", err)
	}

	if row == nil {
		format := &models.InventoryIdFormat{
			InventoryID: inventory.ID,
			Schema:      req.Schema,
			Version:     1,
		}
		if err := f.idFormatRepo.Save(ctx, format); err != nil {
			return nil, NewBusinessError("REPLACE_ID_FORMAT_FAILED", "Failed to create id format", err)
		}
		f.writeAuditLog(ctx, actor, models.AuditActionIdFormatReplaced, metadata, map[string]any{"inventory_id": inventory.ID})
		return &dto.IdFormatResponse{Schema: format.Schema, Version: format.Version}, nil
	}

	affected, err := f.idFormatRepo.ReplaceSchemaVersioned(ctx, inventory.ID, req.Version, req.Schema)
	if err != nil {
		return nil, NewBusinessError("REPLACE_ID_FORMAT_FAILED", "Failed to replace id format", err)
	}
	if affected == 0 {
		return nil, NewBusinessError("VERSION_CONFLICT", "The id format changed since you loaded it; reload and retry", ErrVersionConflict)
	}

	f.writeAuditLog(ctx, actor, models.AuditActionIdFormatReplaced, metadata, map[string]any{"inventory_id": inventory.ID})

	return &dto.IdFormatResponse{Schema: req.Schema, Version: req.Version + 1}, nil
}

func (f *InventoryFlowImpl) GetFieldSet(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.FieldSetResponse, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return nil, err
	}

	row, err := f.fieldSetRepo.ByInventoryID(ctx, inventory.ID)
	if err != nil {
		return nil, NewBusinessError("GET_FIELD_SET_FAILED", "Failed to fetch field set", err)
	}
	if row == nil {
		return &dto.FieldSetResponse{Definition: models.FieldSetDefinition{}, Version: 0}, nil
	}

	return &dto.FieldSetResponse{Definition: row.Definition, Version: row.Version}, nil
}

func (f *InventoryFlowImpl) ReplaceFieldSet(ctx context.Context, actor *models.User, req *dto.ReplaceFieldSetRequest, metadata *ClientMetadata) (*dto.FieldSetResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.resolver.CanManageInventory(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot manage this inventory", ErrInventoryAccessDenied)
	}

	row, err := f.fieldSetRepo.ByInventoryID(ctx, inventory.ID)
	if err != nil {
		return nil, NewBusinessError("REPLACE_FIELD_SET_FAILED", "Failed to fetch field set", err)
	}

	if row == nil {
		fieldSet := &models.InventoryFieldSet{
			InventoryID: inventory.ID,
			Definition:  req.Definition,
			Version:     1,
		}
		if err := f.fieldSetRepo.Save(ctx, fieldSet); err != nil {
			return nil, NewBusinessError("REPLACE_FIELD_SET_FAILED", "Failed to create field set", err)
		}
		return &dto.FieldSetResponse{Definition: fieldSet.Definition, Version: fieldSet.Version}, nil
	}

	affected, err := f.fieldSetRepo.ReplaceDefinitionVersioned(ctx, inventory.ID, req.Version, req.Definition)
	if err != nil {
		return nil, NewBusinessError("REPLACE_FIELD_SET_FAILED", "Failed to replace field set", err)
	}
	if affected == 0 {
		return nil, NewBusinessError("VERSION_CONFLICT", "The field set changed since you loaded it; reload and retry", ErrVersionConflict)
	}

	return &dto.FieldSetResponse{Definition: req.Definition, Version: req.Version + 1}, nil
}

func (f *InventoryFlowImpl) ListCategories(ctx context.Context) (*dto.ListCategoriesResponse, error) {
	categories, err := f.categoryRepo.ByFilter(ctx, models.CategoryFilter{}, "name ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("LIST_CATEGORIES_FAILED", "Failed to list categories", err)
	}

	resp := &dto.ListCategoriesResponse{Categories: make([]dto.CategoryDTO, 0, len(categories))}
	for _, category := range categories {
		resp.Categories = append(resp.Categories, dto.CategoryDTO{ID: category.ID, Name: category.Name})
	}
	return resp, nil
}

// ListTags serves tag autocomplete; prefix narrows, limit caps the page
func (f *InventoryFlowImpl) ListTags(ctx context.Context, req *dto.ListTagsRequest) (*dto.ListTagsResponse, error) {
	limit := req.Limit
	if limit < 1 || limit > utils.MaxPageSize {
		limit = utils.DefaultPageSize
	}

	tags, err := f.tagRepo.SearchByPrefix(ctx, strings.TrimSpace(req.Prefix), limit)
	if err != nil {
		return nil, NewBusinessError("LIST_TAGS_FAILED", "Failed to list tags", err)
	}

	resp := &dto.ListTagsResponse{Tags: make([]string, 0, len(tags))}
	for _, tag := range tags {
		resp.Tags = append(resp.Tags, tag.Name)
	}
	return resp, nil
}

// resolveTags maps the submitted names to tag rows, creating missing ones.
// Names are trimmed and de-duplicated case-insensitively; blanks are dropped.
func (f *InventoryFlowImpl) resolveTags(ctx context.Context, names []string) ([]*models.Tag, error) {
	seen := make(map[string]bool, len(names))
	tags := make([]*models.Tag, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if seen[key] {
			continue
		}
		seen[key] = true

		tag, err := f.tagRepo.EnsureByName(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func (f *InventoryFlowImpl) requireInventory(ctx context.Context, inventoryUUID string) (*models.Inventory, error) {
	inventory, err := f.inventoryRepo.ByUUID(ctx, inventoryUUID)
	if err != nil {
		return nil, NewBusinessError("INVENTORY_FETCH_FAILED", "Failed to fetch inventory", err)
	}
	if inventory == nil {
		return nil, NewBusinessError("INVENTORY_NOT_FOUND", "Inventory not found", ErrInventoryNotFound)
	}
	return inventory, nil
}

func (f *InventoryFlowImpl) writeAuditLog(ctx context.Context, actor *models.User, action string, metadata *ClientMetadata, details map[string]any) {
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
