package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
	"github.com/lib/pq"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// ItemFlow handles the item business logic
type ItemFlow interface {
	CreateItem(ctx context.Context, actor *models.User, req *dto.CreateItemRequest, metadata *ClientMetadata) (*dto.ItemResponse, error)
	GetItem(ctx context.Context, actor *models.User, inventoryUUID string, itemID uint) (*dto.ItemResponse, error)
	ListItems(ctx context.Context, actor *models.User, req *dto.ListItemsRequest) (*dto.ListItemsResponse, error)
	UpdateItem(ctx context.Context, actor *models.User, req *dto.UpdateItemRequest, metadata *ClientMetadata) (*dto.ItemResponse, error)
	DeleteItems(ctx context.Context, actor *models.User, req *dto.DeleteItemsRequest, metadata *ClientMetadata) (*dto.BulkItemResult, error)
	PreviewCustomId(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.PreviewCustomIdResponse, error)
	LikeItem(ctx context.Context, actor *models.User, inventoryUUID string, itemID uint) error
	UnlikeItem(ctx context.Context, actor *models.User, inventoryUUID string, itemID uint) error
	ExportItemsXLSX(ctx context.Context, actor *models.User, inventoryUUID string) (string, []byte, error)
}

type ItemFlowImpl struct {
	itemRepo      repository.ItemRepository
	inventoryRepo repository.InventoryRepository
	allocator     CustomIdAllocator
	resolver      AccessRoleResolver
	db            *gorm.DB
}

func NewItemFlow(
	itemRepo repository.ItemRepository,
	inventoryRepo repository.InventoryRepository,
	allocator CustomIdAllocator,
	resolver AccessRoleResolver,
	db *gorm.DB,
) ItemFlow {
	return &ItemFlowImpl{
		itemRepo:      itemRepo,
		inventoryRepo: inventoryRepo,
		allocator:     allocator,
		resolver:      resolver,
		db:            db,
	}
}

// CreateItem allocates a custom id and inserts the item in one transaction.
// A uniqueness collision (racing writers, or unlucky random id segments)
// aborts the transaction, rolling the counter advance back, and the whole
// allocate-and-insert is retried up to a fixed bound. Deterministic format
// errors are never retried.
func (f *ItemFlowImpl) CreateItem(ctx context.Context, actor *models.User, req *dto.CreateItemRequest, metadata *ClientMetadata) (*dto.ItemResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.resolver.CanUserEditItems(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot edit items in this inventory", ErrInventoryAccessDenied)
	}

	var created *models.Item
	var lastErr error
	for attempt := 0; attempt < utils.MaxIdAllocationAttempts; attempt++ {
		item := &models.Item{
			InventoryID: inventory.ID,
			CreatedByID: actor.ID,
			Version:     1,
			Text1:       req.Text1, Text2: req.Text2, Text3: req.Text3,
			Long1: req.Long1, Long2: req.Long2, Long3: req.Long3,
			Num1: req.Num1, Num2: req.Num2, Num3: req.Num3,
			Link1: req.Link1, Link2: req.Link2, Link3: req.Link3,
			Bool1: req.Bool1, Bool2: req.Bool2, Bool3: req.Bool3,
		}

		lastErr = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
			customID, err := f.allocator.Generate(txCtx, inventory.ID)
			if err != nil {
				return err
			}
			item.CustomID = customID
			return f.itemRepo.Save(txCtx, item)
		})
		if lastErr == nil {
			created = item
			break
		}
		if IsIdFormatInvalid(lastErr) {
			return nil, NewBusinessError("ID_FORMAT_INVALID", "Check the inventory's custom id format settings", lastErr)
		}
		if IsGeneratedIdTooLong(lastErr) {
			return nil, NewBusinessError("GENERATED_ID_TOO_LONG", "Generated id exceeds the format's max length; adjust the inventory's custom id format settings", lastErr)
		}
		if !isUniqueViolation(lastErr) {
			return nil, NewBusinessError("CREATE_ITEM_FAILED", "Failed to create item", lastErr)
		}
	}
	if created == nil {
		return nil, NewBusinessError("ID_ALLOCATION_EXHAUSTED", "Could not allocate a unique custom id", errors.Join(ErrIdAllocationRetries, lastErr))
	}

	out := ToItemDTO(*created)
	return &dto.ItemResponse{Item: out}, nil
}

func (f *ItemFlowImpl) GetItem(ctx context.Context, actor *models.User, inventoryUUID string, itemID uint) (*dto.ItemResponse, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return nil, err
	}

	item, err := f.itemRepo.ByInventoryAndID(ctx, inventory.ID, itemID)
	if err != nil {
		return nil, NewBusinessError("ITEM_FETCH_FAILED", "Failed to fetch item", err)
	}
	if item == nil {
		return nil, NewBusinessError("ITEM_NOT_FOUND", "Item not found", ErrItemNotFound)
	}

	out := ToItemDTO(*item)
	return &dto.ItemResponse{Item: out}, nil
}

func (f *ItemFlowImpl) ListItems(ctx context.Context, actor *models.User, req *dto.ListItemsRequest) (*dto.ListItemsResponse, error) {
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

	filter := models.ItemFilter{InventoryID: &inventory.ID}
	if req.Search != nil && strings.TrimSpace(*req.Search) != "" {
		trimmed := strings.TrimSpace(*req.Search)
		filter.Search = &trimmed
	}

	items, err := f.itemRepo.ListByInventory(ctx, filter, "created_at DESC", pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, NewBusinessError("LIST_ITEMS_FAILED", "Failed to list items", err)
	}
	total, err := f.itemRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("LIST_ITEMS_FAILED", "Failed to count items", err)
	}

	resp := &dto.ListItemsResponse{
		Items:    make([]dto.ItemDTO, 0, len(items)),
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, ToItemDTO(*item))
	}
	return resp, nil
}

// UpdateItem applies field changes conditionally on the submitted version.
// The custom id is assigned once at creation and never rewritten here.
func (f *ItemFlowImpl) UpdateItem(ctx context.Context, actor *models.User, req *dto.UpdateItemRequest, metadata *ClientMetadata) (*dto.ItemResponse, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.resolver.CanUserEditItems(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot edit items in this inventory", ErrInventoryAccessDenied)
	}

	existing, err := f.itemRepo.ByInventoryAndID(ctx, inventory.ID, req.ItemID)
	if err != nil {
		return nil, NewBusinessError("ITEM_FETCH_FAILED", "Failed to fetch item", err)
	}
	if existing == nil {
		return nil, NewBusinessError("ITEM_NOT_FOUND", "Item not found", ErrItemNotFound)
	}

	changes := itemFieldChanges(req)
	if len(changes) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "At least one field must be provided for update", nil)
	}

	affected, err := f.itemRepo.UpdateVersioned(ctx, inventory.ID, req.ItemID, req.Version, changes)
	if err != nil {
		return nil, NewBusinessError("UPDATE_ITEM_FAILED", "Failed to update item", err)
	}
	if affected == 0 {
		// Existence was confirmed above, so zero rows means a stale version
		return nil, NewBusinessError("VERSION_CONFLICT", "The item changed since you loaded it; reload and retry", ErrVersionConflict)
	}

	updated, err := f.itemRepo.ByInventoryAndID(ctx, inventory.ID, req.ItemID)
	if err != nil || updated == nil {
		return nil, NewBusinessError("ITEM_FETCH_FAILED", "Failed to reload item", err)
	}

	out := ToItemDTO(*updated)
	return &dto.ItemResponse{Item: out}, nil
}

// DeleteItems deletes each target conditionally on its own submitted version
// and partitions the input into deleted and skipped ids. The two sets are
// disjoint and together cover the request exactly.
func (f *ItemFlowImpl) DeleteItems(ctx context.Context, actor *models.User, req *dto.DeleteItemsRequest, metadata *ClientMetadata) (*dto.BulkItemResult, error) {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.resolver.CanUserEditItems(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot edit items in this inventory", ErrInventoryAccessDenied)
	}
	if len(req.Items) == 0 {
		return nil, NewBusinessError("VALIDATION_ERROR", "No items selected", nil)
	}

	result := &dto.BulkItemResult{
		DeletedIDs: make([]uint, 0, len(req.Items)),
		SkippedIDs: make([]uint, 0),
	}
	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for _, target := range req.Items {
			affected, err := f.itemRepo.DeleteVersioned(txCtx, inventory.ID, target.ID, target.Version)
			if err != nil {
				return err
			}
			if affected == 1 {
				result.DeletedIDs = append(result.DeletedIDs, target.ID)
			} else {
				result.SkippedIDs = append(result.SkippedIDs, target.ID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, NewBusinessError("DELETE_ITEMS_FAILED", "Failed to delete items", err)
	}

	return result, nil
}

// PreviewCustomId forecasts the next identifier without consuming a sequence value
func (f *ItemFlowImpl) PreviewCustomId(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.PreviewCustomIdResponse, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return nil, err
	}

	preview, err := f.allocator.Preview(ctx, inventory.ID)
	if err != nil {
		if IsIdFormatInvalid(err) {
			return nil, NewBusinessError("ID_FORMAT_INVALID", "Check the inventory's custom id format settings", err)
		}
		return nil, NewBusinessError("PREVIEW_CUSTOM_ID_FAILED", "Failed to preview custom id", err)
	}

	return &dto.PreviewCustomIdResponse{CustomID: preview}, nil
}

func (f *ItemFlowImpl) LikeItem(ctx context.Context, actor *models.User, inventoryUUID string, itemID uint) error {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return err
	}

	item, err := f.itemRepo.ByInventoryAndID(ctx, inventory.ID, itemID)
	if err != nil {
		return NewBusinessError("ITEM_FETCH_FAILED", "Failed to fetch item", err)
	}
	if item == nil {
		return NewBusinessError("ITEM_NOT_FOUND", "Item not found", ErrItemNotFound)
	}

	if err := f.itemRepo.Like(ctx, item.ID, actor.ID); err != nil {
		return NewBusinessError("LIKE_ITEM_FAILED", "Failed to like item", err)
	}
	return nil
}

func (f *ItemFlowImpl) UnlikeItem(ctx context.Context, actor *models.User, inventoryUUID string, itemID uint) error {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return err
	}

	item, err := f.itemRepo.ByInventoryAndID(ctx, inventory.ID, itemID)
	if err != nil {
		return NewBusinessError("ITEM_FETCH_FAILED", "Failed to fetch item", err)
	}
	if item == nil {
		return NewBusinessError("ITEM_NOT_FOUND", "Item not found", ErrItemNotFound)
	}

	if err := f.itemRepo.Unlike(ctx, item.ID, actor.ID); err != nil {
		return NewBusinessError("UNLIKE_ITEM_FAILED", "Failed to unlike item", err)
	}
	return nil
}

func (f *ItemFlowImpl) requireInventory(ctx context.Context, inventoryUUID string) (*models.Inventory, error) {
	inventory, err := f.inventoryRepo.ByUUID(ctx, inventoryUUID)
	if err != nil {
		return nil, NewBusinessError("INVENTORY_FETCH_FAILED", "Failed to fetch inventory", err)
	}
	if inventory == nil {
		return nil, NewBusinessError("INVENTORY_NOT_FOUND", "Inventory not found", ErrInventoryNotFound)
	}
	return inventory, nil
}

func itemFieldChanges(req *dto.UpdateItemRequest) map[string]any {
	changes := map[string]any{}
	setIfPresent := func(column string, value any, present bool) {
		if present {
			changes[column] = value
		}
	}
	setIfPresent("text1", req.Text1, req.Text1 != nil)
	setIfPresent("text2", req.Text2, req.Text2 != nil)
	setIfPresent("text3", req.Text3, req.Text3 != nil)
	setIfPresent("long1", req.Long1, req.Long1 != nil)
	setIfPresent("long2", req.Long2, req.Long2 != nil)
	setIfPresent("long3", req.Long3, req.Long3 != nil)
	setIfPresent("num1", req.Num1, req.Num1 != nil)
	setIfPresent("num2", req.Num2, req.Num2 != nil)
	setIfPresent("num3", req.Num3, req.Num3 != nil)
	setIfPresent("link1", req.Link1, req.Link1 != nil)
	setIfPresent("link2", req.Link2, req.Link2 != nil)
	setIfPresent("link3", req.Link3, req.Link3 != nil)
	setIfPresent("bool1", req.Bool1, req.Bool1 != nil)
	setIfPresent("bool2", req.Bool2, req.Bool2 != nil)
	setIfPresent("bool3", req.Bool3, req.Bool3 != nil)
	return changes
}

// isUniqueViolation reports whether the error is a Postgres unique constraint
// violation, the transient signal that triggers an allocation retry.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// ExportItemsXLSX renders the inventory's items into a single-sheet workbook
// and returns the suggested file name with the serialized bytes. Items are
// readable by anyone who can see the inventory, so no role gate applies.
func (f *ItemFlowImpl) ExportItemsXLSX(ctx context.Context, actor *models.User, inventoryUUID string) (string, []byte, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return "", nil, err
	}

	filter := models.ItemFilter{InventoryID: &inventory.ID}
	items, err := f.itemRepo.ListByInventory(ctx, filter, "id ASC", 0, 0)
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_ITEMS_FAILED", "Failed to load items", err)
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	sheet := "Items"
	xl.SetSheetName(xl.GetSheetName(0), sheet)

	header := []string{
		"id", "custom_id", "version", "created_at",
		"text1", "text2", "text3",
		"long1", "long2", "long3",
		"num1", "num2", "num3",
		"link1", "link2", "link3",
		"bool1", "bool2", "bool3",
	}
	_ = xl.SetSheetRow(sheet, "A1", &header)

	for i, item := range items {
		record := []any{
			item.ID, item.CustomID, item.Version,
			item.CreatedAt.UTC().Format(time.RFC3339),
			strValue(item.Text1), strValue(item.Text2), strValue(item.Text3),
			strValue(item.Long1), strValue(item.Long2), strValue(item.Long3),
			numValue(item.Num1), numValue(item.Num2), numValue(item.Num3),
			strValue(item.Link1), strValue(item.Link2), strValue(item.Link3),
			boolValue(item.Bool1), boolValue(item.Bool2), boolValue(item.Bool3),
		}
		cellRef, _ := excelize.CoordinatesToCellName(1, i+2)
		_ = xl.SetSheetRow(sheet, cellRef, &record)
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, NewBusinessError("EXPORT_ITEMS_FAILED", "Failed to serialize workbook", err)
	}

	name := fmt.Sprintf("items_%d_%s.xlsx", inventory.ID, utils.UTCNow().Format("20060102_150405"))
	return name, buf.Bytes(), nil
}

func strValue(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func numValue(v *float64) any {
	if v == nil {
		return ""
	}
	return *v
}

func boolValue(v *bool) any {
	if v == nil {
		return ""
	}
	return *v
}
