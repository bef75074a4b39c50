package repository

import (
	"context"
	"fmt"

	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
)

// InventoryRepositoryImpl implements the InventoryRepository interface
type InventoryRepositoryImpl struct {
	*BaseRepository[models.Inventory, models.InventoryFilter]
}

// NewInventoryRepository creates a new inventory repository
func NewInventoryRepository(db *gorm.DB) InventoryRepository {
	return &InventoryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Inventory, models.InventoryFilter](db),
	}
}

// ByID retrieves an inventory by ID with its owner and category preloaded
func (r *InventoryRepositoryImpl) ByID(ctx context.Context, id uint) (*models.Inventory, error) {
	db := r.getDB(ctx)

	var inventory models.Inventory
	err := db.Preload("Owner").
		Preload("Category").
		Preload("Tags").
		Last(&inventory, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &inventory, nil
}

// ByUUID retrieves an inventory by UUID
func (r *InventoryRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.Inventory, error) {
	parsedUUID, err := utils.ParseUUID(uuid)
	if err != nil {
		return nil, err
	}

	filter := models.InventoryFilter{UUID: &parsedUUID}
	inventories, err := r.ByFilter(ctx, filter, "", 0, 0)
	if err != nil {
		return nil, err
	}

	if len(inventories) == 0 {
		return nil, nil
	}

	return inventories[0], nil
}

// ListByOwner retrieves inventories owned by the given user
func (r *InventoryRepositoryImpl) ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Inventory, error) {
	filter := models.InventoryFilter{OwnerID: &ownerID}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// ListPublic retrieves public inventories
func (r *InventoryRepositoryImpl) ListPublic(ctx context.Context, limit, offset int) ([]*models.Inventory, error) {
	isPublic := true
	filter := models.InventoryFilter{IsPublic: &isPublic}
	return r.ByFilter(ctx, filter, "created_at DESC", limit, offset)
}

// UpdateVersioned applies the column changes as a conditional write keyed on
// (id, version), bumping version by one. Zero rows affected means the
// submitted version is stale or the inventory is gone.
func (r *InventoryRepositoryImpl) UpdateVersioned(ctx context.Context, id uint, version int, changes map[string]any) (int64, error) {
	db := r.getDB(ctx)

	updates := make(map[string]any, len(changes)+2)
	for k, v := range changes {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = utils.UTCNow()

	result := db.Model(&models.Inventory{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update inventory: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteVersioned removes the inventory when the submitted version matches
func (r *InventoryRepositoryImpl) DeleteVersioned(ctx context.Context, id uint, version int) (int64, error) {
	db := r.getDB(ctx)

	result := db.Where("id = ? AND version = ?", id, version).Delete(&models.Inventory{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete inventory: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// ReplaceTags swaps the inventory's tag set for the given one
func (r *InventoryRepositoryImpl) ReplaceTags(ctx context.Context, inventoryID uint, tags []*models.Tag) error {
	db := r.getDB(ctx)

	inventory := models.Inventory{ID: inventoryID}
	if err := db.Model(&inventory).Association("Tags").Replace(tags); err != nil {
		return fmt.Errorf("failed to replace inventory tags: %w", err)
	}
	return nil
}

// ByFilter retrieves inventories based on filter criteria
func (r *InventoryRepositoryImpl) ByFilter(ctx context.Context, filter models.InventoryFilter, orderBy string, limit, offset int) ([]*models.Inventory, error) {
	db := r.getDB(ctx)

	var inventories []*models.Inventory
	query := r.applyFilter(db, filter)

	if orderBy != "" {
		query = query.Order(orderBy)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	query = query.Preload("Owner").Preload("Category").Preload("Tags")

	err := query.Find(&inventories).Error
	if err != nil {
		return nil, err
	}

	return inventories, nil
}

// Count returns the number of inventories matching the filter
func (r *InventoryRepositoryImpl) Count(ctx context.Context, filter models.InventoryFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var inventory models.Inventory
	query := r.applyFilter(db.Model(&inventory), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any inventory matching the filter exists
func (r *InventoryRepositoryImpl) Exists(ctx context.Context, filter models.InventoryFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *InventoryRepositoryImpl) applyFilter(db *gorm.DB, filter models.InventoryFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Name != nil {
		db = db.Where("name ILIKE ?", "%"+*filter.Name+"%")
	}
	if filter.OwnerID != nil {
		db = db.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.CategoryID != nil {
		db = db.Where("category_id = ?", *filter.CategoryID)
	}
	if filter.IsPublic != nil {
		db = db.Where("is_public = ?", *filter.IsPublic)
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + *filter.Search + "%"
		db = db.Where("name ILIKE ? OR description ILIKE ?", like, like)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
