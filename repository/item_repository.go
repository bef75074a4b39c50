package repository

import (
	"context"
	"fmt"

	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ItemRepositoryImpl implements the ItemRepository interface
type ItemRepositoryImpl struct {
	*BaseRepository[models.Item, models.ItemFilter]
}

// NewItemRepository creates a new item repository
func NewItemRepository(db *gorm.DB) ItemRepository {
	return &ItemRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Item, models.ItemFilter](db),
	}
}

// ByInventoryAndID retrieves an item scoped to its inventory
func (r *ItemRepositoryImpl) ByInventoryAndID(ctx context.Context, inventoryID, id uint) (*models.Item, error) {
	db := r.getDB(ctx)

	var item models.Item
	err := db.Where("inventory_id = ?", inventoryID).Last(&item, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}

	return &item, nil
}

// ListByInventory retrieves items of one inventory with search, ordering and pagination
func (r *ItemRepositoryImpl) ListByInventory(ctx context.Context, filter models.ItemFilter, orderBy string, limit, offset int) ([]*models.Item, error) {
	return r.ByFilter(ctx, filter, orderBy, limit, offset)
}

// UpdateVersioned applies the column changes as a conditional write keyed on
// (id, version) within the inventory, bumping version by one
func (r *ItemRepositoryImpl) UpdateVersioned(ctx context.Context, inventoryID, id uint, version int, changes map[string]any) (int64, error) {
	db := r.getDB(ctx)

	updates := make(map[string]any, len(changes)+2)
	for k, v := range changes {
		updates[k] = v
	}
	updates["version"] = gorm.Expr("version + 1")
	updates["updated_at"] = utils.UTCNow()

	result := db.Model(&models.Item{}).
		Where("id = ? AND version = ? AND inventory_id = ?", id, version, inventoryID).
		Updates(updates)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update item: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// DeleteVersioned removes one item when the submitted version matches
func (r *ItemRepositoryImpl) DeleteVersioned(ctx context.Context, inventoryID, id uint, version int) (int64, error) {
	db := r.getDB(ctx)

	result := db.Where("id = ? AND version = ? AND inventory_id = ?", id, version, inventoryID).
		Delete(&models.Item{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete item: %w", result.Error)
	}

	return result.RowsAffected, nil
}

// MaxExistingSequence scans the inventory's persisted custom ids with the
// template-derived regular expression and returns the largest sequence value
// found, 0 when none match. The LIKE prefix/suffix narrow the scan so the
// regex only runs over plausible candidates.
func (r *ItemRepositoryImpl) MaxExistingSequence(ctx context.Context, inventoryID uint, pattern, likePrefix, likeSuffix string) (int64, error) {
	db := r.getDB(ctx)

	query := `
		SELECT COALESCE(MAX((matches[1])::bigint), 0) AS maxseq
		FROM (
			SELECT regexp_matches(custom_id, ?) AS matches
			FROM items
			WHERE inventory_id = ?`
	args := []any{pattern, inventoryID}

	if likePrefix != "" {
		query += ` AND custom_id LIKE ?`
		args = append(args, likePrefix+"%")
	}
	if likeSuffix != "" {
		query += ` AND custom_id LIKE ?`
		args = append(args, "%"+likeSuffix)
	}
	query += `
		) matched`

	var maxSeq int64
	if err := db.Raw(query, args...).Scan(&maxSeq).Error; err != nil {
		return 0, fmt.Errorf("failed to scan max existing sequence: %w", err)
	}

	return maxSeq, nil
}

// Like records a user's like, once per (item, user)
func (r *ItemRepositoryImpl) Like(ctx context.Context, itemID, userID uint) error {
	db := r.getDB(ctx)

	like := models.ItemLike{ItemID: itemID, UserID: userID}
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
	if err != nil {
		return fmt.Errorf("failed to like item: %w", err)
	}

	return nil
}

// Unlike removes a user's like if present
func (r *ItemRepositoryImpl) Unlike(ctx context.Context, itemID, userID uint) error {
	db := r.getDB(ctx)

	err := db.Where("item_id = ? AND user_id = ?", itemID, userID).Delete(&models.ItemLike{}).Error
	if err != nil {
		return fmt.Errorf("failed to unlike item: %w", err)
	}

	return nil
}

// ByFilter retrieves items based on filter criteria
func (r *ItemRepositoryImpl) ByFilter(ctx context.Context, filter models.ItemFilter, orderBy string, limit, offset int) ([]*models.Item, error) {
	db := r.getDB(ctx)

	var items []*models.Item
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

	err := query.Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

// Count returns the number of items matching the filter
func (r *ItemRepositoryImpl) Count(ctx context.Context, filter models.ItemFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	var item models.Item
	query := r.applyFilter(db.Model(&item), filter)

	err := query.Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

// Exists checks if any item matching the filter exists
func (r *ItemRepositoryImpl) Exists(ctx context.Context, filter models.ItemFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ItemRepositoryImpl) applyFilter(db *gorm.DB, filter models.ItemFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.InventoryID != nil {
		db = db.Where("inventory_id = ?", *filter.InventoryID)
	}
	if filter.CustomID != nil {
		db = db.Where("custom_id = ?", *filter.CustomID)
	}
	if filter.CreatedByID != nil {
		db = db.Where("created_by_id = ?", *filter.CreatedByID)
	}
	if filter.Search != nil && *filter.Search != "" {
		like := "%" + *filter.Search + "%"
		db = db.Where(
			"custom_id ILIKE ? OR text1 ILIKE ? OR text2 ILIKE ? OR text3 ILIKE ? OR long1 ILIKE ? OR long2 ILIKE ? OR long3 ILIKE ? OR link1 ILIKE ? OR link2 ILIKE ? OR link3 ILIKE ?",
			like, like, like, like, like, like, like, like, like, like)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}

	return db
}
