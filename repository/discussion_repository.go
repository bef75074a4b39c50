package repository

import (
	"context"
	"fmt"

	"github.com/inventara/inventara/models"
	"gorm.io/gorm"
)

// DiscussionRepositoryImpl implements DiscussionRepository interface
type DiscussionRepositoryImpl struct {
	*BaseRepository[models.DiscussionPost, models.DiscussionPostFilter]
}

// NewDiscussionRepository creates a new discussion post repository
func NewDiscussionRepository(db *gorm.DB) DiscussionRepository {
	return &DiscussionRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DiscussionPost, models.DiscussionPostFilter](db),
	}
}

// ListByInventory retrieves one page of an inventory's posts with authors preloaded
func (r *DiscussionRepositoryImpl) ListByInventory(ctx context.Context, inventoryID uint, orderBy string, limit, offset int) ([]*models.DiscussionPost, error) {
	db := r.getDB(ctx)

	var rows []*models.DiscussionPost
	query := db.Preload("Author").Where("inventory_id = ?", inventoryID)
	if orderBy != "" {
		query = query.Order(orderBy)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list discussion posts: %w", err)
	}

	return rows, nil
}

// CountByInventory returns the number of posts on one inventory's board
func (r *DiscussionRepositoryImpl) CountByInventory(ctx context.Context, inventoryID uint) (int64, error) {
	return r.Count(ctx, models.DiscussionPostFilter{InventoryID: &inventoryID})
}

// Delete removes the post and reports how many rows went away
func (r *DiscussionRepositoryImpl) Delete(ctx context.Context, id uint) (int64, error) {
	db := r.getDB(ctx)

	result := db.Where("id = ?", id).Delete(&models.DiscussionPost{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete discussion post: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ByFilter retrieves discussion posts based on filter criteria
func (r *DiscussionRepositoryImpl) ByFilter(ctx context.Context, filter models.DiscussionPostFilter, orderBy string, limit, offset int) ([]*models.DiscussionPost, error) {
	db := r.getDB(ctx)

	var rows []*models.DiscussionPost
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
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find discussion posts by filter: %w", err)
	}

	return rows, nil
}

// Count returns the number of discussion posts matching the filter
func (r *DiscussionRepositoryImpl) Count(ctx context.Context, filter models.DiscussionPostFilter) (int64, error) {
	db := r.getDB(ctx)

	var count int64
	if err := r.applyFilter(db.Model(&models.DiscussionPost{}), filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count discussion posts: %w", err)
	}

	return count, nil
}

// Exists checks if any discussion post matching the filter exists
func (r *DiscussionRepositoryImpl) Exists(ctx context.Context, filter models.DiscussionPostFilter) (bool, error) {
	count, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *DiscussionRepositoryImpl) applyFilter(db *gorm.DB, filter models.DiscussionPostFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.InventoryID != nil {
		db = db.Where("inventory_id = ?", *filter.InventoryID)
	}
	if filter.AuthorID != nil {
		db = db.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.CreatedAfter != nil {
		db = db.Where("created_at >= ?", *filter.CreatedAfter)
	}
	if filter.CreatedBefore != nil {
		db = db.Where("created_at < ?", *filter.CreatedBefore)
	}
	return db
}
