package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
)

// IdFormatRepositoryImpl implements the IdFormatRepository interface
type IdFormatRepositoryImpl struct {
	*BaseRepository[models.InventoryIdFormat, models.InventoryIdFormatFilter]
}

// NewIdFormatRepository creates a new id format repository
func NewIdFormatRepository(db *gorm.DB) IdFormatRepository {
	return &IdFormatRepositoryImpl{
		BaseRepository: NewBaseRepository[models.InventoryIdFormat, models.InventoryIdFormatFilter](db),
	}
}

// ByInventoryID retrieves the id format row of one inventory, nil when absent
func (r *IdFormatRepositoryImpl) ByInventoryID(ctx context.Context, inventoryID uint) (*models.InventoryIdFormat, error) {
	db := r.getDB(ctx)

	var format models.InventoryIdFormat
	err := db.Where("inventory_id = ?", inventoryID).Last(&format).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find id format for inventory %d: %w", inventoryID, err)
	}

	return &format, nil
}

// ReplaceSchemaVersioned swaps the stored schema when the submitted version
// matches, bumping version by one. The schema content is not validated here;
// structural invariants surface at allocation time.
func (r *IdFormatRepositoryImpl) ReplaceSchemaVersioned(ctx context.Context, inventoryID uint, version int, schema models.IdFormatSchema) (int64, error) {
	db := r.getDB(ctx)

	result := db.Model(&models.InventoryIdFormat{}).
		Where("inventory_id = ? AND version = ?", inventoryID, version).
		Updates(map[string]any{
			"schema":     schema,
			"version":    gorm.Expr("version + 1"),
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to replace id format schema: %w", result.Error)
	}

	return result.RowsAffected, nil
}
