package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
)

// InventoryFieldSetRepositoryImpl implements the InventoryFieldSetRepository interface
type InventoryFieldSetRepositoryImpl struct {
	*BaseRepository[models.InventoryFieldSet, models.InventoryFieldSetFilter]
}

// NewInventoryFieldSetRepository creates a new field set repository
func NewInventoryFieldSetRepository(db *gorm.DB) InventoryFieldSetRepository {
	return &InventoryFieldSetRepositoryImpl{
		BaseRepository: NewBaseRepository[models.InventoryFieldSet, models.InventoryFieldSetFilter](db),
	}
}

// ByInventoryID retrieves the field set of one inventory, nil when absent
func (r *InventoryFieldSetRepositoryImpl) ByInventoryID(ctx context.Context, inventoryID uint) (*models.InventoryFieldSet, error) {
	db := r.getDB(ctx)

	var fieldSet models.InventoryFieldSet
	err := db.Where("inventory_id = ?", inventoryID).Last(&fieldSet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find field set for inventory %d: %w", inventoryID, err)
	}

	return &fieldSet, nil
}

// ReplaceDefinitionVersioned swaps the stored definition when the submitted
// version matches, bumping version by one
func (r *InventoryFieldSetRepositoryImpl) ReplaceDefinitionVersioned(ctx context.Context, inventoryID uint, version int, definition models.FieldSetDefinition) (int64, error) {
	db := r.getDB(ctx)

	result := db.Model(&models.InventoryFieldSet{}).
		Where("inventory_id = ? AND version = ?", inventoryID, version).
		Updates(map[string]any{
			"definition": definition,
			"version":    gorm.Expr("version + 1"),
			"updated_at": utils.UTCNow(),
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to replace field set definition: %w", result.Error)
	}

	return result.RowsAffected, nil
}
