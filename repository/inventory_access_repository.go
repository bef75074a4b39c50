package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InventoryAccessRepositoryImpl implements the InventoryAccessRepository interface
type InventoryAccessRepositoryImpl struct {
	*BaseRepository[models.InventoryAccess, models.InventoryAccessFilter]
}

// NewInventoryAccessRepository creates a new inventory access repository
func NewInventoryAccessRepository(db *gorm.DB) InventoryAccessRepository {
	return &InventoryAccessRepositoryImpl{
		BaseRepository: NewBaseRepository[models.InventoryAccess, models.InventoryAccessFilter](db),
	}
}

// ByInventoryAndUser retrieves the explicit grant for one user on one
// inventory, nil when no row exists
func (r *InventoryAccessRepositoryImpl) ByInventoryAndUser(ctx context.Context, inventoryID, userID uint) (*models.InventoryAccess, error) {
	db := r.getDB(ctx)

	var access models.InventoryAccess
	err := db.Where("inventory_id = ? AND user_id = ?", inventoryID, userID).Last(&access).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find inventory access: %w", err)
	}

	return &access, nil
}

// ListByInventory retrieves all explicit grants of one inventory
func (r *InventoryAccessRepositoryImpl) ListByInventory(ctx context.Context, inventoryID uint) ([]*models.InventoryAccess, error) {
	db := r.getDB(ctx)

	var rows []*models.InventoryAccess
	err := db.Where("inventory_id = ?", inventoryID).
		Preload("User").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list inventory access: %w", err)
	}

	return rows, nil
}

// Upsert writes the grant, replacing the role of an existing row.
// Last writer wins at the row level; callers wrap this in a transaction
// that re-checks inventory existence.
func (r *InventoryAccessRepositoryImpl) Upsert(ctx context.Context, access *models.InventoryAccess) error {
	db := r.getDB(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "inventory_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"inventory_role": access.InventoryRole,
			"updated_at":     utils.UTCNow(),
		}),
	}).Create(access).Error
	if err != nil {
		return fmt.Errorf("failed to upsert inventory access: %w", err)
	}

	return nil
}

// Delete removes the grant and returns the number of rows deleted
func (r *InventoryAccessRepositoryImpl) Delete(ctx context.Context, inventoryID, userID uint) (int64, error) {
	db := r.getDB(ctx)

	result := db.Where("inventory_id = ? AND user_id = ?", inventoryID, userID).
		Delete(&models.InventoryAccess{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete inventory access: %w", result.Error)
	}

	return result.RowsAffected, nil
}
