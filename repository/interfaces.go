// Package repository provides data access layer implementations and interfaces for database operations
package repository

import (
	"context"
	"time"

	"github.com/inventara/inventara/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// UserRepository defines operations for platform users
type UserRepository interface {
	Repository[models.User, models.UserFilter]
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUUID(ctx context.Context, uuid string) (*models.User, error)
	ByIDs(ctx context.Context, ids []uint) ([]*models.User, error)
	UpdateLastLogin(ctx context.Context, userID uint, at time.Time) error
	// UpdateStatusVersioned conditionally moves a user to the given status.
	// The row is touched only when the submitted version matches and the user
	// is not already in that status; the affected-row count is returned.
	UpdateStatusVersioned(ctx context.Context, id uint, version int, status models.UserStatus) (int64, error)
	// UpdateRoleVersioned is the role counterpart of UpdateStatusVersioned.
	UpdateRoleVersioned(ctx context.Context, id uint, version int, role models.UserRole) (int64, error)
	DeleteByIDs(ctx context.Context, ids []uint) (int64, error)
}

// InventoryRepository defines operations for inventories
type InventoryRepository interface {
	Repository[models.Inventory, models.InventoryFilter]
	ByUUID(ctx context.Context, uuid string) (*models.Inventory, error)
	ListByOwner(ctx context.Context, ownerID uint, limit, offset int) ([]*models.Inventory, error)
	ListPublic(ctx context.Context, limit, offset int) ([]*models.Inventory, error)
	// UpdateVersioned applies the column changes when the submitted version
	// matches the stored one, bumping version by one. Returns rows affected.
	UpdateVersioned(ctx context.Context, id uint, version int, changes map[string]any) (int64, error)
	// DeleteVersioned removes the inventory when the submitted version matches.
	DeleteVersioned(ctx context.Context, id uint, version int) (int64, error)
	// ReplaceTags swaps the inventory's tag set for the given one.
	ReplaceTags(ctx context.Context, inventoryID uint, tags []*models.Tag) error
}

// ItemRepository defines operations for items
type ItemRepository interface {
	Repository[models.Item, models.ItemFilter]
	ByInventoryAndID(ctx context.Context, inventoryID, id uint) (*models.Item, error)
	ListByInventory(ctx context.Context, filter models.ItemFilter, orderBy string, limit, offset int) ([]*models.Item, error)
	UpdateVersioned(ctx context.Context, inventoryID, id uint, version int, changes map[string]any) (int64, error)
	DeleteVersioned(ctx context.Context, inventoryID, id uint, version int) (int64, error)
	// MaxExistingSequence extracts the numeric value at the sequence position
	// of every stored custom id matching the template-derived pattern and
	// returns the maximum, or 0 when none match.
	MaxExistingSequence(ctx context.Context, inventoryID uint, pattern, likePrefix, likeSuffix string) (int64, error)
	Like(ctx context.Context, itemID, userID uint) error
	Unlike(ctx context.Context, itemID, userID uint) error
}

// SequenceCounterRepository defines operations for per-inventory counters.
// All mutations must run inside the caller's transaction context so the
// advance commits or aborts together with the owning entity insert.
type SequenceCounterRepository interface {
	Ensure(ctx context.Context, inventoryID uint, scopeKey string) error
	RaiseTo(ctx context.Context, inventoryID uint, scopeKey string, floor int64) error
	IncrementAndGet(ctx context.Context, inventoryID uint, scopeKey string) (int64, error)
	Current(ctx context.Context, inventoryID uint, scopeKey string) (int64, error)
}

// IdFormatRepository defines operations for inventory id format rows
type IdFormatRepository interface {
	ByInventoryID(ctx context.Context, inventoryID uint) (*models.InventoryIdFormat, error)
	Save(ctx context.Context, format *models.InventoryIdFormat) error
	ReplaceSchemaVersioned(ctx context.Context, inventoryID uint, version int, schema models.IdFormatSchema) (int64, error)
}

// InventoryAccessRepository defines operations for explicit access grants
type InventoryAccessRepository interface {
	ByInventoryAndUser(ctx context.Context, inventoryID, userID uint) (*models.InventoryAccess, error)
	ListByInventory(ctx context.Context, inventoryID uint) ([]*models.InventoryAccess, error)
	Upsert(ctx context.Context, access *models.InventoryAccess) error
	Delete(ctx context.Context, inventoryID, userID uint) (int64, error)
}

// InventoryFieldSetRepository defines operations for the field configuration aggregate
type InventoryFieldSetRepository interface {
	ByInventoryID(ctx context.Context, inventoryID uint) (*models.InventoryFieldSet, error)
	Save(ctx context.Context, fieldSet *models.InventoryFieldSet) error
	ReplaceDefinitionVersioned(ctx context.Context, inventoryID uint, version int, definition models.FieldSetDefinition) (int64, error)
}

// CategoryRepository defines operations for categories
type CategoryRepository interface {
	Repository[models.Category, models.CategoryFilter]
	ByName(ctx context.Context, name string) (*models.Category, error)
}

// TagRepository defines operations for tags
type TagRepository interface {
	Repository[models.Tag, models.TagFilter]
	ByName(ctx context.Context, name string) (*models.Tag, error)
	// EnsureByName returns the tag with the given name, creating it first
	// if it does not exist yet.
	EnsureByName(ctx context.Context, name string) (*models.Tag, error)
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]*models.Tag, error)
}

// DiscussionRepository defines operations for inventory discussion posts
type DiscussionRepository interface {
	Repository[models.DiscussionPost, models.DiscussionPostFilter]
	// ListByInventory returns one page of an inventory's posts ordered by
	// creation time, with the author row preloaded.
	ListByInventory(ctx context.Context, inventoryID uint, orderBy string, limit, offset int) ([]*models.DiscussionPost, error)
	CountByInventory(ctx context.Context, inventoryID uint) (int64, error)
	Delete(ctx context.Context, id uint) (int64, error)
}

// AuditLogRepository defines operations for audit logs
type AuditLogRepository interface {
	Repository[models.AuditLog, models.AuditLogFilter]
	ListByUser(ctx context.Context, userID uint, limit, offset int) ([]*models.AuditLog, error)
	ListByAction(ctx context.Context, action string, limit, offset int) ([]*models.AuditLog, error)
}
