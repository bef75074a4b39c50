package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Inventory represents a collection of items owned by a single user.
// Inventories are versioned aggregates: updates must match the stored version.
type Inventory struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_inventories_uuid;index:idx_inventories_uuid" json:"uuid"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description *string   `gorm:"type:text" json:"description,omitempty"`
	ImageURL    *string   `gorm:"size:2048" json:"image_url,omitempty"`
	OwnerID     uint      `gorm:"not null;index:idx_inventories_owner_id" json:"owner_id"`
	CategoryID  *uint     `gorm:"index:idx_inventories_category_id" json:"category_id,omitempty"`
	IsPublic    *bool     `gorm:"default:false;index:idx_inventories_is_public" json:"is_public"`
	Version     int       `gorm:"not null;default:1" json:"version"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_inventories_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Owner    *User              `gorm:"foreignKey:OwnerID;references:ID" json:"owner,omitempty"`
	Category *Category          `gorm:"foreignKey:CategoryID;references:ID" json:"category,omitempty"`
	Items    []Item             `gorm:"foreignKey:InventoryID" json:"-"`
	Access   []InventoryAccess  `gorm:"foreignKey:InventoryID" json:"access,omitempty"`
	IdFormat *InventoryIdFormat `gorm:"foreignKey:InventoryID" json:"id_format,omitempty"`
	FieldSet *InventoryFieldSet `gorm:"foreignKey:InventoryID" json:"field_set,omitempty"`
	Tags     []Tag              `gorm:"many2many:inventory_tags" json:"tags,omitempty"`
}

func (Inventory) TableName() string {
	return "inventories"
}

// BeforeCreate is called before creating a new record
func (i *Inventory) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == uuid.Nil {
		i.UUID = uuid.New()
	}
	if i.Version == 0 {
		i.Version = 1
	}
	return nil
}

// InventoryFilter represents filter criteria for inventory queries
type InventoryFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	Name          *string
	OwnerID       *uint
	CategoryID    *uint
	IsPublic      *bool
	Search        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// InventoryAccess grants a user an explicit role on one inventory.
// At most one row exists per (inventory, user). An OWNER row is only
// consistent when the user is the inventory's owner.
type InventoryAccess struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	InventoryID   uint          `gorm:"not null;uniqueIndex:uk_inventory_access_inventory_user;index:idx_inventory_access_inventory_id" json:"inventory_id"`
	UserID        uint          `gorm:"not null;uniqueIndex:uk_inventory_access_inventory_user;index:idx_inventory_access_user_id" json:"user_id"`
	InventoryRole InventoryRole `gorm:"type:inventory_role;not null" json:"inventory_role"`
	CreatedAt     time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt     time.Time     `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Inventory *Inventory `gorm:"foreignKey:InventoryID;references:ID" json:"-"`
	User      *User      `gorm:"foreignKey:UserID;references:ID" json:"user,omitempty"`
}

func (InventoryAccess) TableName() string {
	return "inventory_access"
}

// InventoryAccessFilter represents filter criteria for access queries
type InventoryAccessFilter struct {
	ID            *uint
	InventoryID   *uint
	UserID        *uint
	InventoryRole *InventoryRole
}
