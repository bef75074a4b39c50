package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Item represents one entry of an inventory. The custom identifier is assigned
// exactly once at creation by the custom id allocator and is unique within its
// inventory, not globally. Items are versioned aggregates.
type Item struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UUID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_items_uuid;index:idx_items_uuid" json:"uuid"`
	InventoryID uint      `gorm:"not null;uniqueIndex:uk_items_inventory_custom_id;index:idx_items_inventory_id" json:"inventory_id"`
	CustomID    string    `gorm:"size:255;not null;uniqueIndex:uk_items_inventory_custom_id" json:"custom_id"`
	CreatedByID uint      `gorm:"not null;index:idx_items_created_by_id" json:"created_by_id"`
	Version     int       `gorm:"not null;default:1" json:"version"`

	// Custom field slots; visibility and titles are declared per inventory
	// by the InventoryFieldSet aggregate.
	Text1 *string  `gorm:"size:255" json:"text1,omitempty"`
	Text2 *string  `gorm:"size:255" json:"text2,omitempty"`
	Text3 *string  `gorm:"size:255" json:"text3,omitempty"`
	Long1 *string  `gorm:"type:text" json:"long1,omitempty"`
	Long2 *string  `gorm:"type:text" json:"long2,omitempty"`
	Long3 *string  `gorm:"type:text" json:"long3,omitempty"`
	Num1  *float64 `json:"num1,omitempty"`
	Num2  *float64 `json:"num2,omitempty"`
	Num3  *float64 `json:"num3,omitempty"`
	Link1 *string  `gorm:"size:2048" json:"link1,omitempty"`
	Link2 *string  `gorm:"size:2048" json:"link2,omitempty"`
	Link3 *string  `gorm:"size:2048" json:"link3,omitempty"`
	Bool1 *bool    `json:"bool1,omitempty"`
	Bool2 *bool    `json:"bool2,omitempty"`
	Bool3 *bool    `json:"bool3,omitempty"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_items_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_items_updated_at" json:"updated_at"`

	// Relations
	Inventory *Inventory `gorm:"foreignKey:InventoryID;references:ID" json:"-"`
	CreatedBy *User      `gorm:"foreignKey:CreatedByID;references:ID" json:"created_by,omitempty"`
	Likes     []ItemLike `gorm:"foreignKey:ItemID" json:"-"`
}

func (Item) TableName() string {
	return "items"
}

// BeforeCreate is called before creating a new record
func (i *Item) BeforeCreate(tx *gorm.DB) error {
	if i.UUID == uuid.Nil {
		i.UUID = uuid.New()
	}
	if i.Version == 0 {
		i.Version = 1
	}
	return nil
}

// ItemFilter represents filter criteria for item queries
type ItemFilter struct {
	ID            *uint
	UUID          *uuid.UUID
	InventoryID   *uint
	CustomID      *string
	CreatedByID   *uint
	Search        *string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// ItemLike records that a user liked an item, once
type ItemLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ItemID    uint      `gorm:"not null;uniqueIndex:uk_item_likes_item_user;index:idx_item_likes_item_id" json:"item_id"`
	UserID    uint      `gorm:"not null;uniqueIndex:uk_item_likes_item_user" json:"user_id"`
	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
}

func (ItemLike) TableName() string {
	return "item_likes"
}
