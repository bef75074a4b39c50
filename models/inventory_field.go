package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FieldSlotConfig declares how one custom field slot of the items table is
// presented: whether it is in use, its display title, and whether it shows
// up in list views.
type FieldSlotConfig struct {
	Enabled     bool    `json:"enabled"`
	Title       *string `json:"title,omitempty"`
	ShowInTable *bool   `json:"showInTable,omitempty"`
}

// FieldSetDefinition maps item field slot names (text1, num2, ...) to their
// per-inventory configuration. Stored as opaque JSONB.
type FieldSetDefinition map[string]FieldSlotConfig

// Value implements the driver.Valuer interface for FieldSetDefinition
func (d FieldSetDefinition) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements the sql.Scanner interface for FieldSetDefinition
func (d *FieldSetDefinition) Scan(value any) error {
	if value == nil {
		*d = FieldSetDefinition{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into FieldSetDefinition", value)
	}

	return json.Unmarshal(bytes, d)
}

// InventoryFieldSet is the versioned aggregate holding an inventory's custom
// field configuration. Replacing the definition requires the current version.
type InventoryFieldSet struct {
	ID          uint               `gorm:"primaryKey" json:"id"`
	InventoryID uint               `gorm:"not null;uniqueIndex:uk_inventory_field_sets_inventory_id" json:"inventory_id"`
	Definition  FieldSetDefinition `gorm:"type:jsonb;not null" json:"definition"`
	Version     int                `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time          `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Inventory *Inventory `gorm:"foreignKey:InventoryID;references:ID" json:"-"`
}

func (InventoryFieldSet) TableName() string {
	return "inventory_field_sets"
}

// InventoryFieldSetFilter represents filter criteria for field set queries
type InventoryFieldSetFilter struct {
	ID          *uint
	InventoryID *uint
}
