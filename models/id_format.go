package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IdElementType tags one variant of a custom id element
type IdElementType string

const (
	IdElementFixedText    IdElementType = "FIXED_TEXT"
	IdElementRandom20Bit  IdElementType = "RANDOM_20BIT"
	IdElementRandom32Bit  IdElementType = "RANDOM_32BIT"
	IdElementRandom6Digit IdElementType = "RANDOM_6DIGIT"
	IdElementRandom9Digit IdElementType = "RANDOM_9DIGIT"
	IdElementGuid         IdElementType = "GUID"
	IdElementDateTime     IdElementType = "DATETIME"
	IdElementSequence     IdElementType = "SEQUENCE"
)

// Valid checks if the element type is a known variant
func (t IdElementType) Valid() bool {
	switch t {
	case IdElementFixedText, IdElementRandom20Bit, IdElementRandom32Bit,
		IdElementRandom6Digit, IdElementRandom9Digit, IdElementGuid,
		IdElementDateTime, IdElementSequence:
		return true
	default:
		return false
	}
}

// IdElement is one ordered unit of a custom id format. Only the fields
// relevant to the tagged type are meaningful; the rest stay nil.
type IdElement struct {
	Type         IdElementType `json:"type"`
	Value        *string       `json:"value,omitempty"`
	Format       *string       `json:"format,omitempty"`
	LeadingZeros *bool         `json:"leadingZeros,omitempty"`
	Separator    *string       `json:"separator,omitempty"`
	SequenceName *string       `json:"sequenceName,omitempty"`
}

// IdFormatSchema is the ordered element list plus an optional length cap.
// It is persisted as opaque JSONB; structural invariants (exactly one
// sequence element) are validated at allocation time, not at save time.
type IdFormatSchema struct {
	MaxLength *int        `json:"maxLength,omitempty"`
	Elements  []IdElement `json:"elements"`
}

// Value implements the driver.Valuer interface for IdFormatSchema
func (s IdFormatSchema) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface for IdFormatSchema
func (s *IdFormatSchema) Scan(value any) error {
	if value == nil {
		*s = IdFormatSchema{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into IdFormatSchema", value)
	}

	return json.Unmarshal(bytes, s)
}

// SequenceElement returns the first sequence element of the schema, or nil
func (s IdFormatSchema) SequenceElement() *IdElement {
	for i := range s.Elements {
		if s.Elements[i].Type == IdElementSequence {
			return &s.Elements[i]
		}
	}
	return nil
}

// SequenceElementCount counts the sequence elements of the schema
func (s IdFormatSchema) SequenceElementCount() int {
	n := 0
	for _, e := range s.Elements {
		if e.Type == IdElementSequence {
			n++
		}
	}
	return n
}

// DefaultScopeKey is the counter namespace used when a sequence element
// does not name its own scope.
const DefaultScopeKey = "default"

// ScopeKey returns the counter namespace of a sequence element
func (e IdElement) ScopeKey() string {
	if e.SequenceName != nil && *e.SequenceName != "" {
		return *e.SequenceName
	}
	return DefaultScopeKey
}

// DefaultIdFormatSchema is the schema implicitly attached to new inventories:
// a date stamp and a zero-padded sequence, readable and collision free.
func DefaultIdFormatSchema() IdFormatSchema {
	dash := "-"
	format := "YYYYMMDD"
	zeros := true
	return IdFormatSchema{
		Elements: []IdElement{
			{Type: IdElementDateTime, Format: &format, Separator: &dash},
			{Type: IdElementSequence, LeadingZeros: &zeros},
		},
	}
}

// GuidFallbackSchema is used when an inventory has no stored format row
func GuidFallbackSchema() IdFormatSchema {
	return IdFormatSchema{
		Elements: []IdElement{{Type: IdElementGuid}},
	}
}

// InventoryIdFormat stores the custom id format of one inventory.
// It is a versioned aggregate; replacing the schema requires the current version.
type InventoryIdFormat struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	InventoryID uint           `gorm:"not null;uniqueIndex:uk_inventory_id_formats_inventory_id" json:"inventory_id"`
	Schema      IdFormatSchema `gorm:"type:jsonb;not null" json:"schema"`
	Version     int            `gorm:"not null;default:1" json:"version"`
	CreatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Inventory *Inventory `gorm:"foreignKey:InventoryID;references:ID" json:"-"`
}

func (InventoryIdFormat) TableName() string {
	return "inventory_id_formats"
}

// InventoryIdFormatFilter represents filter criteria for id format queries
type InventoryIdFormatFilter struct {
	ID          *uint
	InventoryID *uint
}
