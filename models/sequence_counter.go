package models

import "time"

// SequenceCounter is the durable high-water mark for one counter scope of an
// inventory. Rows are created lazily on first allocation and only ever move
// forward; the read-modify-write happens inside the allocating transaction.
type SequenceCounter struct {
	InventoryID uint      `gorm:"primaryKey;autoIncrement:false" json:"inventory_id"`
	ScopeKey    string    `gorm:"primaryKey;size:64" json:"scope_key"`
	Value       int64     `gorm:"not null;default:0" json:"value"`
	CreatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"created_at"`
	UpdatedAt   time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
}

func (SequenceCounter) TableName() string { return "sequence_counters" }

// SequenceCounterFilter represents filter criteria for counter queries
type SequenceCounterFilter struct {
	InventoryID *uint
	ScopeKey    *string
}
