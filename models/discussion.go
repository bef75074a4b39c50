package models

import (
	"time"
)

// DiscussionPost is one message on an inventory's discussion board. Posts are
// readable by anyone who can see the inventory; any authenticated user may
// write one.
type DiscussionPost struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	InventoryID uint   `gorm:"not null;index:idx_discussion_posts_inventory_id" json:"inventory_id"`
	AuthorID    uint   `gorm:"not null;index:idx_discussion_posts_author_id" json:"author_id"`
	TextMD      string `gorm:"column:text_md;type:text;not null" json:"text_md"`

	CreatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_discussion_posts_created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`

	// Relations
	Inventory *Inventory `gorm:"foreignKey:InventoryID;references:ID" json:"-"`
	Author    *User      `gorm:"foreignKey:AuthorID;references:ID" json:"author,omitempty"`
}

func (DiscussionPost) TableName() string {
	return "discussion_posts"
}

// DiscussionPostFilter represents filter criteria for discussion post queries
type DiscussionPostFilter struct {
	ID            *uint
	InventoryID   *uint
	AuthorID      *uint
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}
