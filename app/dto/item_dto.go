package dto

// ItemDTO represents one inventory item returned by the API
type ItemDTO struct {
	ID          uint   `json:"id" example:"42"`
	UUID        string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	InventoryID uint   `json:"inventory_id" example:"7"`
	CustomID    string `json:"custom_id" example:"INV-20250115-000042"`
	CreatedByID uint   `json:"created_by_id" example:"123"`
	Version     int    `json:"version" example:"1"`

	Text1 *string  `json:"text1,omitempty"`
	Text2 *string  `json:"text2,omitempty"`
	Text3 *string  `json:"text3,omitempty"`
	Long1 *string  `json:"long1,omitempty"`
	Long2 *string  `json:"long2,omitempty"`
	Long3 *string  `json:"long3,omitempty"`
	Num1  *float64 `json:"num1,omitempty"`
	Num2  *float64 `json:"num2,omitempty"`
	Num3  *float64 `json:"num3,omitempty"`
	Link1 *string  `json:"link1,omitempty"`
	Link2 *string  `json:"link2,omitempty"`
	Link3 *string  `json:"link3,omitempty"`
	Bool1 *bool    `json:"bool1,omitempty"`
	Bool2 *bool    `json:"bool2,omitempty"`
	Bool3 *bool    `json:"bool3,omitempty"`

	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt string `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// CreateItemRequest represents the request payload for item creation.
// The custom id is allocated server-side and cannot be supplied.
type CreateItemRequest struct {
	InventoryUUID string `json:"inventory_uuid" validate:"required,uuid4"`

	Text1 *string  `json:"text1,omitempty" validate:"omitempty,max=255"`
	Text2 *string  `json:"text2,omitempty" validate:"omitempty,max=255"`
	Text3 *string  `json:"text3,omitempty" validate:"omitempty,max=255"`
	Long1 *string  `json:"long1,omitempty"`
	Long2 *string  `json:"long2,omitempty"`
	Long3 *string  `json:"long3,omitempty"`
	Num1  *float64 `json:"num1,omitempty"`
	Num2  *float64 `json:"num2,omitempty"`
	Num3  *float64 `json:"num3,omitempty"`
	Link1 *string  `json:"link1,omitempty" validate:"omitempty,max=2048"`
	Link2 *string  `json:"link2,omitempty" validate:"omitempty,max=2048"`
	Link3 *string  `json:"link3,omitempty" validate:"omitempty,max=2048"`
	Bool1 *bool    `json:"bool1,omitempty"`
	Bool2 *bool    `json:"bool2,omitempty"`
	Bool3 *bool    `json:"bool3,omitempty"`
}

// UpdateItemRequest represents a version-guarded item update
type UpdateItemRequest struct {
	InventoryUUID string `json:"inventory_uuid" validate:"required,uuid4"`
	ItemID        uint   `json:"item_id" validate:"required"`
	Version       int    `json:"version" validate:"required,min=1"`

	Text1 *string  `json:"text1,omitempty" validate:"omitempty,max=255"`
	Text2 *string  `json:"text2,omitempty" validate:"omitempty,max=255"`
	Text3 *string  `json:"text3,omitempty" validate:"omitempty,max=255"`
	Long1 *string  `json:"long1,omitempty"`
	Long2 *string  `json:"long2,omitempty"`
	Long3 *string  `json:"long3,omitempty"`
	Num1  *float64 `json:"num1,omitempty"`
	Num2  *float64 `json:"num2,omitempty"`
	Num3  *float64 `json:"num3,omitempty"`
	Link1 *string  `json:"link1,omitempty" validate:"omitempty,max=2048"`
	Link2 *string  `json:"link2,omitempty" validate:"omitempty,max=2048"`
	Link3 *string  `json:"link3,omitempty" validate:"omitempty,max=2048"`
	Bool1 *bool    `json:"bool1,omitempty"`
	Bool2 *bool    `json:"bool2,omitempty"`
	Bool3 *bool    `json:"bool3,omitempty"`
}

// ItemResponse wraps a single item
type ItemResponse struct {
	Item ItemDTO `json:"item"`
}

// ListItemsRequest represents the query for listing items of an inventory
type ListItemsRequest struct {
	InventoryUUID string  `json:"inventory_uuid" validate:"required,uuid4"`
	Page          int     `json:"page" validate:"omitempty,min=1"`
	PageSize      int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Search        *string `json:"search,omitempty" validate:"omitempty,max=255"`
}

// ListItemsResponse represents a page of items
type ListItemsResponse struct {
	Items    []ItemDTO `json:"items"`
	Total    int64     `json:"total" example:"135"`
	Page     int       `json:"page" example:"1"`
	PageSize int       `json:"page_size" example:"20"`
}

// ItemVersionRef identifies one item together with its expected version
type ItemVersionRef struct {
	ID      uint `json:"id" validate:"required"`
	Version int  `json:"version" validate:"required,min=1"`
}

// DeleteItemsRequest represents a bulk version-guarded item deletion
type DeleteItemsRequest struct {
	InventoryUUID string           `json:"inventory_uuid" validate:"required,uuid4"`
	Items         []ItemVersionRef `json:"items" validate:"required,min=1,dive"`
}

// BulkItemResult partitions a bulk deletion into deleted and skipped ids;
// the sets are disjoint and together cover the request
type BulkItemResult struct {
	DeletedIDs []uint `json:"deleted_ids"`
	SkippedIDs []uint `json:"skipped_ids"`
}

// PreviewCustomIdResponse carries the forecast of the next custom id
type PreviewCustomIdResponse struct {
	CustomID string `json:"custom_id" example:"20250115-000043"`
}
