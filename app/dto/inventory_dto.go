package dto

import (
	"github.com/inventara/inventara/models"
)

// InventoryDTO represents one inventory returned by the API
type InventoryDTO struct {
	ID           uint     `json:"id" example:"7"`
	UUID         string   `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name         string   `json:"name" example:"Office Laptops"`
	Description  *string  `json:"description,omitempty"`
	ImageURL     *string  `json:"image_url,omitempty"`
	OwnerID      uint     `json:"owner_id" example:"123"`
	OwnerName    string   `json:"owner_name,omitempty" example:"John Doe"`
	CategoryID   *uint    `json:"category_id,omitempty"`
	CategoryName *string  `json:"category_name,omitempty"`
	IsPublic     bool     `json:"is_public" example:"false"`
	Tags         []string `json:"tags,omitempty" example:"hardware,laptops"`
	Version      int      `json:"version" example:"1"`
	CreatedAt    string   `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt    string   `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// CreateInventoryRequest represents the request payload for inventory creation
type CreateInventoryRequest struct {
	Name        string   `json:"name" validate:"required,min=1,max=255" example:"Office Laptops"`
	Description *string  `json:"description,omitempty"`
	ImageURL    *string  `json:"image_url,omitempty" validate:"omitempty,max=2048"`
	CategoryID  *uint    `json:"category_id,omitempty"`
	IsPublic    bool     `json:"is_public"`
	Tags        []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=255"`
}

// UpdateInventoryRequest represents a version-guarded inventory update
type UpdateInventoryRequest struct {
	InventoryUUID string    `json:"inventory_uuid" validate:"required,uuid4"`
	Version       int       `json:"version" validate:"required,min=1"`
	Name          *string   `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description   *string   `json:"description,omitempty"`
	ImageURL      *string   `json:"image_url,omitempty" validate:"omitempty,max=2048"`
	CategoryID    *uint     `json:"category_id,omitempty"`
	IsPublic      *bool     `json:"is_public,omitempty"`
	Tags          *[]string `json:"tags,omitempty" validate:"omitempty,max=20,dive,min=1,max=255"`
}

// InventoryResponse wraps a single inventory, optionally with the caller's
// resolved role on it
type InventoryResponse struct {
	Inventory     InventoryDTO `json:"inventory"`
	EffectiveRole string       `json:"effective_role,omitempty" example:"EDITOR"`
}

// ListInventoriesRequest represents the query for listing inventories
type ListInventoriesRequest struct {
	Page       int     `json:"page" validate:"omitempty,min=1"`
	PageSize   int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Search     *string `json:"search,omitempty" validate:"omitempty,max=255"`
	CategoryID *uint   `json:"category_id,omitempty"`
	OwnedOnly  bool    `json:"owned_only"`
	PublicOnly bool    `json:"public_only"`
}

// ListInventoriesResponse represents a page of inventories
type ListInventoriesResponse struct {
	Inventories []InventoryDTO `json:"inventories"`
	Total       int64          `json:"total" example:"12"`
	Page        int            `json:"page" example:"1"`
	PageSize    int            `json:"page_size" example:"20"`
}

// InventoryVersionRef identifies one inventory together with its expected version
type InventoryVersionRef struct {
	ID      uint `json:"id" validate:"required"`
	Version int  `json:"version" validate:"required,min=1"`
}

// DeleteInventoriesRequest represents a bulk version-guarded inventory deletion
type DeleteInventoriesRequest struct {
	Inventories []InventoryVersionRef `json:"inventories" validate:"required,min=1,dive"`
}

// BulkInventoryResult partitions a bulk deletion into deleted, version-skipped,
// and policy-skipped ids; the three sets are disjoint and cover the request
type BulkInventoryResult struct {
	DeletedIDs       []uint `json:"deleted_ids"`
	SkippedIDs       []uint `json:"skipped_ids"`
	PolicySkippedIDs []uint `json:"policy_skipped_ids"`
}

// IdFormatResponse carries an inventory's custom id format and its version
type IdFormatResponse struct {
	Schema  models.IdFormatSchema `json:"schema"`
	Version int                   `json:"version" example:"1"`
}

// ReplaceIdFormatRequest represents a version-guarded id format replacement.
// The schema is stored as submitted; structural problems surface on the next
// allocation.
type ReplaceIdFormatRequest struct {
	InventoryUUID string                `json:"inventory_uuid" validate:"required,uuid4"`
	Version       int                   `json:"version" validate:"omitempty,min=0"`
	Schema        models.IdFormatSchema `json:"schema" validate:"required"`
}

// FieldSetResponse carries an inventory's field configuration and its version
type FieldSetResponse struct {
	Definition models.FieldSetDefinition `json:"definition"`
	Version    int                       `json:"version" example:"1"`
}

// ReplaceFieldSetRequest represents a version-guarded field set replacement
type ReplaceFieldSetRequest struct {
	InventoryUUID string                    `json:"inventory_uuid" validate:"required,uuid4"`
	Version       int                       `json:"version" validate:"omitempty,min=0"`
	Definition    models.FieldSetDefinition `json:"definition" validate:"required"`
}

// CategoryDTO represents one inventory category
type CategoryDTO struct {
	ID   uint   `json:"id" example:"3"`
	Name string `json:"name" example:"Equipment"`
}

// ListCategoriesResponse lists all categories
type ListCategoriesResponse struct {
	Categories []CategoryDTO `json:"categories"`
}

// ListTagsRequest represents the query for tag autocomplete
type ListTagsRequest struct {
	Prefix string `json:"prefix" validate:"omitempty,max=255"`
	Limit  int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// ListTagsResponse lists tag names matching the query
type ListTagsResponse struct {
	Tags []string `json:"tags"`
}

// AccessGrantDTO represents one explicit access grant on an inventory
type AccessGrantDTO struct {
	InventoryID uint   `json:"inventory_id" example:"7"`
	UserID      uint   `json:"user_id" example:"123"`
	UserName    string `json:"user_name,omitempty" example:"John Doe"`
	UserEmail   string `json:"user_email,omitempty" example:"user@example.com"`
	Role        string `json:"role" example:"EDITOR"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// GrantAccessRequest represents an explicit role assignment on an inventory
type GrantAccessRequest struct {
	InventoryUUID string `json:"inventory_uuid" validate:"required,uuid4"`
	UserID        uint   `json:"user_id" validate:"required"`
	Role          string `json:"role" validate:"required,oneof=VIEWER EDITOR"`
}

// RevokeAccessRequest removes an explicit grant
type RevokeAccessRequest struct {
	InventoryUUID string `json:"inventory_uuid" validate:"required,uuid4"`
	UserID        uint   `json:"user_id" validate:"required"`
}

// AccessGrantResponse wraps a single grant
type AccessGrantResponse struct {
	Grant AccessGrantDTO `json:"grant"`
}

// ListAccessGrantsResponse lists the explicit grants of one inventory
type ListAccessGrantsResponse struct {
	Grants []AccessGrantDTO `json:"grants"`
}
