package dto

// ListUsersRequest represents the admin query for listing platform users
type ListUsersRequest struct {
	Page     int     `json:"page" validate:"omitempty,min=1"`
	PageSize int     `json:"page_size" validate:"omitempty,min=1,max=100"`
	Search   *string `json:"search,omitempty" validate:"omitempty,max=255"`
	SortBy   string  `json:"sort_by" validate:"omitempty,oneof=name email role status createdAt created_at"`
	Order    string  `json:"order" validate:"omitempty,oneof=asc desc"`
}

// ListUsersResponse represents a page of users
type ListUsersResponse struct {
	Users    []UserDTO `json:"users"`
	Total    int64     `json:"total" example:"250"`
	Page     int       `json:"page" example:"1"`
	PageSize int       `json:"page_size" example:"20"`
}

// UserVersionRef identifies one user together with their expected version
type UserVersionRef struct {
	ID      uint `json:"id" validate:"required"`
	Version int  `json:"version" validate:"required,min=1"`
}

// BulkUserUpdateRequest represents a bulk version-guarded status or role change
type BulkUserUpdateRequest struct {
	Users []UserVersionRef `json:"users" validate:"required,min=1,dive"`
}

// BulkUserResult reports the outcome of a bulk user mutation. UpdatedIDs and
// SkippedIDs are disjoint and together cover the requested ids; skips combine
// policy protection, missing rows, stale versions, and already-in-state targets.
type BulkUserResult struct {
	Requested  int    `json:"requested" example:"5"`
	Updated    int    `json:"updated" example:"2"`
	UpdatedIDs []uint `json:"updated_ids"`
	Skipped    int    `json:"skipped" example:"3"`
	SkippedIDs []uint `json:"skipped_ids"`
	Message    string `json:"message"`
}

// RemoveUsersRequest represents a bulk hard deletion of users
type RemoveUsersRequest struct {
	IDs []uint `json:"ids" validate:"required,min=1"`
}

// RemoveUsersResult reports the outcome of a bulk user removal
type RemoveUsersResult struct {
	Deleted    int64  `json:"deleted" example:"2"`
	Skipped    int    `json:"skipped" example:"1"`
	SkippedIDs []uint `json:"skipped_ids"`
}
