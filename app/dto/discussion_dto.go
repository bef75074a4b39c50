package dto

// DiscussionPostDTO represents one discussion board message
type DiscussionPostDTO struct {
	ID          uint   `json:"id" example:"17"`
	InventoryID uint   `json:"inventory_id" example:"7"`
	AuthorID    uint   `json:"author_id" example:"123"`
	AuthorName  string `json:"author_name" example:"Jane Doe"`
	Text        string `json:"text_md" example:"Has anyone catalogued the 1970s batch yet?"`
	CreatedAt   string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// CreateDiscussionPostRequest represents a new discussion board message
type CreateDiscussionPostRequest struct {
	InventoryUUID string `json:"inventory_uuid" validate:"required,uuid4"`
	Text          string `json:"text_md" validate:"required,max=10000" example:"Has anyone catalogued the 1970s batch yet?"`
}

// ListDiscussionPostsRequest represents the query for one page of a board
type ListDiscussionPostsRequest struct {
	InventoryUUID string `json:"inventory_uuid" validate:"required,uuid4"`
	Page          int    `json:"page" validate:"omitempty,min=1"`
	PageSize      int    `json:"page_size" validate:"omitempty,min=1,max=100"`
	Order         string `json:"order" validate:"omitempty,oneof=asc desc" example:"desc"`
}

// ListDiscussionPostsResponse represents a page of discussion posts
type ListDiscussionPostsResponse struct {
	Posts    []DiscussionPostDTO `json:"posts"`
	Total    int64               `json:"total" example:"42"`
	Page     int                 `json:"page" example:"1"`
	PageSize int                 `json:"page_size" example:"20"`
	HasMore  bool                `json:"has_more" example:"true"`
}

// DiscussionPostResponse wraps a single discussion post
type DiscussionPostResponse struct {
	Post DiscussionPostDTO `json:"post"`
}
