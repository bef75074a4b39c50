// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
)

const RequestIDKey = "X-Request-ID"

// ClientMetadata holds all client-related information for audit logging and session tracking
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// SetSessionID sets the session ID
func (cm *ClientMetadata) SetSessionID(sessionID string) {
	cm.SessionID = sessionID
}

// ToUserDTO converts a user model to UserDTO for API responses
func ToUserDTO(user models.User) dto.UserDTO {
	return dto.UserDTO{
		ID:        user.ID,
		UUID:      user.UUID.String(),
		Name:      user.Name,
		Email:     user.Email,
		Role:      string(user.Role),
		Status:    string(user.Status),
		Version:   user.Version,
		CreatedAt: user.CreatedAt.Format(time.RFC3339),
	}
}

// ToInventoryDTO converts an inventory model to InventoryDTO
func ToInventoryDTO(inv models.Inventory) dto.InventoryDTO {
	out := dto.InventoryDTO{
		ID:          inv.ID,
		UUID:        inv.UUID.String(),
		Name:        inv.Name,
		Description: inv.Description,
		ImageURL:    inv.ImageURL,
		OwnerID:     inv.OwnerID,
		CategoryID:  inv.CategoryID,
		IsPublic:    utils.IsTrue(inv.IsPublic),
		Version:     inv.Version,
		CreatedAt:   inv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   inv.UpdatedAt.Format(time.RFC3339),
	}
	if inv.Owner != nil {
		out.OwnerName = inv.Owner.Name
	}
	if inv.Category != nil {
		out.CategoryName = &inv.Category.Name
	}
	for _, tag := range inv.Tags {
		out.Tags = append(out.Tags, tag.Name)
	}
	return out
}

// ToItemDTO converts an item model to ItemDTO
func ToItemDTO(item models.Item) dto.ItemDTO {
	return dto.ItemDTO{
		ID:          item.ID,
		UUID:        item.UUID.String(),
		InventoryID: item.InventoryID,
		CustomID:    item.CustomID,
		CreatedByID: item.CreatedByID,
		Version:     item.Version,
		Text1:       item.Text1,
		Text2:       item.Text2,
		Text3:       item.Text3,
		Long1:       item.Long1,
		Long2:       item.Long2,
		Long3:       item.Long3,
		Num1:        item.Num1,
		Num2:        item.Num2,
		Num3:        item.Num3,
		Link1:       item.Link1,
		Link2:       item.Link2,
		Link3:       item.Link3,
		Bool1:       item.Bool1,
		Bool2:       item.Bool2,
		Bool3:       item.Bool3,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.Format(time.RFC3339),
	}
}

// ToDiscussionPostDTO converts a discussion post model to DiscussionPostDTO
func ToDiscussionPostDTO(post models.DiscussionPost) dto.DiscussionPostDTO {
	out := dto.DiscussionPostDTO{
		ID:          post.ID,
		InventoryID: post.InventoryID,
		AuthorID:    post.AuthorID,
		Text:        post.TextMD,
		CreatedAt:   post.CreatedAt.Format(time.RFC3339),
	}
	if post.Author != nil {
		out.AuthorName = post.Author.Name
	}
	return out
}

// ToAccessGrantDTO converts an explicit grant row to AccessGrantDTO
func ToAccessGrantDTO(access models.InventoryAccess) dto.AccessGrantDTO {
	out := dto.AccessGrantDTO{
		InventoryID: access.InventoryID,
		UserID:      access.UserID,
		Role:        string(access.InventoryRole),
		CreatedAt:   access.CreatedAt.Format(time.RFC3339),
	}
	if access.User != nil {
		out.UserName = access.User.Name
		out.UserEmail = access.User.Email
	}
	return out
}
