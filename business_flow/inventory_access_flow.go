package businessflow

import (
	"context"
	"encoding/json"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	"github.com/inventara/inventara/utils"
	"gorm.io/gorm"
)

// AccessRoleResolver computes the effective role a user holds over an
// inventory and answers the derived authorization predicates. Resolution is
// read-only; grant management lives on the same flow because both sides share
// the precedence rules.
type AccessRoleResolver interface {
	// GetInventoryRole resolves the effective role by precedence: anonymous
	// viewer, platform admin, ownership, explicit grant, public default,
	// else viewer. Only inventory non-existence is an error.
	GetInventoryRole(ctx context.Context, inventoryID uint, user *models.User) (models.InventoryRole, error)
	// CanUserEditItems reports whether the user may write items. Resolution
	// failures collapse to false, never to an error.
	CanUserEditItems(ctx context.Context, inventoryID uint, user *models.User) bool
	// CanManageInventory reports whether the user may delete or reconfigure
	// the inventory. Fail-closed like CanUserEditItems.
	CanManageInventory(ctx context.Context, inventoryID uint, user *models.User) bool
}

// InventoryAccessFlow bundles role resolution with explicit grant management
type InventoryAccessFlow interface {
	AccessRoleResolver
	ListGrants(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.ListAccessGrantsResponse, error)
	GrantAccess(ctx context.Context, actor *models.User, req *dto.GrantAccessRequest, metadata *ClientMetadata) (*dto.AccessGrantResponse, error)
	RevokeAccess(ctx context.Context, actor *models.User, req *dto.RevokeAccessRequest, metadata *ClientMetadata) error
}

type InventoryAccessFlowImpl struct {
	inventoryRepo repository.InventoryRepository
	accessRepo    repository.InventoryAccessRepository
	userRepo      repository.UserRepository
	auditRepo     repository.AuditLogRepository
	db            *gorm.DB
}

func NewInventoryAccessFlow(
	inventoryRepo repository.InventoryRepository,
	accessRepo repository.InventoryAccessRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditLogRepository,
	db *gorm.DB,
) InventoryAccessFlow {
	return &InventoryAccessFlowImpl{
		inventoryRepo: inventoryRepo,
		accessRepo:    accessRepo,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		db:            db,
	}
}

func (f *InventoryAccessFlowImpl) GetInventoryRole(ctx context.Context, inventoryID uint, user *models.User) (models.InventoryRole, error) {
	if user == nil || user.ID == 0 {
		return models.InventoryRoleViewer, nil
	}
	if user.IsAdmin() {
		return models.InventoryRoleOwner, nil
	}

	inventory, err := f.inventoryRepo.ByID(ctx, inventoryID)
	if err != nil {
		return "", err
	}
	if inventory == nil {
		return "", ErrInventoryNotFound
	}

	if user.ID == inventory.OwnerID {
		return models.InventoryRoleOwner, nil
	}

	grant, err := f.accessRepo.ByInventoryAndUser(ctx, inventoryID, user.ID)
	if err != nil {
		return "", err
	}
	if grant != nil {
		return grant.InventoryRole, nil
	}

	// Public inventories default to collaborative editing, not mere viewing
	if utils.IsTrue(inventory.IsPublic) {
		return models.InventoryRoleEditor, nil
	}

	return models.InventoryRoleViewer, nil
}

func (f *InventoryAccessFlowImpl) CanUserEditItems(ctx context.Context, inventoryID uint, user *models.User) bool {
	role, err := f.GetInventoryRole(ctx, inventoryID, user)
	if err != nil {
		return false
	}
	return models.IsActionAllowed(role, models.ActionWrite)
}

func (f *InventoryAccessFlowImpl) CanManageInventory(ctx context.Context, inventoryID uint, user *models.User) bool {
	role, err := f.GetInventoryRole(ctx, inventoryID, user)
	if err != nil {
		return false
	}
	return models.IsActionAllowed(role, models.ActionDelete)
}

func (f *InventoryAccessFlowImpl) ListGrants(ctx context.Context, actor *models.User, inventoryUUID string) (*dto.ListAccessGrantsResponse, error) {
	inventory, err := f.requireInventory(ctx, inventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.CanManageInventory(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot manage this inventory", ErrInventoryAccessDenied)
	}

	grants, err := f.accessRepo.ListByInventory(ctx, inventory.ID)
	if err != nil {
		return nil, NewBusinessError("LIST_ACCESS_GRANTS_FAILED", "Failed to list access grants", err)
	}

	resp := &dto.ListAccessGrantsResponse{Grants: make([]dto.AccessGrantDTO, 0, len(grants))}
	for _, grant := range grants {
		resp.Grants = append(resp.Grants, ToAccessGrantDTO(*grant))
	}
	return resp, nil
}

// GrantAccess upserts an explicit role for a user on an inventory. The write
// runs in a transaction that re-checks inventory existence so a grant cannot
// land on a just-deleted inventory. An explicit OWNER grant is rejected:
// ownership is a property of the inventory row, not of the grant table.
func (f *InventoryAccessFlowImpl) GrantAccess(ctx context.Context, actor *models.User, req *dto.GrantAccessRequest, metadata *ClientMetadata) (*dto.AccessGrantResponse, error) {
	role := models.InventoryRole(req.Role)
	if !role.Valid() {
		return nil, NewBusinessError("VALIDATION_ERROR", "Unknown inventory role", nil)
	}
	if role == models.InventoryRoleOwner {
		return nil, NewBusinessError("OWNER_NOT_ASSIGNABLE", "Owner role cannot be granted explicitly", ErrOwnerRoleNotAssignable)
	}

	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return nil, err
	}
	if !f.CanManageInventory(ctx, inventory.ID, actor) {
		return nil, NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot manage this inventory", ErrInventoryAccessDenied)
	}

	target, err := f.userRepo.ByID(ctx, req.UserID)
	if err != nil {
		return nil, NewBusinessError("GRANT_ACCESS_FAILED", "Failed to fetch target user", err)
	}
	if target == nil {
		return nil, NewBusinessError("USER_NOT_FOUND", "Grant target user not found", ErrGrantUserNotFound)
	}
	if target.ID == inventory.OwnerID {
		return nil, NewBusinessError("OWNER_NOT_ASSIGNABLE", "The owner already holds every permission", ErrOwnerRoleNotAssignable)
	}

	access := &models.InventoryAccess{
		InventoryID:   inventory.ID,
		UserID:        target.ID,
		InventoryRole: role,
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		current, err := f.inventoryRepo.ByID(txCtx, inventory.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrInventoryNotFound
		}
		if err := f.accessRepo.Upsert(txCtx, access); err != nil {
			return err
		}
		f.writeAuditLog(txCtx, actor, models.AuditActionAccessGranted, metadata, map[string]any{
			"inventory_id": inventory.ID,
			"user_id":      target.ID,
			"role":         string(role),
		})
		return nil
	})
	if err != nil {
		if IsInventoryNotFound(err) {
			return nil, NewBusinessError("INVENTORY_NOT_FOUND", "Inventory not found", err)
		}
		return nil, NewBusinessError("GRANT_ACCESS_FAILED", "Failed to grant access", err)
	}

	access.User = target
	out := ToAccessGrantDTO(*access)
	return &dto.AccessGrantResponse{Grant: out}, nil
}

func (f *InventoryAccessFlowImpl) RevokeAccess(ctx context.Context, actor *models.User, req *dto.RevokeAccessRequest, metadata *ClientMetadata) error {
	inventory, err := f.requireInventory(ctx, req.InventoryUUID)
	if err != nil {
		return err
	}
	if !f.CanManageInventory(ctx, inventory.ID, actor) {
		return NewBusinessError("INVENTORY_ACCESS_DENIED", "You cannot manage this inventory", ErrInventoryAccessDenied)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		affected, err := f.accessRepo.Delete(txCtx, inventory.ID, req.UserID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrGrantNotFound
		}
		f.writeAuditLog(txCtx, actor, models.AuditActionAccessRevoked, metadata, map[string]any{
			"inventory_id": inventory.ID,
			"user_id":      req.UserID,
		})
		return nil
	})
	if err != nil {
		if err == ErrGrantNotFound {
			return NewBusinessError("GRANT_NOT_FOUND", "Access grant not found", err)
		}
		return NewBusinessError("REVOKE_ACCESS_FAILED", "Failed to revoke access", err)
	}

	return nil
}

func (f *InventoryAccessFlowImpl) requireInventory(ctx context.Context, inventoryUUID string) (*models.Inventory, error) {
	inventory, err := f.inventoryRepo.ByUUID(ctx, inventoryUUID)
	if err != nil {
		return nil, NewBusinessError("INVENTORY_FETCH_FAILED", "Failed to fetch inventory", err)
	}
	if inventory == nil {
		return nil, NewBusinessError("INVENTORY_NOT_FOUND", "Inventory not found", ErrInventoryNotFound)
	}
	return inventory, nil
}

// writeAuditLog records the action; audit failures never fail the operation
func (f *InventoryAccessFlowImpl) writeAuditLog(ctx context.Context, actor *models.User, action string, metadata *ClientMetadata, details map[string]any) {
	entry := &models.AuditLog{
		Action:  action,
		Success: utils.ToPtr(true),
	}
	if actor != nil {
		entry.UserID = &actor.ID
	}
	if metadata != nil {
		if metadata.IPAddress != "" {
			entry.IPAddress = &metadata.IPAddress
		}
		if metadata.UserAgent != "" {
			entry.UserAgent = &metadata.UserAgent
		}
		if metadata.RequestID != "" {
			entry.RequestID = &metadata.RequestID
		}
	}
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			entry.Metadata = raw
		}
	}
	_ = f.auditRepo.Save(ctx, entry)
}
