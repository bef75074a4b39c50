package models

import (
	"database/sql/driver"
	"fmt"
)

// InventoryRole represents the effective access level a user holds over an inventory
type InventoryRole string

const (
	InventoryRoleViewer InventoryRole = "VIEWER"
	InventoryRoleEditor InventoryRole = "EDITOR"
	InventoryRoleOwner  InventoryRole = "OWNER"
)

func (r InventoryRole) String() string {
	return string(r)
}

// Valid checks if the role is valid
func (r InventoryRole) Valid() bool {
	switch r {
	case InventoryRoleViewer, InventoryRoleEditor, InventoryRoleOwner:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for InventoryRole
func (r *InventoryRole) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = InventoryRole(v)
	case []byte:
		*r = InventoryRole(string(v))
	default:
		return fmt.Errorf("cannot scan %T into InventoryRole", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for InventoryRole
func (r InventoryRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid InventoryRole: %s", r)
	}
	return string(r), nil
}

// InventoryAction is an operation class gated by the permission matrix
type InventoryAction string

const (
	ActionRead   InventoryAction = "read"
	ActionWrite  InventoryAction = "write"
	ActionDelete InventoryAction = "delete"
)

// inventoryPermissions is the fixed role -> allowed actions matrix. The matrix
// is monotone: everything a viewer may do an editor may do, and everything an
// editor may do the owner may do.
var inventoryPermissions = map[InventoryRole]map[InventoryAction]bool{
	InventoryRoleViewer: {ActionRead: true, ActionWrite: false, ActionDelete: false},
	InventoryRoleEditor: {ActionRead: true, ActionWrite: true, ActionDelete: false},
	InventoryRoleOwner:  {ActionRead: true, ActionWrite: true, ActionDelete: true},
}

// IsActionAllowed reports whether the given role permits the given action.
// Unknown roles and unknown actions are denied.
func IsActionAllowed(role InventoryRole, action InventoryAction) bool {
	allowed, ok := inventoryPermissions[role]
	if !ok {
		return false
	}
	return allowed[action]
}
