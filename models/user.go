// Package models contains domain entities and business models for the inventory platform
package models

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserRole represents the global platform role of a user
type UserRole string

const (
	UserRoleUser  UserRole = "USER"
	UserRoleAdmin UserRole = "ADMIN"
)

func (r UserRole) String() string {
	return string(r)
}

// Valid checks if the role is valid
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleUser, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for UserRole
func (r *UserRole) Scan(value any) error {
	if value == nil {
		*r = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*r = UserRole(v)
	case []byte:
		*r = UserRole(string(v))
	default:
		return fmt.Errorf("cannot scan %T into UserRole", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for UserRole
func (r UserRole) Value() (driver.Value, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("invalid UserRole: %s", r)
	}
	return string(r), nil
}

// UserStatus represents the account status of a user
type UserStatus string

const (
	UserStatusActive  UserStatus = "ACTIVE"
	UserStatusBlocked UserStatus = "BLOCKED"
)

func (s UserStatus) String() string {
	return string(s)
}

// Valid checks if the status is valid
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusBlocked:
		return true
	default:
		return false
	}
}

// Scan implements the sql.Scanner interface for UserStatus
func (s *UserStatus) Scan(value any) error {
	if value == nil {
		*s = ""
		return nil
	}

	switch v := value.(type) {
	case string:
		*s = UserStatus(v)
	case []byte:
		*s = UserStatus(string(v))
	default:
		return fmt.Errorf("cannot scan %T into UserStatus", value)
	}

	return nil
}

// Value implements the driver.Valuer interface for UserStatus
func (s UserStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid UserStatus: %s", s)
	}
	return string(s), nil
}

// User represents a platform account. Users carry a version column; every
// profile/status/role mutation is a conditional update keyed on (id, version).
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UUID         uuid.UUID  `gorm:"type:uuid;not null;uniqueIndex:uk_users_uuid;index:idx_users_uuid" json:"uuid"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Email        string     `gorm:"size:255;not null;uniqueIndex:uk_users_email" json:"email"`
	PasswordHash string     `gorm:"size:255;not null" json:"-"` // Never serialize password hash
	Role         UserRole   `gorm:"type:user_role;not null;default:'USER';index:idx_users_role" json:"role"`
	Status       UserStatus `gorm:"type:user_status;not null;default:'ACTIVE';index:idx_users_status" json:"status"`
	Version      int        `gorm:"not null;default:1" json:"version"`

	CreatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC');index:idx_users_created_at" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"default:(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')" json:"updated_at"`
	LastLoginAt *time.Time `gorm:"index:idx_users_last_login_at" json:"last_login_at,omitempty"`

	// Relations
	Inventories []Inventory       `gorm:"foreignKey:OwnerID" json:"-"`
	Access      []InventoryAccess `gorm:"foreignKey:UserID" json:"-"`
	AuditLogs   []AuditLog        `gorm:"foreignKey:UserID" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// BeforeCreate is called before creating a new record
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.UUID == uuid.Nil {
		u.UUID = uuid.New()
	}
	if u.Role == "" {
		u.Role = UserRoleUser
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	if u.Version == 0 {
		u.Version = 1
	}
	return nil
}

func (u *User) IsAdmin() bool {
	return u.Role == UserRoleAdmin
}

func (u *User) IsBlocked() bool {
	return u.Status == UserStatusBlocked
}

// UserFilter represents filter criteria for user queries
type UserFilter struct {
	ID              *uint
	UUID            *uuid.UUID
	Name            *string
	Email           *string
	Role            *UserRole
	Status          *UserStatus
	Search          *string
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	LastLoginAfter  *time.Time
	LastLoginBefore *time.Time
}
