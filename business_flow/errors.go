// Package businessflow contains the core business logic and use cases for inventory workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// User-related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrIncorrectPassword  = errors.New("incorrect password")
	ErrEmailAlreadyExists = errors.New("email already exists")

	// Inventory-related errors
	ErrInventoryNotFound     = errors.New("inventory not found")
	ErrInventoryAccessDenied = errors.New("inventory access denied")
	ErrCategoryNotFound      = errors.New("category not found")
	ErrInventoryNameRequired = errors.New("inventory name is required")

	// Item-related errors
	ErrItemNotFound        = errors.New("item not found")
	ErrDuplicateCustomId   = errors.New("custom id already exists in this inventory")
	ErrCustomIdImmutable   = errors.New("custom id cannot be changed")
	ErrIdAllocationRetries = errors.New("exhausted custom id allocation attempts")

	// Version discipline errors
	ErrVersionConflict = errors.New("stale version")

	// Custom id format errors
	ErrIdFormatSequenceCount = errors.New("id format must contain exactly one sequence element")
	ErrIdFormatEmptyElements = errors.New("id format must contain at least one element")
	ErrIdFormatUnknownType   = errors.New("id format contains an unknown element type")
	ErrGeneratedIdTooLong    = errors.New("generated id exceeds the configured max length")

	// Discussion errors
	ErrDiscussionPostNotFound = errors.New("discussion post not found")

	// Access grant errors
	ErrOwnerRoleNotAssignable = errors.New("owner role cannot be granted explicitly")
	ErrGrantUserNotFound      = errors.New("grant target user not found")
	ErrGrantNotFound          = errors.New("access grant not found")

	// Admin bulk operation errors
	ErrNoUsersSelected     = errors.New("no users selected")
	ErrCannotTargetSelf    = errors.New("operation cannot target the acting admin")
	ErrProtectedUser       = errors.New("user is protected from this operation")
	ErrOperationNotAllowed = errors.New("operation not allowed")

	// Filter errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsAccountBlocked(err error) bool {
	return errors.Is(err, ErrAccountBlocked)
}

func IsIncorrectPassword(err error) bool {
	return errors.Is(err, ErrIncorrectPassword)
}

func IsEmailAlreadyExists(err error) bool {
	return errors.Is(err, ErrEmailAlreadyExists)
}

func IsInventoryNotFound(err error) bool {
	return errors.Is(err, ErrInventoryNotFound)
}

func IsInventoryAccessDenied(err error) bool {
	return errors.Is(err, ErrInventoryAccessDenied)
}

func IsItemNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}

func IsDuplicateCustomId(err error) bool {
	return errors.Is(err, ErrDuplicateCustomId)
}

func IsIdAllocationRetries(err error) bool {
	return errors.Is(err, ErrIdAllocationRetries)
}

func IsDiscussionPostNotFound(err error) bool {
	return errors.Is(err, ErrDiscussionPostNotFound)
}

func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}

func IsIdFormatInvalid(err error) bool {
	return errors.Is(err, ErrIdFormatSequenceCount) ||
		errors.Is(err, ErrIdFormatEmptyElements) ||
		errors.Is(err, ErrIdFormatUnknownType)
}

func IsGeneratedIdTooLong(err error) bool {
	return errors.Is(err, ErrGeneratedIdTooLong)
}

func IsOwnerRoleNotAssignable(err error) bool {
	return errors.Is(err, ErrOwnerRoleNotAssignable)
}
