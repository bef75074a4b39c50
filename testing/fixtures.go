package testing

import (
	"encoding/base64"
	"fmt"
	"math/rand"

	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/utils"
	"golang.org/x/crypto/bcrypt"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestUser creates a test user with the given role
func (tf *TestFixtures) CreateTestUser(role models.UserRole) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("TestPass123!"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// create random number containing exactly 9 digits so emails never collide
	randomDigits := fmt.Sprintf("%09d", rand.Intn(900000000)+100000000)

	user := &models.User{
		Name:         "John Doe",
		Email:        fmt.Sprintf("john.doe.%s@example.com", randomDigits),
		PasswordHash: string(hashedPassword),
		Role:         role,
		Status:       models.UserStatusActive,
	}

	if err := tf.DB.DB.Create(user).Error; err != nil {
		return nil, fmt.Errorf("failed to create test user: %w", err)
	}

	return user, nil
}

// CreateTestAdmin creates a test user carrying the ADMIN role
func (tf *TestFixtures) CreateTestAdmin() (*models.User, error) {
	return tf.CreateTestUser(models.UserRoleAdmin)
}

// CreateBlockedTestUser creates a test user whose status is BLOCKED
func (tf *TestFixtures) CreateBlockedTestUser() (*models.User, error) {
	user, err := tf.CreateTestUser(models.UserRoleUser)
	if err != nil {
		return nil, err
	}

	user.Status = models.UserStatusBlocked
	if err := tf.DB.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to block test user: %w", err)
	}

	return user, nil
}

// CreateTestCategory creates a category with a unique name
func (tf *TestFixtures) CreateTestCategory() (*models.Category, error) {
	category := &models.Category{
		Name: fmt.Sprintf("Category %07d", rand.Intn(10000000)),
	}

	if err := tf.DB.DB.Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create test category: %w", err)
	}

	return category, nil
}

// CreateTestInventory creates an inventory owned by the given user
func (tf *TestFixtures) CreateTestInventory(ownerID uint, isPublic bool) (*models.Inventory, error) {
	description := "Inventory used by automated tests"

	inventory := &models.Inventory{
		Name:        fmt.Sprintf("Test Inventory %07d", rand.Intn(10000000)),
		Description: &description,
		OwnerID:     ownerID,
		IsPublic:    utils.ToPtr(isPublic),
	}

	if err := tf.DB.DB.Create(inventory).Error; err != nil {
		return nil, fmt.Errorf("failed to create test inventory: %w", err)
	}

	return inventory, nil
}

// CreateTestIdFormat stores the given custom id schema for an inventory
func (tf *TestFixtures) CreateTestIdFormat(inventoryID uint, schema models.IdFormatSchema) (*models.InventoryIdFormat, error) {
	format := &models.InventoryIdFormat{
		InventoryID: inventoryID,
		Schema:      schema,
		Version:     1,
	}

	if err := tf.DB.DB.Create(format).Error; err != nil {
		return nil, fmt.Errorf("failed to create test id format: %w", err)
	}

	return format, nil
}

// CreateTestFieldSet stores a field configuration for an inventory
func (tf *TestFixtures) CreateTestFieldSet(inventoryID uint, definition models.FieldSetDefinition) (*models.InventoryFieldSet, error) {
	fieldSet := &models.InventoryFieldSet{
		InventoryID: inventoryID,
		Definition:  definition,
		Version:     1,
	}

	if err := tf.DB.DB.Create(fieldSet).Error; err != nil {
		return nil, fmt.Errorf("failed to create test field set: %w", err)
	}

	return fieldSet, nil
}

// CreateTestItem creates an item with an explicit custom id, bypassing the allocator
func (tf *TestFixtures) CreateTestItem(inventoryID, createdByID uint, customID string) (*models.Item, error) {
	item := &models.Item{
		InventoryID: inventoryID,
		CustomID:    customID,
		CreatedByID: createdByID,
	}

	if err := tf.DB.DB.Create(item).Error; err != nil {
		return nil, fmt.Errorf("failed to create test item: %w", err)
	}

	return item, nil
}

// CreateTestAccessGrant records an explicit inventory role for a user
func (tf *TestFixtures) CreateTestAccessGrant(inventoryID, userID uint, role models.InventoryRole) (*models.InventoryAccess, error) {
	grant := &models.InventoryAccess{
		InventoryID:   inventoryID,
		UserID:        userID,
		InventoryRole: role,
	}

	if err := tf.DB.DB.Create(grant).Error; err != nil {
		return nil, fmt.Errorf("failed to create test access grant: %w", err)
	}

	return grant, nil
}

// GenerateSecureToken returns a random URL-safe token of the given byte length
func GenerateSecureToken(length int) (string, error) {
	b := make([]byte, length)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
