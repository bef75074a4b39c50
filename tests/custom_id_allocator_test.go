// Package tests contains integration test cases for the business flows,
// kept out of the flow packages to avoid circular imports with testing helpers
package tests

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/inventara/inventara/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAllocator(testDB *testingutil.TestDB) businessflow.CustomIdAllocator {
	return businessflow.NewCustomIdAllocator(
		repository.NewIdFormatRepository(testDB.DB),
		repository.NewSequenceCounterRepository(testDB.DB),
		repository.NewItemRepository(testDB.DB),
	)
}

func prefixedSequenceSchema(prefix string) models.IdFormatSchema {
	return models.IdFormatSchema{
		Elements: []models.IdElement{
			{Type: models.IdElementFixedText, Value: utils.ToPtr(prefix), Separator: utils.ToPtr("-")},
			{Type: models.IdElementSequence, LeadingZeros: utils.ToPtr(true)},
		},
	}
}

func TestCustomIdAllocatorGenerate(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		allocator := newAllocator(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SequentialWithoutGaps", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, prefixedSequenceSchema("INV"))
			require.NoError(t, err)

			for i := 1; i <= 3; i++ {
				generated, err := allocator.Generate(ctx, inventory.ID)
				require.NoError(t, err)
				assert.Equal(t, fmt.Sprintf("INV-%06d", i), generated)

				// Persist the item the way the item flow would, so the next
				// allocation sees it
				_, err = fixtures.CreateTestItem(inventory.ID, owner.ID, generated)
				require.NoError(t, err)
			}
		})

		t.Run("CountersAreIsolatedPerInventory", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			first, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			second, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(first.ID, prefixedSequenceSchema("A"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(second.ID, prefixedSequenceSchema("B"))
			require.NoError(t, err)

			generated, err := allocator.Generate(ctx, first.ID)
			require.NoError(t, err)
			assert.Equal(t, "A-000001", generated)

			generated, err = allocator.Generate(ctx, second.ID)
			require.NoError(t, err)
			assert.Equal(t, "B-000001", generated)
		})

		t.Run("ReconcilesAgainstExistingIds", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, prefixedSequenceSchema("INV"))
			require.NoError(t, err)

			// Items imported outside the allocator; the counter row does not exist yet
			_, err = fixtures.CreateTestItem(inventory.ID, owner.ID, "INV-000041")
			require.NoError(t, err)
			_, err = fixtures.CreateTestItem(inventory.ID, owner.ID, "INV-000017")
			require.NoError(t, err)

			generated, err := allocator.Generate(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, "INV-000042", generated)
		})

		t.Run("DateElementRendersUTC", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := models.IdFormatSchema{
				Elements: []models.IdElement{
					{Type: models.IdElementDateTime, Format: utils.ToPtr("YYYY"), Separator: utils.ToPtr("-")},
					{Type: models.IdElementSequence},
				},
			}
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			generated, err := allocator.Generate(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, time.Now().UTC().Format("2006")+"-1", generated)
		})

		t.Run("SequenceWithoutLeadingZeros", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := models.IdFormatSchema{
				Elements: []models.IdElement{
					{Type: models.IdElementFixedText, Value: utils.ToPtr("X"), Separator: utils.ToPtr("_")},
					{Type: models.IdElementSequence, LeadingZeros: utils.ToPtr(false)},
				},
			}
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			generated, err := allocator.Generate(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, "X_1", generated)
		})

		t.Run("MissingFormatRowFallsBackToGuid", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			generated, err := allocator.Generate(ctx, inventory.ID)
			require.NoError(t, err)
			_, err = uuid.Parse(generated)
			assert.NoError(t, err)
		})

		t.Run("RejectsStoredEmptyElementList", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			// A persisted format with zero elements is a misconfiguration,
			// not the missing-row fallback case
			_, err = fixtures.CreateTestIdFormat(inventory.ID, models.IdFormatSchema{Elements: []models.IdElement{}})
			require.NoError(t, err)

			_, err = allocator.Generate(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		t.Run("RejectsFormatWithoutSequence", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := models.IdFormatSchema{
				Elements: []models.IdElement{
					{Type: models.IdElementFixedText, Value: utils.ToPtr("NOPE")},
				},
			}
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			_, err = allocator.Generate(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		t.Run("RejectsFormatWithTwoSequences", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := models.IdFormatSchema{
				Elements: []models.IdElement{
					{Type: models.IdElementSequence, Separator: utils.ToPtr("-")},
					{Type: models.IdElementSequence},
				},
			}
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			_, err = allocator.Generate(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		t.Run("RejectsOverlongGeneratedId", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := prefixedSequenceSchema("INVENTORY")
			schema.MaxLength = utils.ToPtr(5)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			_, err = allocator.Generate(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsGeneratedIdTooLong(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestConcurrentAllocationsAreDistinct(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newItemFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestIdFormat(inventory.ID, prefixedSequenceSchema("INV"))
		require.NoError(t, err)

		const workers = 8

		ids := make([]string, workers)
		errs := make([]error, workers)
		var wg sync.WaitGroup
		wg.Add(workers)
		for i := 0; i < workers; i++ {
			go func(slot int) {
				defer wg.Done()
				resp, err := flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
					InventoryUUID: inventory.UUID.String(),
				}, metadata)
				if err != nil {
					errs[slot] = err
					return
				}
				ids[slot] = resp.Item.CustomID
			}(i)
		}
		wg.Wait()

		seen := make(map[string]bool, workers)
		for i := 0; i < workers; i++ {
			require.NoError(t, errs[i])
			assert.False(t, seen[ids[i]], "custom id %q allocated twice", ids[i])
			seen[ids[i]] = true
		}

		// The counter row serializes the increments, so no update is lost
		current, err := repository.NewSequenceCounterRepository(testDB.DB).Current(ctx, inventory.ID, models.DefaultScopeKey)
		require.NoError(t, err)
		assert.Equal(t, int64(workers), current)

		return nil
	})
	require.NoError(t, err)
}

func TestCustomIdAllocatorPreview(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		allocator := newAllocator(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("StableAndNonConsuming", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, prefixedSequenceSchema("INV"))
			require.NoError(t, err)

			first, err := allocator.Preview(ctx, inventory.ID)
			require.NoError(t, err)
			second, err := allocator.Preview(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, first, second)
			assert.Equal(t, "INV-000001", first)

			// The forecast matches what Generate hands out next
			generated, err := allocator.Generate(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, first, generated)
		})

		t.Run("PeeksAboveExistingIds", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, prefixedSequenceSchema("INV"))
			require.NoError(t, err)
			_, err = fixtures.CreateTestItem(inventory.ID, owner.ID, "INV-000009")
			require.NoError(t, err)

			preview, err := allocator.Preview(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, "INV-000010", preview)
		})

		t.Run("RandomElementsRenderAsPlaceholders", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := models.IdFormatSchema{
				Elements: []models.IdElement{
					{Type: models.IdElementRandom6Digit, Separator: utils.ToPtr("-")},
					{Type: models.IdElementGuid, Separator: utils.ToPtr("-")},
					{Type: models.IdElementSequence, LeadingZeros: utils.ToPtr(true)},
				},
			}
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			preview, err := allocator.Preview(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, "000000-"+businessflow.PreviewGuidPlaceholder+"-000001", preview)
		})

		t.Run("TruncatesOverlongPreview", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := prefixedSequenceSchema("INVENTORY")
			schema.MaxLength = utils.ToPtr(5)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			preview, err := allocator.Preview(ctx, inventory.ID)
			require.NoError(t, err)
			assert.Equal(t, "INVEN", preview)
		})

		t.Run("RejectsStoredEmptyElementList", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(inventory.ID, models.IdFormatSchema{Elements: []models.IdElement{}})
			require.NoError(t, err)

			_, err = allocator.Preview(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		t.Run("RejectsMisconfiguredFormat", func(t *testing.T) {
			owner, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			inventory, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)

			schema := models.IdFormatSchema{
				Elements: []models.IdElement{
					{Type: models.IdElementFixedText, Value: utils.ToPtr("NOPE")},
				},
			}
			_, err = fixtures.CreateTestIdFormat(inventory.ID, schema)
			require.NoError(t, err)

			_, err = allocator.Preview(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		return nil
	})
	require.NoError(t, err)
}
