package tests

import (
	"bytes"
	"strings"
	"testing"

	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/inventara/inventara/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newItemFlow(testDB *testingutil.TestDB) businessflow.ItemFlow {
	return businessflow.NewItemFlow(
		repository.NewItemRepository(testDB.DB),
		repository.NewInventoryRepository(testDB.DB),
		newAllocator(testDB),
		newAccessFlow(testDB),
		testDB.DB,
	)
}

func TestCreateItem(t *testing.T) {
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

		t.Run("AllocatesSequentialIds", func(t *testing.T) {
			first, err := flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
				InventoryUUID: inventory.UUID.String(),
				Text1:         utils.ToPtr("laptop"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "INV-000001", first.Item.CustomID)
			assert.Equal(t, 1, first.Item.Version)

			second, err := flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
				InventoryUUID: inventory.UUID.String(),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "INV-000002", second.Item.CustomID)
		})

		t.Run("ViewerCannotCreate", func(t *testing.T) {
			stranger, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)

			_, err = flow.CreateItem(ctx, stranger, &dto.CreateItemRequest{
				InventoryUUID: inventory.UUID.String(),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryAccessDenied(err))
		})

		t.Run("EditorOnPublicInventoryMayCreate", func(t *testing.T) {
			public, err := fixtures.CreateTestInventory(owner.ID, true)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(public.ID, prefixedSequenceSchema("PUB"))
			require.NoError(t, err)
			collaborator, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)

			resp, err := flow.CreateItem(ctx, collaborator, &dto.CreateItemRequest{
				InventoryUUID: public.UUID.String(),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, "PUB-000001", resp.Item.CustomID)
			assert.Equal(t, collaborator.ID, resp.Item.CreatedByID)
		})

		t.Run("MisconfiguredFormatIsNotRetried", func(t *testing.T) {
			broken, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			_, err = fixtures.CreateTestIdFormat(broken.ID, models.IdFormatSchema{
				Elements: []models.IdElement{{Type: models.IdElementFixedText, Value: utils.ToPtr("X")}},
			})
			require.NoError(t, err)

			_, err = flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
				InventoryUUID: broken.UUID.String(),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		t.Run("OverlongIdIsFatal", func(t *testing.T) {
			capped, err := fixtures.CreateTestInventory(owner.ID, false)
			require.NoError(t, err)
			schema := prefixedSequenceSchema("TOOLONGPREFIX")
			schema.MaxLength = utils.ToPtr(8)
			_, err = fixtures.CreateTestIdFormat(capped.ID, schema)
			require.NoError(t, err)

			_, err = flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
				InventoryUUID: capped.UUID.String(),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsGeneratedIdTooLong(err))
		})

		t.Run("MissingInventory", func(t *testing.T) {
			_, err := flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
				InventoryUUID: "00000000-0000-4000-8000-000000000000",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUpdateItem(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newItemFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		item, err := fixtures.CreateTestItem(inventory.ID, owner.ID, "ITEM-000001")
		require.NoError(t, err)

		t.Run("VersionGuardedUpdateBumpsVersion", func(t *testing.T) {
			resp, err := flow.UpdateItem(ctx, owner, &dto.UpdateItemRequest{
				InventoryUUID: inventory.UUID.String(),
				ItemID:        item.ID,
				Version:       1,
				Text1:         utils.ToPtr("renamed"),
				Num1:          utils.ToPtr(2.5),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Item.Version)
			require.NotNil(t, resp.Item.Text1)
			assert.Equal(t, "renamed", *resp.Item.Text1)
			assert.Equal(t, "ITEM-000001", resp.Item.CustomID)
		})

		t.Run("StaleVersionConflicts", func(t *testing.T) {
			_, err := flow.UpdateItem(ctx, owner, &dto.UpdateItemRequest{
				InventoryUUID: inventory.UUID.String(),
				ItemID:        item.ID,
				Version:       1, // already moved to 2 above
				Text1:         utils.ToPtr("lost update"),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsVersionConflict(err))
		})

		t.Run("MissingItem", func(t *testing.T) {
			_, err := flow.UpdateItem(ctx, owner, &dto.UpdateItemRequest{
				InventoryUUID: inventory.UUID.String(),
				ItemID:        999999,
				Version:       1,
				Text1:         utils.ToPtr("nobody"),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsItemNotFound(err))
		})

		t.Run("EmptyChangeSetIsRejected", func(t *testing.T) {
			_, err := flow.UpdateItem(ctx, owner, &dto.UpdateItemRequest{
				InventoryUUID: inventory.UUID.String(),
				ItemID:        item.ID,
				Version:       2,
			}, metadata)
			require.Error(t, err)

			var bizErr *businessflow.BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, "VALIDATION_ERROR", bizErr.Code)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeleteItems(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newItemFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		first, err := fixtures.CreateTestItem(inventory.ID, owner.ID, "DEL-000001")
		require.NoError(t, err)
		second, err := fixtures.CreateTestItem(inventory.ID, owner.ID, "DEL-000002")
		require.NoError(t, err)
		third, err := fixtures.CreateTestItem(inventory.ID, owner.ID, "DEL-000003")
		require.NoError(t, err)

		t.Run("PartitionsIntoDeletedAndSkipped", func(t *testing.T) {
			result, err := flow.DeleteItems(ctx, owner, &dto.DeleteItemsRequest{
				InventoryUUID: inventory.UUID.String(),
				Items: []dto.ItemVersionRef{
					{ID: first.ID, Version: 1},
					{ID: second.ID, Version: 7}, // stale
					{ID: third.ID, Version: 1},
					{ID: 999999, Version: 1}, // missing
				},
			}, metadata)
			require.NoError(t, err)

			assert.ElementsMatch(t, []uint{first.ID, third.ID}, result.DeletedIDs)
			assert.ElementsMatch(t, []uint{second.ID, 999999}, result.SkippedIDs)

			// The skipped item is still there, the deleted ones are gone
			itemRepo := repository.NewItemRepository(testDB.DB)
			remaining, err := itemRepo.ByInventoryAndID(ctx, inventory.ID, second.ID)
			require.NoError(t, err)
			assert.NotNil(t, remaining)
			gone, err := itemRepo.ByInventoryAndID(ctx, inventory.ID, first.ID)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})

		t.Run("ViewerCannotDelete", func(t *testing.T) {
			stranger, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)

			_, err = flow.DeleteItems(ctx, stranger, &dto.DeleteItemsRequest{
				InventoryUUID: inventory.UUID.String(),
				Items:         []dto.ItemVersionRef{{ID: second.ID, Version: 1}},
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestItemLikes(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newItemFlow(testDB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		fan, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, true)
		require.NoError(t, err)
		item, err := fixtures.CreateTestItem(inventory.ID, owner.ID, "LIKE-000001")
		require.NoError(t, err)

		t.Run("LikeIsIdempotent", func(t *testing.T) {
			require.NoError(t, flow.LikeItem(ctx, fan, inventory.UUID.String(), item.ID))
			require.NoError(t, flow.LikeItem(ctx, fan, inventory.UUID.String(), item.ID))

			var count int64
			require.NoError(t, testDB.DB.Model(&models.ItemLike{}).Where("item_id = ?", item.ID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("UnlikeRemovesIt", func(t *testing.T) {
			require.NoError(t, flow.UnlikeItem(ctx, fan, inventory.UUID.String(), item.ID))

			var count int64
			require.NoError(t, testDB.DB.Model(&models.ItemLike{}).Where("item_id = ?", item.ID).Count(&count).Error)
			assert.Equal(t, int64(0), count)
		})

		t.Run("LikeMissingItem", func(t *testing.T) {
			err := flow.LikeItem(ctx, fan, inventory.UUID.String(), 999999)
			require.Error(t, err)
			assert.True(t, businessflow.IsItemNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPreviewCustomIdFlow(t *testing.T) {
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

		t.Run("AnonymousMayPreview", func(t *testing.T) {
			resp, err := flow.PreviewCustomId(ctx, nil, inventory.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, "INV-000001", resp.CustomID)
		})

		t.Run("PreviewTracksAllocations", func(t *testing.T) {
			_, err := flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
				InventoryUUID: inventory.UUID.String(),
			}, metadata)
			require.NoError(t, err)

			resp, err := flow.PreviewCustomId(ctx, nil, inventory.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, "INV-000002", resp.CustomID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportItemsXLSX(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newItemFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestIdFormat(inventory.ID, prefixedSequenceSchema("EXP"))
		require.NoError(t, err)

		first, err := flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
			InventoryUUID: inventory.UUID.String(),
			Text1:         utils.ToPtr("laptop"),
		}, metadata)
		require.NoError(t, err)
		_, err = flow.CreateItem(ctx, owner, &dto.CreateItemRequest{
			InventoryUUID: inventory.UUID.String(),
			Text1:         utils.ToPtr("monitor"),
		}, metadata)
		require.NoError(t, err)

		filename, payload, err := flow.ExportItemsXLSX(ctx, owner, inventory.UUID.String())
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".xlsx"))

		xl, err := excelize.OpenReader(bytes.NewReader(payload))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()

		rows, err := xl.GetRows("Items")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "custom_id", rows[0][1])
		assert.Equal(t, first.Item.CustomID, rows[1][1])

		t.Run("MissingInventoryIsAnError", func(t *testing.T) {
			_, _, err := flow.ExportItemsXLSX(ctx, owner, "00000000-0000-4000-8000-000000000000")
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
