package tests

import (
	"testing"

	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/inventara/inventara/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryFlow(testDB *testingutil.TestDB) businessflow.InventoryFlow {
	return businessflow.NewInventoryFlow(
		repository.NewInventoryRepository(testDB.DB),
		repository.NewIdFormatRepository(testDB.DB),
		repository.NewInventoryFieldSetRepository(testDB.DB),
		repository.NewCategoryRepository(testDB.DB),
		repository.NewTagRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		newAccessFlow(testDB),
		testDB.DB,
	)
}

func TestCreateInventory(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		t.Run("CreatesWithDefaultFormatAndEmptyFieldSet", func(t *testing.T) {
			resp, err := flow.CreateInventory(ctx, owner, &dto.CreateInventoryRequest{
				Name:     "Office Laptops",
				IsPublic: false,
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Inventory.Version)
			assert.Equal(t, owner.ID, resp.Inventory.OwnerID)

			format, err := flow.GetIdFormat(ctx, owner, resp.Inventory.UUID)
			require.NoError(t, err)
			assert.Equal(t, 1, format.Version)
			assert.Equal(t, 1, format.Schema.SequenceElementCount())

			fieldSet, err := flow.GetFieldSet(ctx, owner, resp.Inventory.UUID)
			require.NoError(t, err)
			assert.Equal(t, 1, fieldSet.Version)
			assert.Empty(t, fieldSet.Definition)
		})

		t.Run("BlankNameIsRejected", func(t *testing.T) {
			_, err := flow.CreateInventory(ctx, owner, &dto.CreateInventoryRequest{
				Name: "   ",
			}, metadata)
			require.Error(t, err)

			var bizErr *businessflow.BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, "VALIDATION_ERROR", bizErr.Code)
		})

		t.Run("UnknownCategoryIsRejected", func(t *testing.T) {
			_, err := flow.CreateInventory(ctx, owner, &dto.CreateInventoryRequest{
				Name:       "Ghost Category",
				CategoryID: utils.ToPtr(uint(999999)),
			}, metadata)
			require.Error(t, err)

			var bizErr *businessflow.BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, "CATEGORY_NOT_FOUND", bizErr.Code)
		})

		t.Run("KnownCategoryIsAttached", func(t *testing.T) {
			category, err := fixtures.CreateTestCategory()
			require.NoError(t, err)

			resp, err := flow.CreateInventory(ctx, owner, &dto.CreateInventoryRequest{
				Name:       "Categorized",
				CategoryID: &category.ID,
			}, metadata)
			require.NoError(t, err)
			require.NotNil(t, resp.Inventory.CategoryID)
			assert.Equal(t, category.ID, *resp.Inventory.CategoryID)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUpdateInventory(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		t.Run("VersionGuardedUpdateBumpsVersion", func(t *testing.T) {
			resp, err := flow.UpdateInventory(ctx, owner, &dto.UpdateInventoryRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       1,
				Name:          utils.ToPtr("Renamed"),
				IsPublic:      utils.ToPtr(true),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Inventory.Version)
			assert.Equal(t, "Renamed", resp.Inventory.Name)
			assert.True(t, resp.Inventory.IsPublic)
		})

		t.Run("StaleVersionConflicts", func(t *testing.T) {
			_, err := flow.UpdateInventory(ctx, owner, &dto.UpdateInventoryRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       1,
				Name:          utils.ToPtr("Lost Update"),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsVersionConflict(err))
		})

		t.Run("EditorCannotManage", func(t *testing.T) {
			editor, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			_, err = fixtures.CreateTestAccessGrant(inventory.ID, editor.ID, models.InventoryRoleEditor)
			require.NoError(t, err)

			_, err = flow.UpdateInventory(ctx, editor, &dto.UpdateInventoryRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       2,
				Name:          utils.ToPtr("Takeover"),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryAccessDenied(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestDeleteInventories(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		other, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		mine, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		stale, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		foreign, err := fixtures.CreateTestInventory(other.ID, false)
		require.NoError(t, err)

		t.Run("PartitionsDeletedSkippedAndPolicySkipped", func(t *testing.T) {
			result, err := flow.DeleteInventories(ctx, owner, &dto.DeleteInventoriesRequest{
				Inventories: []dto.InventoryVersionRef{
					{ID: mine.ID, Version: 1},
					{ID: stale.ID, Version: 9},   // stale version
					{ID: foreign.ID, Version: 1}, // not the owner
				},
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, []uint{mine.ID}, result.DeletedIDs)
			assert.Equal(t, []uint{stale.ID}, result.SkippedIDs)
			assert.Equal(t, []uint{foreign.ID}, result.PolicySkippedIDs)
		})

		t.Run("AdminMayDeleteAnything", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin()
			require.NoError(t, err)

			result, err := flow.DeleteInventories(ctx, admin, &dto.DeleteInventoriesRequest{
				Inventories: []dto.InventoryVersionRef{{ID: foreign.ID, Version: 1}},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, []uint{foreign.ID}, result.DeletedIDs)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestIdFormatManagement(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		t.Run("MissingRowReportsGuidFallback", func(t *testing.T) {
			resp, err := flow.GetIdFormat(ctx, owner, inventory.UUID.String())
			require.NoError(t, err)
			assert.Equal(t, 0, resp.Version)
			require.Len(t, resp.Schema.Elements, 1)
			assert.Equal(t, models.IdElementGuid, resp.Schema.Elements[0].Type)
		})

		t.Run("FirstReplaceCreatesTheRow", func(t *testing.T) {
			resp, err := flow.ReplaceIdFormat(ctx, owner, &dto.ReplaceIdFormatRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       0,
				Schema:        prefixedSequenceSchema("INV"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Version)
		})

		t.Run("ReplaceBumpsVersion", func(t *testing.T) {
			resp, err := flow.ReplaceIdFormat(ctx, owner, &dto.ReplaceIdFormatRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       1,
				Schema:        prefixedSequenceSchema("ASSET"),
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 2, resp.Version)
		})

		t.Run("StaleReplaceConflicts", func(t *testing.T) {
			_, err := flow.ReplaceIdFormat(ctx, owner, &dto.ReplaceIdFormatRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       1,
				Schema:        prefixedSequenceSchema("STALE"),
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsVersionConflict(err))
		})

		t.Run("MisconfiguredSchemaIsStoredButFailsAllocation", func(t *testing.T) {
			// Replacement accepts any schema; the invariant surfaces when the
			// allocator next runs
			_, err := flow.ReplaceIdFormat(ctx, owner, &dto.ReplaceIdFormatRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       2,
				Schema: models.IdFormatSchema{
					Elements: []models.IdElement{{Type: models.IdElementFixedText, Value: utils.ToPtr("NOSEQ")}},
				},
			}, metadata)
			require.NoError(t, err)

			allocator := newAllocator(testDB)
			_, err = allocator.Generate(ctx, inventory.ID)
			require.Error(t, err)
			assert.True(t, businessflow.IsIdFormatInvalid(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestFieldSetManagement(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		definition := models.FieldSetDefinition{
			"text1": {Enabled: true, Title: utils.ToPtr("Serial Number"), ShowInTable: utils.ToPtr(true)},
			"num1":  {Enabled: true, Title: utils.ToPtr("Price")},
		}

		t.Run("FirstReplaceCreatesTheRow", func(t *testing.T) {
			resp, err := flow.ReplaceFieldSet(ctx, owner, &dto.ReplaceFieldSetRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       0,
				Definition:    definition,
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, 1, resp.Version)

			loaded, err := flow.GetFieldSet(ctx, owner, inventory.UUID.String())
			require.NoError(t, err)
			require.Contains(t, loaded.Definition, "text1")
			assert.Equal(t, "Serial Number", *loaded.Definition["text1"].Title)
		})

		t.Run("StaleReplaceConflicts", func(t *testing.T) {
			_, err := flow.ReplaceFieldSet(ctx, owner, &dto.ReplaceFieldSetRequest{
				InventoryUUID: inventory.UUID.String(),
				Version:       0,
				Definition:    models.FieldSetDefinition{},
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsVersionConflict(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListInventoriesAndCategories(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		other, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		_, err = fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestInventory(owner.ID, true)
		require.NoError(t, err)
		_, err = fixtures.CreateTestInventory(other.ID, true)
		require.NoError(t, err)

		t.Run("OwnedOnly", func(t *testing.T) {
			resp, err := flow.ListInventories(ctx, owner, &dto.ListInventoriesRequest{OwnedOnly: true})
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Total)
		})

		t.Run("PublicOnly", func(t *testing.T) {
			resp, err := flow.ListInventories(ctx, nil, &dto.ListInventoriesRequest{PublicOnly: true})
			require.NoError(t, err)
			assert.Equal(t, int64(2), resp.Total)
		})

		t.Run("PaginationCapsPageSize", func(t *testing.T) {
			resp, err := flow.ListInventories(ctx, nil, &dto.ListInventoriesRequest{Page: 1, PageSize: 2})
			require.NoError(t, err)
			assert.Len(t, resp.Inventories, 2)
			assert.Equal(t, int64(3), resp.Total)
		})

		t.Run("CategoriesSortedByName", func(t *testing.T) {
			_, err := fixtures.CreateTestCategory()
			require.NoError(t, err)
			_, err = fixtures.CreateTestCategory()
			require.NoError(t, err)

			resp, err := flow.ListCategories(ctx)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, len(resp.Categories), 2)
			for i := 1; i < len(resp.Categories); i++ {
				assert.LessOrEqual(t, resp.Categories[i-1].Name, resp.Categories[i].Name)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestInventoryTags(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newInventoryFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		t.Run("CreateAttachesDedupedTags", func(t *testing.T) {
			resp, err := flow.CreateInventory(ctx, owner, &dto.CreateInventoryRequest{
				Name: "Tagged Laptops",
				Tags: []string{"hardware", " laptops ", "Hardware", ""},
			}, metadata)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"hardware", "laptops"}, resp.Inventory.Tags)
		})

		t.Run("UpdateReplacesTheTagSet", func(t *testing.T) {
			created, err := flow.CreateInventory(ctx, owner, &dto.CreateInventoryRequest{
				Name: "Retagged",
				Tags: []string{"old"},
			}, metadata)
			require.NoError(t, err)

			tags := []string{"fresh", "hardware"}
			updated, err := flow.UpdateInventory(ctx, owner, &dto.UpdateInventoryRequest{
				InventoryUUID: created.Inventory.UUID,
				Version:       created.Inventory.Version,
				Tags:          &tags,
			}, metadata)
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"fresh", "hardware"}, updated.Inventory.Tags)
			assert.Equal(t, created.Inventory.Version+1, updated.Inventory.Version)
		})

		t.Run("SharedTagIsNotDuplicated", func(t *testing.T) {
			resp, err := flow.ListTags(ctx, &dto.ListTagsRequest{Prefix: "hardware"})
			require.NoError(t, err)
			assert.Equal(t, []string{"hardware"}, resp.Tags)
		})

		t.Run("ListTagsFiltersByPrefix", func(t *testing.T) {
			resp, err := flow.ListTags(ctx, &dto.ListTagsRequest{Prefix: "lap"})
			require.NoError(t, err)
			assert.Equal(t, []string{"laptops"}, resp.Tags)

			all, err := flow.ListTags(ctx, &dto.ListTagsRequest{})
			require.NoError(t, err)
			assert.ElementsMatch(t, []string{"hardware", "laptops", "old", "fresh"}, all.Tags)
		})

		return nil
	})
	require.NoError(t, err)
}
