package tests

import (
	"testing"

	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grantRequest(inventoryUUID string, userID uint, role string) *dto.GrantAccessRequest {
	return &dto.GrantAccessRequest{InventoryUUID: inventoryUUID, UserID: userID, Role: role}
}

func revokeRequest(inventoryUUID string, userID uint) *dto.RevokeAccessRequest {
	return &dto.RevokeAccessRequest{InventoryUUID: inventoryUUID, UserID: userID}
}

func newAccessFlow(testDB *testingutil.TestDB) businessflow.InventoryAccessFlow {
	return businessflow.NewInventoryAccessFlow(
		repository.NewInventoryRepository(testDB.DB),
		repository.NewInventoryAccessRepository(testDB.DB),
		repository.NewUserRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		testDB.DB,
	)
}

func TestGetInventoryRole(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccessFlow(testDB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)
		grantee, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		private, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		public, err := fixtures.CreateTestInventory(owner.ID, true)
		require.NoError(t, err)

		_, err = fixtures.CreateTestAccessGrant(private.ID, grantee.ID, models.InventoryRoleEditor)
		require.NoError(t, err)

		t.Run("AnonymousIsViewer", func(t *testing.T) {
			role, err := flow.GetInventoryRole(ctx, private.ID, nil)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleViewer, role)
		})

		t.Run("AdminIsOwnerEverywhere", func(t *testing.T) {
			role, err := flow.GetInventoryRole(ctx, private.ID, admin)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleOwner, role)
		})

		t.Run("OwnerIsOwner", func(t *testing.T) {
			role, err := flow.GetInventoryRole(ctx, private.ID, owner)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleOwner, role)
		})

		t.Run("ExplicitGrantApplies", func(t *testing.T) {
			role, err := flow.GetInventoryRole(ctx, private.ID, grantee)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleEditor, role)
		})

		t.Run("PublicInventoryDefaultsToEditor", func(t *testing.T) {
			role, err := flow.GetInventoryRole(ctx, public.ID, stranger)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleEditor, role)
		})

		t.Run("PrivateInventoryDefaultsToViewer", func(t *testing.T) {
			role, err := flow.GetInventoryRole(ctx, private.ID, stranger)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleViewer, role)
		})

		t.Run("GrantOutranksPublicDefault", func(t *testing.T) {
			// An explicit VIEWER grant on a public inventory wins over the
			// public EDITOR default
			_, err := fixtures.CreateTestAccessGrant(public.ID, grantee.ID, models.InventoryRoleViewer)
			require.NoError(t, err)

			role, err := flow.GetInventoryRole(ctx, public.ID, grantee)
			require.NoError(t, err)
			assert.Equal(t, models.InventoryRoleViewer, role)
		})

		t.Run("MissingInventoryIsAnError", func(t *testing.T) {
			_, err := flow.GetInventoryRole(ctx, 999999, stranger)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAccessPredicates(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccessFlow(testDB)
		ctx := testingutil.CreateTestContext()

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		editor, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAccessGrant(inventory.ID, editor.ID, models.InventoryRoleEditor)
		require.NoError(t, err)

		t.Run("EditorMayWriteButNotManage", func(t *testing.T) {
			assert.True(t, flow.CanUserEditItems(ctx, inventory.ID, editor))
			assert.False(t, flow.CanManageInventory(ctx, inventory.ID, editor))
		})

		t.Run("OwnerMayDoBoth", func(t *testing.T) {
			assert.True(t, flow.CanUserEditItems(ctx, inventory.ID, owner))
			assert.True(t, flow.CanManageInventory(ctx, inventory.ID, owner))
		})

		t.Run("ViewerMayDoNeither", func(t *testing.T) {
			assert.False(t, flow.CanUserEditItems(ctx, inventory.ID, stranger))
			assert.False(t, flow.CanManageInventory(ctx, inventory.ID, stranger))
		})

		t.Run("ResolutionFailureDeniesInsteadOfErroring", func(t *testing.T) {
			assert.False(t, flow.CanUserEditItems(ctx, 999999, stranger))
			assert.False(t, flow.CanManageInventory(ctx, 999999, stranger))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPermissionMatrix(t *testing.T) {
	t.Run("MatrixIsMonotone", func(t *testing.T) {
		roles := []models.InventoryRole{
			models.InventoryRoleViewer,
			models.InventoryRoleEditor,
			models.InventoryRoleOwner,
		}
		actions := []models.InventoryAction{models.ActionRead, models.ActionWrite, models.ActionDelete}

		for i := 1; i < len(roles); i++ {
			for _, action := range actions {
				if models.IsActionAllowed(roles[i-1], action) {
					assert.True(t, models.IsActionAllowed(roles[i], action),
						"%s must allow everything %s allows", roles[i], roles[i-1])
				}
			}
		}
	})

	t.Run("UnknownRoleOrActionIsDenied", func(t *testing.T) {
		assert.False(t, models.IsActionAllowed(models.InventoryRole("INTRUDER"), models.ActionRead))
		assert.False(t, models.IsActionAllowed(models.InventoryRoleOwner, models.InventoryAction("drop")))
	})

	t.Run("ViewerReadsOnly", func(t *testing.T) {
		assert.True(t, models.IsActionAllowed(models.InventoryRoleViewer, models.ActionRead))
		assert.False(t, models.IsActionAllowed(models.InventoryRoleViewer, models.ActionWrite))
		assert.False(t, models.IsActionAllowed(models.InventoryRoleViewer, models.ActionDelete))
	})
}

func TestAccessGrantManagement(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAccessFlow(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		owner, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		target, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		stranger, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		inventory, err := fixtures.CreateTestInventory(owner.ID, false)
		require.NoError(t, err)

		t.Run("OwnerGrantsAndLists", func(t *testing.T) {
			resp, err := flow.GrantAccess(ctx, owner, grantRequest(inventory.UUID.String(), target.ID, "EDITOR"), metadata)
			require.NoError(t, err)
			assert.Equal(t, "EDITOR", resp.Grant.Role)
			assert.Equal(t, target.ID, resp.Grant.UserID)

			list, err := flow.ListGrants(ctx, owner, inventory.UUID.String())
			require.NoError(t, err)
			assert.Len(t, list.Grants, 1)
		})

		t.Run("RegrantOverwritesRole", func(t *testing.T) {
			resp, err := flow.GrantAccess(ctx, owner, grantRequest(inventory.UUID.String(), target.ID, "VIEWER"), metadata)
			require.NoError(t, err)
			assert.Equal(t, "VIEWER", resp.Grant.Role)

			list, err := flow.ListGrants(ctx, owner, inventory.UUID.String())
			require.NoError(t, err)
			assert.Len(t, list.Grants, 1)
		})

		t.Run("OwnerRoleIsNotGrantable", func(t *testing.T) {
			_, err := flow.GrantAccess(ctx, owner, grantRequest(inventory.UUID.String(), target.ID, "OWNER"), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsOwnerRoleNotAssignable(err))
		})

		t.Run("GrantToOwnerIsRejected", func(t *testing.T) {
			_, err := flow.GrantAccess(ctx, owner, grantRequest(inventory.UUID.String(), owner.ID, "EDITOR"), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsOwnerRoleNotAssignable(err))
		})

		t.Run("StrangerCannotGrant", func(t *testing.T) {
			_, err := flow.GrantAccess(ctx, stranger, grantRequest(inventory.UUID.String(), stranger.ID, "EDITOR"), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInventoryAccessDenied(err))
		})

		t.Run("RevokeRemovesGrant", func(t *testing.T) {
			err := flow.RevokeAccess(ctx, owner, revokeRequest(inventory.UUID.String(), target.ID), metadata)
			require.NoError(t, err)

			list, err := flow.ListGrants(ctx, owner, inventory.UUID.String())
			require.NoError(t, err)
			assert.Empty(t, list.Grants)
		})

		t.Run("RevokeMissingGrantFails", func(t *testing.T) {
			err := flow.RevokeAccess(ctx, owner, revokeRequest(inventory.UUID.String(), target.ID), metadata)
			require.Error(t, err)

			var bizErr *businessflow.BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, "GRANT_NOT_FOUND", bizErr.Code)
		})

		return nil
	})
	require.NoError(t, err)
}
