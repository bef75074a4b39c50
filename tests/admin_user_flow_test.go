package tests

import (
	"bytes"
	"strings"
	"testing"

	"github.com/inventara/inventara/app/dto"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/config"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func newAdminFlow(testDB *testingutil.TestDB, superadmins ...string) businessflow.AdminUserFlow {
	return businessflow.NewAdminUserFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		config.AdminConfig{SuperadminEmails: superadmins},
		testDB.DB,
	)
}

func TestBlockAndUnblockUsers(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)
		superadmin, err := fixtures.CreateTestUser(models.UserRoleAdmin)
		require.NoError(t, err)
		target, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		staleTarget, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		flow := newAdminFlow(testDB, superadmin.Email)

		t.Run("BlockProtectsSelfSuperadminsAndMissing", func(t *testing.T) {
			result, err := flow.BlockUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{
					{ID: target.ID, Version: 1},
					{ID: admin.ID, Version: 1},       // self
					{ID: superadmin.ID, Version: 1},  // allowlisted
					{ID: 999999, Version: 1},         // missing
					{ID: staleTarget.ID, Version: 9}, // stale version
				},
			}, metadata)
			require.NoError(t, err)

			assert.Equal(t, 5, result.Requested)
			assert.Equal(t, []uint{target.ID}, result.UpdatedIDs)
			assert.ElementsMatch(t, []uint{admin.ID, superadmin.ID, 999999, staleTarget.ID}, result.SkippedIDs)
			assert.Equal(t, 1, result.Updated)
			assert.Equal(t, 4, result.Skipped)

			userRepo := repository.NewUserRepository(testDB.DB)
			blocked, err := userRepo.ByID(ctx, target.ID)
			require.NoError(t, err)
			assert.Equal(t, models.UserStatusBlocked, blocked.Status)
			assert.Equal(t, 2, blocked.Version)
		})

		t.Run("BlockingAnAlreadyBlockedUserSkips", func(t *testing.T) {
			result, err := flow.BlockUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{{ID: target.ID, Version: 2}},
			}, metadata)
			require.NoError(t, err)
			assert.Empty(t, result.UpdatedIDs)
			assert.Equal(t, []uint{target.ID}, result.SkippedIDs)
		})

		t.Run("UnblockCarriesNoProtectionFilter", func(t *testing.T) {
			result, err := flow.UnblockUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{{ID: target.ID, Version: 2}},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, []uint{target.ID}, result.UpdatedIDs)

			userRepo := repository.NewUserRepository(testDB.DB)
			active, err := userRepo.ByID(ctx, target.ID)
			require.NoError(t, err)
			assert.Equal(t, models.UserStatusActive, active.Status)
			assert.Equal(t, 3, active.Version)
		})

		t.Run("EmptySelectionIsRejected", func(t *testing.T) {
			_, err := flow.BlockUsers(ctx, admin, &dto.BulkUserUpdateRequest{}, metadata)
			require.Error(t, err)

			var bizErr *businessflow.BusinessError
			require.ErrorAs(t, err, &bizErr)
			assert.Equal(t, "VALIDATION_ERROR", bizErr.Code)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestPromoteAndDemoteUsers(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)
		superadmin, err := fixtures.CreateTestUser(models.UserRoleAdmin)
		require.NoError(t, err)
		target, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		flow := newAdminFlow(testDB, superadmin.Email)

		t.Run("PromoteGrantsAdmin", func(t *testing.T) {
			result, err := flow.PromoteUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{{ID: target.ID, Version: 1}},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, []uint{target.ID}, result.UpdatedIDs)

			userRepo := repository.NewUserRepository(testDB.DB)
			promoted, err := userRepo.ByID(ctx, target.ID)
			require.NoError(t, err)
			assert.Equal(t, models.UserRoleAdmin, promoted.Role)
		})

		t.Run("SelfPromotionIsSkipped", func(t *testing.T) {
			result, err := flow.PromoteUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{{ID: admin.ID, Version: 1}},
			}, metadata)
			require.NoError(t, err)
			assert.Empty(t, result.UpdatedIDs)
			assert.Equal(t, []uint{admin.ID}, result.SkippedIDs)
		})

		t.Run("SuperadminCannotBeDemoted", func(t *testing.T) {
			result, err := flow.DemoteUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{{ID: superadmin.ID, Version: 1}},
			}, metadata)
			require.NoError(t, err)
			assert.Empty(t, result.UpdatedIDs)
			assert.Equal(t, []uint{superadmin.ID}, result.SkippedIDs)
		})

		t.Run("SelfDemotionIsAllowed", func(t *testing.T) {
			// The one self-targeting exception: an admin may step down
			result, err := flow.DemoteUsers(ctx, admin, &dto.BulkUserUpdateRequest{
				Users: []dto.UserVersionRef{{ID: admin.ID, Version: 1}},
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, []uint{admin.ID}, result.UpdatedIDs)

			userRepo := repository.NewUserRepository(testDB.DB)
			demoted, err := userRepo.ByID(ctx, admin.ID)
			require.NoError(t, err)
			assert.Equal(t, models.UserRoleUser, demoted.Role)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRemoveUsers(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		admin, err := fixtures.CreateTestAdmin()
		require.NoError(t, err)
		superadmin, err := fixtures.CreateTestUser(models.UserRoleAdmin)
		require.NoError(t, err)
		doomed, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		flow := newAdminFlow(testDB, superadmin.Email)

		result, err := flow.RemoveUsers(ctx, admin, &dto.RemoveUsersRequest{
			IDs: []uint{doomed.ID, admin.ID, superadmin.ID, 999999},
		}, metadata)
		require.NoError(t, err)

		assert.Equal(t, int64(1), result.Deleted)
		assert.Equal(t, 3, result.Skipped)
		assert.ElementsMatch(t, []uint{admin.ID, superadmin.ID, 999999}, result.SkippedIDs)

		userRepo := repository.NewUserRepository(testDB.DB)
		gone, err := userRepo.ByID(ctx, doomed.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)
		kept, err := userRepo.ByID(ctx, admin.ID)
		require.NoError(t, err)
		assert.NotNil(t, kept)

		return nil
	})
	require.NoError(t, err)
}

func TestListUsers(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		flow := newAdminFlow(testDB)

		for i := 0; i < 5; i++ {
			_, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
		}

		t.Run("Paginates", func(t *testing.T) {
			resp, err := flow.ListUsers(ctx, &dto.ListUsersRequest{Page: 1, PageSize: 2})
			require.NoError(t, err)
			assert.Len(t, resp.Users, 2)
			assert.Equal(t, int64(5), resp.Total)
			assert.Equal(t, 2, resp.PageSize)
		})

		t.Run("SearchesByEmail", func(t *testing.T) {
			needle, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)

			search := needle.Email
			resp, err := flow.ListUsers(ctx, &dto.ListUsersRequest{Search: &search})
			require.NoError(t, err)
			require.Len(t, resp.Users, 1)
			assert.Equal(t, needle.ID, resp.Users[0].ID)
		})

		t.Run("SortsByEmailAscending", func(t *testing.T) {
			resp, err := flow.ListUsers(ctx, &dto.ListUsersRequest{SortBy: "email", Order: "asc"})
			require.NoError(t, err)
			for i := 1; i < len(resp.Users); i++ {
				assert.LessOrEqual(t, resp.Users[i-1].Email, resp.Users[i].Email)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestExportUsersXLSX(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		flow := newAdminFlow(testDB)

		first, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)
		_, err = fixtures.CreateTestAdmin()
		require.NoError(t, err)

		filename, payload, err := flow.ExportUsersXLSX(ctx)
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(filename, ".xlsx"))
		assert.NotEmpty(t, payload)

		// The workbook must open and carry a header row plus one row per user
		xl, err := excelize.OpenReader(bytes.NewReader(payload))
		require.NoError(t, err)
		defer func() { _ = xl.Close() }()

		rows, err := xl.GetRows("Users")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "email", rows[0][3])
		assert.Equal(t, first.Email, rows[1][3])

		return nil
	})
	require.NoError(t, err)
}
