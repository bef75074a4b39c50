package tests

import (
	"testing"
	"time"

	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/services"
	businessflow "github.com/inventara/inventara/business_flow"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFlow(t *testing.T, testDB *testingutil.TestDB) businessflow.AuthFlow {
	t.Helper()

	tokenService, err := services.NewTokenService(
		time.Hour,
		24*time.Hour,
		"inventara-test",
		"inventara-test-api",
		false,
		"",
		"",
		"test-secret-key-with-enough-entropy",
		nil,
	)
	require.NoError(t, err)

	return businessflow.NewAuthFlow(
		repository.NewUserRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		tokenService,
		testDB.DB,
	)
}

func TestSignup(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newAuthFlow(t, testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("CreatesUserAndIssuesTokens", func(t *testing.T) {
			resp, err := flow.Signup(ctx, &dto.SignupRequest{
				Name:     "Jane Roe",
				Email:    "Jane.Roe@Example.com",
				Password: "SecurePass123!",
			}, metadata)
			require.NoError(t, err)

			// Emails are normalized to lower case
			assert.Equal(t, "jane.roe@example.com", resp.User.Email)
			assert.Equal(t, string(models.UserRoleUser), resp.User.Role)
			assert.Equal(t, string(models.UserStatusActive), resp.User.Status)
			assert.Equal(t, 1, resp.User.Version)
			assert.NotEmpty(t, resp.Tokens.AccessToken)
			assert.NotEmpty(t, resp.Tokens.RefreshToken)
			assert.Equal(t, "Bearer", resp.Tokens.TokenType)
		})

		t.Run("DuplicateEmailIsRejected", func(t *testing.T) {
			_, err := flow.Signup(ctx, &dto.SignupRequest{
				Name:     "Jane Clone",
				Email:    "jane.roe@example.com",
				Password: "AnotherPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsEmailAlreadyExists(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestLogin(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAuthFlow(t, testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		user, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		t.Run("Succeeds", func(t *testing.T) {
			resp, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "TestPass123!",
			}, metadata)
			require.NoError(t, err)
			assert.Equal(t, user.ID, resp.User.ID)
			assert.NotEmpty(t, resp.Tokens.AccessToken)

			userRepo := repository.NewUserRepository(testDB.DB)
			reloaded, err := userRepo.ByID(ctx, user.ID)
			require.NoError(t, err)
			assert.NotNil(t, reloaded.LastLoginAt)
		})

		t.Run("WrongPassword", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    user.Email,
				Password: "WrongPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsIncorrectPassword(err))
		})

		t.Run("UnknownEmail", func(t *testing.T) {
			_, err := flow.Login(ctx, &dto.LoginRequest{
				Email:    "nobody@example.com",
				Password: "TestPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		t.Run("BlockedAccount", func(t *testing.T) {
			blocked, err := fixtures.CreateBlockedTestUser()
			require.NoError(t, err)

			_, err = flow.Login(ctx, &dto.LoginRequest{
				Email:    blocked.Email,
				Password: "TestPass123!",
			}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsAccountBlocked(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestRefreshTokens(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAuthFlow(t, testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		user, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		login, err := flow.Login(ctx, &dto.LoginRequest{
			Email:    user.Email,
			Password: "TestPass123!",
		}, metadata)
		require.NoError(t, err)

		t.Run("IssuesAFreshPair", func(t *testing.T) {
			pair, err := flow.RefreshTokens(ctx, login.Tokens.RefreshToken)
			require.NoError(t, err)
			assert.NotEmpty(t, pair.AccessToken)
			assert.NotEmpty(t, pair.RefreshToken)
		})

		t.Run("AccessTokenIsNotARefreshToken", func(t *testing.T) {
			_, err := flow.RefreshTokens(ctx, login.Tokens.AccessToken)
			require.Error(t, err)
		})

		t.Run("GarbageIsRejected", func(t *testing.T) {
			_, err := flow.RefreshTokens(ctx, "not-a-token")
			require.Error(t, err)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestGetProfile(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		flow := newAuthFlow(t, testDB)
		ctx := testingutil.CreateTestContext()

		user, err := fixtures.CreateTestUser(models.UserRoleUser)
		require.NoError(t, err)

		t.Run("ReturnsTheUser", func(t *testing.T) {
			profile, err := flow.GetProfile(ctx, user.ID)
			require.NoError(t, err)
			assert.Equal(t, user.Email, profile.Email)
		})

		t.Run("MissingUser", func(t *testing.T) {
			_, err := flow.GetProfile(ctx, 999999)
			require.Error(t, err)
			assert.True(t, businessflow.IsUserNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}
