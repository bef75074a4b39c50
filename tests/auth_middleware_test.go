package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/middleware"
	"github.com/inventara/inventara/app/services"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
	testingutil "github.com/inventara/inventara/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProtectedApp(t *testing.T, testDB *testingutil.TestDB) (*fiber.App, services.TokenService) {
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

	authMiddleware := middleware.NewAuthMiddleware(tokenService, repository.NewUserRepository(testDB.DB))

	app := fiber.New()
	app.Get("/protected", authMiddleware.Authenticate(), func(c fiber.Ctx) error {
		return c.JSON(dto.APIResponse{Success: true})
	})

	return app, tokenService
}

type protectedResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   dto.ErrorDetail `json:"error"`
}

func requestProtected(t *testing.T, app *fiber.App, authorization string) (int, protectedResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var body protectedResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestAuthenticateBearerExtraction(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		app, tokenService := newProtectedApp(t, testDB)

		t.Run("MissingHeaderIsRejectedWithItsOwnCode", func(t *testing.T) {
			status, body := requestProtected(t, app, "")
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.False(t, body.Success)
			assert.Equal(t, "MISSING_AUTHORIZATION_HEADER", body.Error.Code)
		})

		t.Run("NonBearerSchemeIsRejected", func(t *testing.T) {
			status, body := requestProtected(t, app, "Basic dXNlcjpwYXNz")
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "INVALID_AUTHORIZATION_FORMAT", body.Error.Code)
		})

		t.Run("EmptyBearerTokenIsRejected", func(t *testing.T) {
			status, body := requestProtected(t, app, "Bearer ")
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "MISSING_ACCESS_TOKEN", body.Error.Code)
		})

		t.Run("GarbageTokenIsRejected", func(t *testing.T) {
			status, body := requestProtected(t, app, "Bearer not-a-jwt")
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, "TOKEN_INVALID", body.Error.Code)
		})

		t.Run("ValidTokenPasses", func(t *testing.T) {
			user, err := fixtures.CreateTestUser(models.UserRoleUser)
			require.NoError(t, err)
			accessToken, _, err := tokenService.GenerateTokens(user.ID)
			require.NoError(t, err)

			status, body := requestProtected(t, app, "Bearer "+accessToken)
			assert.Equal(t, fiber.StatusOK, status)
			assert.True(t, body.Success)
		})

		return nil
	})
	require.NoError(t, err)
}
