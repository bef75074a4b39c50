package handlers

import (
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/middleware"
	businessflow "github.com/inventara/inventara/business_flow"
)

// AuthHandlerInterface defines the contract for authentication handlers
type AuthHandlerInterface interface {
	Signup(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	Refresh(c fiber.Ctx) error
	Profile(c fiber.Ctx) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	authFlow  businessflow.AuthFlow
	validator *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(authFlow businessflow.AuthFlow) *AuthHandler {
	return &AuthHandler{
		authFlow:  authFlow,
		validator: validator.New(),
	}
}

// Signup handles account creation
// @Summary User Registration
// @Description Register a new user account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "User registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AuthResponse} "Account created"
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Email already registered"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/signup [post]
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req dto.SignupRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.authFlow.Signup(requestContext(c, "/api/v1/auth/signup"), &req, clientMetadata(c))
	if err != nil {
		if !businessflow.IsEmailAlreadyExists(err) {
			log.Println("Signup failed", err)
		}
		return businessErrorResponse(c, err, "Signup failed", "SIGNUP_FAILED")
	}

	return successResponse(c, fiber.StatusCreated, "Account created successfully", result)
}

// Login handles user login
// @Summary User Login
// @Description Authenticate with email and password
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthResponse} "Login successful"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials"
// @Failure 403 {object} dto.APIResponse "Account blocked"
// @Failure 500 {object} dto.APIResponse "Internal server error"
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	result, err := h.authFlow.Login(requestContext(c, "/api/v1/auth/login"), &req, clientMetadata(c))
	if err != nil {
		if !businessflow.IsUserNotFound(err) && !businessflow.IsIncorrectPassword(err) && !businessflow.IsAccountBlocked(err) {
			log.Println("Login failed", err)
		}
		// A missing account and a wrong password are indistinguishable to the caller
		if businessflow.IsUserNotFound(err) {
			return errorResponse(c, fiber.StatusUnauthorized, "Incorrect email or password", "INCORRECT_PASSWORD", nil)
		}
		return businessErrorResponse(c, err, "Login failed", "LOGIN_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Login successful", result)
}

// Logout revokes the caller's access token
// @Summary User Logout
// @Description Revoke the presented access token
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse "Logged out"
// @Failure 401 {object} dto.APIResponse "Not authenticated"
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	user, ok := middleware.GetCurrentUserFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	token := strings.TrimPrefix(c.Get("Authorization"), "Bearer ")

	if err := h.authFlow.Logout(requestContext(c, "/api/v1/auth/logout"), user, token, clientMetadata(c)); err != nil {
		log.Println("Logout failed", err)
		return businessErrorResponse(c, err, "Logout failed", "LOGOUT_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Logged out successfully", nil)
}

// Refresh exchanges a refresh token for a fresh token pair
// @Summary Refresh Tokens
// @Description Rotate a refresh token into a new access/refresh pair
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.RefreshTokenRequest true "Refresh token"
// @Success 200 {object} dto.APIResponse{data=dto.TokenPairDTO} "Tokens refreshed"
// @Failure 401 {object} dto.APIResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c fiber.Ctx) error {
	var req dto.RefreshTokenRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	tokens, err := h.authFlow.RefreshTokens(requestContext(c, "/api/v1/auth/refresh"), req.RefreshToken)
	if err != nil {
		return businessErrorResponse(c, err, "Token refresh failed", "REFRESH_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Tokens refreshed", tokens)
}

// Profile returns the authenticated user's account
// @Summary Get Profile
// @Description Fetch the authenticated user's profile
// @Tags Authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.UserDTO} "Profile"
// @Failure 401 {object} dto.APIResponse "Not authenticated"
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Profile(c fiber.Ctx) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Authentication required", "AUTHENTICATION_REQUIRED", nil)
	}

	profile, err := h.authFlow.GetProfile(requestContext(c, "/api/v1/auth/me"), userID)
	if err != nil {
		return businessErrorResponse(c, err, "Failed to fetch profile", "PROFILE_FETCH_FAILED")
	}

	return successResponse(c, fiber.StatusOK, "Profile fetched", profile)
}
