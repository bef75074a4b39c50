// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/inventara/inventara/app/dto"
	"github.com/inventara/inventara/app/services"
	"github.com/inventara/inventara/models"
	"github.com/inventara/inventara/repository"
)

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	userRepo     repository.UserRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		userRepo:     userRepo,
	}
}

// Authenticate is the middleware function that validates JWT tokens
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token, err := extractBearerToken(c)
		if err != nil {
			code, message := bearerErrorResponse(err)
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error:   dto.ErrorDetail{Code: code},
			})
		}

		// Validate the token (this already checks for revocation)
		claims, err := m.tokenService.ValidateToken(c.Context(), token)
		if err != nil {
			code, message := tokenErrorResponse(err)
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: message,
				Error: dto.ErrorDetail{
					Code: code,
				},
			})
		}

		if claims.TokenType != "access" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid access token",
				Error:   dto.ErrorDetail{Code: "TOKEN_INVALID"},
			})
		}

		// Load the account so downstream handlers see current role and status
		user, err := m.userRepo.ByID(c.Context(), claims.UserID)
		if err != nil || user == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Account no longer exists",
				Error:   dto.ErrorDetail{Code: "ACCOUNT_NOT_FOUND"},
			})
		}
		if user.IsBlocked() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Account is blocked",
				Error:   dto.ErrorDetail{Code: "ACCOUNT_BLOCKED"},
			})
		}

		// Store user information in context for downstream handlers
		c.Locals("user_id", claims.UserID)
		c.Locals("current_user", user)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		// Continue to the next handler
		return c.Next()
	}
}

// RequireAdminRole gates a route group to platform administrators. Must run
// after Authenticate.
func (m *AuthMiddleware) RequireAdminRole() fiber.Handler {
	return func(c fiber.Ctx) error {
		user, ok := GetCurrentUserFromContext(c)
		if !ok {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Authentication required",
				Error:   dto.ErrorDetail{Code: "AUTHENTICATION_REQUIRED"},
			})
		}
		if !user.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Administrator privileges required",
				Error:   dto.ErrorDetail{Code: "ADMIN_REQUIRED"},
			})
		}
		return c.Next()
	}
}

// OptionalAuth is a middleware that validates JWT tokens if present, but doesn't require them.
// Anonymous and invalid-token requests pass through with no user in context.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			return c.Next()
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			return c.Next()
		}

		claims, err := m.tokenService.ValidateToken(c.Context(), token)
		if err != nil || claims.TokenType != "access" {
			// Token is invalid, but this is optional auth, so continue
			return c.Next()
		}

		user, err := m.userRepo.ByID(c.Context(), claims.UserID)
		if err != nil || user == nil || user.IsBlocked() {
			return c.Next()
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("current_user", user)
		c.Locals("token_id", claims.TokenID)
		c.Locals("token_claims", claims)

		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// Bearer extraction failures. extractBearerToken must not write the response
// itself; the caller maps these to the 401 payload.
var (
	errMissingAuthHeader  = errors.New("authorization header is required")
	errInvalidAuthFormat  = errors.New("authorization header is not a bearer token")
	errMissingAccessToken = errors.New("bearer token is empty")
)

func extractBearerToken(c fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", errMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", errInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", errMissingAccessToken
	}

	return token, nil
}

func bearerErrorResponse(err error) (code, message string) {
	switch {
	case errors.Is(err, errMissingAuthHeader):
		return "MISSING_AUTHORIZATION_HEADER", "Authorization header is required"
	case errors.Is(err, errInvalidAuthFormat):
		return "INVALID_AUTHORIZATION_FORMAT", "Invalid authorization header format. Expected 'Bearer <token>'"
	default:
		return "MISSING_ACCESS_TOKEN", "Access token is required"
	}
}

func tokenErrorResponse(err error) (code, message string) {
	switch {
	case errors.Is(err, services.ErrTokenExpired):
		return "TOKEN_EXPIRED", "Access token has expired"
	case errors.Is(err, services.ErrTokenRevoked):
		return "TOKEN_REVOKED", "Access token has been revoked"
	case errors.Is(err, services.ErrTokenInvalid):
		return "TOKEN_INVALID", "Invalid access token"
	default:
		return "TOKEN_VALIDATION_FAILED", "Token validation failed"
	}
}

// GetUserIDFromContext extracts the authenticated user's id from the request context
func GetUserIDFromContext(c fiber.Ctx) (uint, bool) {
	userID, ok := c.Locals("user_id").(uint)
	return userID, ok
}

// GetCurrentUserFromContext extracts the authenticated user from the request context.
// Returns false for anonymous requests.
func GetCurrentUserFromContext(c fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("current_user").(*models.User)
	return user, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.TokenClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.TokenClaims)
	return claims, ok
}
