// Package dto contains Data Transfer Objects for API request and response structures
package dto

// SignupRequest represents the request payload for account creation
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=255" example:"John Doe"`
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginRequest represents the request payload for user login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255" example:"user@example.com"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// RefreshTokenRequest represents the request payload for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// TokenPairDTO carries a freshly issued access/refresh token pair
type TokenPairDTO struct {
	AccessToken  string `json:"access_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType    string `json:"token_type" example:"Bearer"`
	ExpiresIn    int    `json:"expires_in" example:"86400"`
}

// UserDTO represents user information returned by the API
type UserDTO struct {
	ID        uint   `json:"id" example:"123"`
	UUID      string `json:"uuid" example:"550e8400-e29b-41d4-a716-446655440000"`
	Name      string `json:"name" example:"John Doe"`
	Email     string `json:"email" example:"user@example.com"`
	Role      string `json:"role" example:"USER"`
	Status    string `json:"status" example:"ACTIVE"`
	Version   int    `json:"version" example:"1"`
	CreatedAt string `json:"created_at" example:"2024-01-15T10:30:00Z"`
}

// AuthResponse represents a successful signup or login
type AuthResponse struct {
	User   UserDTO      `json:"user"`
	Tokens TokenPairDTO `json:"tokens"`
}
