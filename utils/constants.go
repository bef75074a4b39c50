package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// AccessTokenTTLSeconds is the time-to-live for access tokens in seconds (86400 seconds = 24 hours)
	AccessTokenTTLSeconds = 86400

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour

	// SessionTimeout is the default session timeout (24 hours)
	SessionTimeout = 24 * time.Hour
)

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Listing constants
const (
	// DefaultPageSize is the page size applied when a list request carries none
	DefaultPageSize = 20

	// MaxPageSize caps the page size of any list request
	MaxPageSize = 100
)

// Custom id constants
const (
	// MaxIdAllocationAttempts bounds the insert-retry loop that absorbs
	// identifier collisions from concurrent writers
	MaxIdAllocationAttempts = 3
)
