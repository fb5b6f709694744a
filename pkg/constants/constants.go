// Package constants defines system-wide constants for the perimeter services.
// This package provides type-safe constant definitions used across all modules.
package constants

import "time"

// ================================================================================
// HTTP Header Constants
// ================================================================================

const (
	// HeaderAuthorization carries the bearer token on inbound requests
	HeaderAuthorization = "Authorization"

	// HeaderRequestID is the correlation identifier header
	HeaderRequestID = "X-Request-Id"

	// HeaderUserID is injected downstream with the token subject
	HeaderUserID = "X-User-Id"

	// HeaderRoles is injected downstream with the comma-joined role list
	HeaderRoles = "X-Roles"

	// BearerScheme is the authorization scheme accepted by the gateway
	BearerScheme = "Bearer"
)

// ================================================================================
// Token Constants
// ================================================================================

const (
	// TokenDefaultTTL is the default lifetime of an issued token
	TokenDefaultTTL = 3600 * time.Second

	// SigningKeyMinLength is the minimum accepted HMAC key size in bytes
	SigningKeyMinLength = 32

	// ClaimRoles is the payload claim carrying the role list
	ClaimRoles = "roles"
)

// ================================================================================
// Resilience Defaults
// ================================================================================

const (
	// DefaultFailureRateThreshold is the failure percentage that opens a breaker
	DefaultFailureRateThreshold = 50.0

	// DefaultWaitDurationInOpenState is how long a breaker stays open
	DefaultWaitDurationInOpenState = 30 * time.Second

	// DefaultSlidingWindowSize is the number of outcomes a breaker remembers
	DefaultSlidingWindowSize = 10

	// DefaultMinimumNumberOfCalls is the outcome count required before evaluation
	DefaultMinimumNumberOfCalls = 5

	// DefaultRetryMaxAttempts is the total number of attempts, first call included
	DefaultRetryMaxAttempts = 3

	// DefaultRetryWaitDuration is the fixed pause between attempts
	DefaultRetryWaitDuration = 1 * time.Second

	// IdentityServiceTarget names the breaker guarding the identity store
	IdentityServiceTarget = "identity-service"
)

// ================================================================================
// Cache Constants
// ================================================================================

const (
	// UserCacheTTL is the lifetime of a cached user record
	UserCacheTTL = 10 * time.Minute

	// UserCacheL1TTL is the in-process cache lifetime of a user record
	UserCacheL1TTL = 1 * time.Minute

	// UserCacheKeyPrefix namespaces user records in Redis
	UserCacheKeyPrefix = "perimeter:users:"
)

// ================================================================================
// Login Outcome Constants
// ================================================================================

// LoginOutcome labels the result of a login attempt for metrics and audit
type LoginOutcome string

const (
	LoginOutcomeSuccess            LoginOutcome = "success"
	LoginOutcomeInvalidCredentials LoginOutcome = "invalid_credentials"
	LoginOutcomeUnavailable        LoginOutcome = "unavailable"
	LoginOutcomeError              LoginOutcome = "error"
)

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey represents keys used in context.Context
type ContextKey string

const (
	// ContextKeyRequestID is the key for request ID in context
	ContextKeyRequestID ContextKey = "request_id"

	// ContextKeyUserID is the key for the authenticated subject in context
	ContextKeyUserID ContextKey = "user_id"
)

// GinKeyRoute is the gin context key holding the gateway route prefix a
// forwarded request matched.
const GinKeyRoute = "perimeter.route"

// ================================================================================
// Service Names
// ================================================================================

const (
	ServiceGateway  = "perimeter-gateway"
	ServiceAuth     = "perimeter-auth"
	ServiceIdentity = "perimeter-identity"
)
