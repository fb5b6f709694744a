package service

import (
	"context"

	"github.com/turtacn/perimeter/internal/domain/models"
)

//go:generate mockery --name TokenCodec --output mocks --outpkg mocks
// TokenCodec issues and verifies signed, time-bounded identity tokens.
type TokenCodec interface {
	// Issue signs a token for subject and roles, valid for ttlSeconds from now.
	Issue(subject string, roles []string, ttlSeconds int64) (string, error)

	// Verify checks integrity and expiry and returns the decoded claims.
	// Failures are errors.ErrTokenInvalid or errors.ErrTokenExpired.
	Verify(token string) (*models.Claims, error)
}

//go:generate mockery --name IdentityValidator --output mocks --outpkg mocks
// IdentityValidator is the capability the login flow needs from the identity store.
// A definitive answer (accepted or rejected) is returned as an IdentityResult with a
// nil error; a non-nil error means the store could not answer.
type IdentityValidator interface {
	Validate(ctx context.Context, username, password string) (models.IdentityResult, error)
}

//go:generate mockery --name AuditService --output mocks --outpkg mocks
// AuditService records login outcomes.
type AuditService interface {
	LogLoginEvent(ctx context.Context, event *models.LoginAuditEvent) error
}

// PasswordVerifier compares a plaintext password with a stored hash.
type PasswordVerifier interface {
	Compare(hash, password string) error
	Hash(password string) (string, error)
}
