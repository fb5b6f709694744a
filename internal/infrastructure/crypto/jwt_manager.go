package crypto

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/turtacn/perimeter/internal/domain/models"
	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/errors"
)

// signingMethod is fixed; tokens carrying any other alg header are rejected.
var signingMethod = jwt.SigningMethodHS256

type jwtManager struct {
	key *SigningKey
	now func() time.Time
}

// Option configures a JWT manager.
type Option func(*jwtManager)

// WithClock overrides the time source used for iat/exp and for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *jwtManager) {
		m.now = now
	}
}

// NewJWTManager creates the token codec backed by an HMAC-SHA256 signing key.
func NewJWTManager(key *SigningKey, opts ...Option) service.TokenCodec {
	m := &jwtManager{key: key, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Issue creates and signs a new token. exp is iat plus ttlSeconds, both at second precision.
func (m *jwtManager) Issue(subject string, roles []string, ttlSeconds int64) (string, error) {
	if subject == "" {
		return "", errors.ErrInvalidRequest.WithMessage("token subject is required")
	}
	if ttlSeconds <= 0 {
		return "", errors.ErrInvalidRequest.WithMessage("token ttl must be positive")
	}
	if roles == nil {
		roles = []string{}
	}

	issuedAt := m.now().UTC().Truncate(time.Second)
	claims := models.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(time.Duration(ttlSeconds) * time.Second)),
		},
		Roles: roles,
	}

	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(m.key.Bytes())
	if err != nil {
		return "", errors.ErrUnknown.WithMessage("failed to sign token").WithCause(err)
	}
	return signed, nil
}

// Verify parses and validates a token string. There is no leeway: a token is
// rejected from the exact second named in exp.
func (m *jwtManager) Verify(tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return m.key.Bytes(), nil
		},
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithTimeFunc(m.now),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) && !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, errors.ErrTokenExpired.WithCause(err)
		}
		return nil, errors.ErrTokenInvalid.WithCause(err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.ErrTokenInvalid.WithMessage("token has no subject")
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	return claims, nil
}
