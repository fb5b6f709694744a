package crypto

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/turtacn/perimeter/internal/config"
	"github.com/turtacn/perimeter/pkg/constants"
	"github.com/turtacn/perimeter/pkg/errors"
	"github.com/turtacn/perimeter/pkg/logger"
)

// SigningKey is the process-wide HMAC secret. It never renders its bytes
// through fmt, so accidentally logging it prints a placeholder.
type SigningKey struct {
	b []byte
}

// NewSigningKey validates and wraps raw key bytes.
func NewSigningKey(raw []byte) (*SigningKey, error) {
	if len(raw) < constants.SigningKeyMinLength {
		return nil, errors.ErrInvalidConfig.WithMessage(
			fmt.Sprintf("signing key must be at least %d bytes, got %d", constants.SigningKeyMinLength, len(raw)))
	}
	b := make([]byte, len(raw))
	copy(b, raw)
	return &SigningKey{b: b}, nil
}

// ParseSigningKey decodes a standard base64 secret.
func ParseSigningKey(encoded string) (*SigningKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.ErrInvalidConfig.WithMessage("signing key is not valid base64").WithCause(err)
	}
	return NewSigningKey(raw)
}

// GenerateSigningKey returns a fresh random key of the minimum length.
func GenerateSigningKey() (*SigningKey, error) {
	raw := make([]byte, constants.SigningKeyMinLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	return NewSigningKey(raw)
}

// Bytes returns the key material for signing.
func (k *SigningKey) Bytes() []byte { return k.b }

// Base64 encodes the key for configuration files.
func (k *SigningKey) Base64() string { return base64.StdEncoding.EncodeToString(k.b) }

func (k *SigningKey) String() string   { return "SigningKey(***)" }
func (k *SigningKey) GoString() string { return k.String() }

// KeySource fetches the base64 secret from an external store.
type KeySource interface {
	FetchSigningKey(ctx context.Context) (string, error)
}

// LoadSigningKey resolves the signing key once at startup, from Vault when it is
// enabled and from jwt.secret_base64 otherwise.
func LoadSigningKey(ctx context.Context, cfg *config.Config, log logger.Logger) (*SigningKey, error) {
	if cfg.Vault.Enabled {
		source, err := NewVaultKeySource(&cfg.Vault)
		if err != nil {
			return nil, err
		}
		return loadFromSource(ctx, source, log)
	}
	if cfg.JWT.SecretBase64 == "" {
		return nil, errors.ErrInvalidConfig.WithMessage("jwt.secret_base64 is required when vault is disabled")
	}
	log.Info(ctx, "Signing key loaded from configuration")
	return ParseSigningKey(cfg.JWT.SecretBase64)
}

func loadFromSource(ctx context.Context, source KeySource, log logger.Logger) (*SigningKey, error) {
	encoded, err := source.FetchSigningKey(ctx)
	if err != nil {
		log.Error(ctx, "Failed to fetch signing key", err)
		return nil, err
	}
	key, err := ParseSigningKey(encoded)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "Signing key loaded from vault")
	return key, nil
}
