package crypto

import (
	stderrors "errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/turtacn/perimeter/internal/domain/service"
	"github.com/turtacn/perimeter/pkg/errors"
)

// BcryptVerifier implements service.PasswordVerifier with bcrypt.
type BcryptVerifier struct {
	cost int
}

// NewBcryptVerifier returns a verifier hashing at cost, or bcrypt.DefaultCost when cost is out of range.
func NewBcryptVerifier(cost int) service.PasswordVerifier {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptVerifier{cost: cost}
}

// Compare returns errors.ErrInvalidCredentials when password does not match hash.
func (v *BcryptVerifier) Compare(hash, password string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if err == nil {
		return nil
	}
	if stderrors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return errors.ErrInvalidCredentials
	}
	return errors.ErrInvalidCredentials.WithCause(err)
}

func (v *BcryptVerifier) Hash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), v.cost)
	if err != nil {
		return "", errors.ErrInvalidRequest.WithMessage("password cannot be hashed").WithCause(err)
	}
	return string(hash), nil
}
