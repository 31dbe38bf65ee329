package security

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/bankingapp/user-service/internal/core/domain"
)

// MinBcryptCost is the lowest work factor accepted for stored hashes.
const MinBcryptCost = 10

// BcryptHasher implements ports.PasswordHasher with bcrypt. Each Hash call
// draws a fresh salt from crypto/rand, and the encoded result carries the
// algorithm version, cost and salt alongside the digest.
//
// Verify is constant-time with respect to the digest: bcrypt re-derives the
// candidate digest and compares it with crypto/subtle.ConstantTimeCompare.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < MinBcryptCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d", MinBcryptCost, bcrypt.MaxCost, cost)
	}
	return &BcryptHasher{cost: cost}, nil
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", domain.ErrPasswordTooLong
		}
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(plain, hash string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
