package auth

import (
	"errors"
	"fmt"

	"github.com/hefi-app/hefi/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned by BcryptHasher.Hash for passwords bcrypt
// cannot take. It is a validation error.
var ErrPasswordTooLong = fmt.Errorf("%w: password longer than 72 bytes", common.ErrorValidation)

// Hasher produces and checks one-way password hashes.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// BcryptHasher is a Hasher using bcrypt; the salt and cost live in the hash.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher clamps cost into bcrypt's accepted range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	if cost > bcrypt.MaxCost {
		cost = bcrypt.MaxCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(b), nil
}

// Verify is false for a wrong password and for anything that is not a
// bcrypt hash.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
