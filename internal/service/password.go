package service

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordVerifier abstracts password hashing so tests can avoid bcrypt cost.
type PasswordVerifier interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) error
}

// BcryptVerifier hashes and verifies passwords with bcrypt.
type BcryptVerifier struct {
	Cost int
}

// NewBcryptVerifier constructs a verifier using the default cost.
func NewBcryptVerifier() *BcryptVerifier {
	return &BcryptVerifier{Cost: bcrypt.DefaultCost}
}

// Hash produces a bcrypt hash for the plaintext.
func (v *BcryptVerifier) Hash(plain string) (string, error) {
	cost := v.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Compare verifies the plaintext against the stored hash.
func (v *BcryptVerifier) Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
