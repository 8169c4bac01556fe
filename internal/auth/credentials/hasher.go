package credentials

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	HashVersionBcrypt = "bcrypt"
)

var ErrSecretTooShort = errors.New("secret too short")

// Hasher hashes one-time secrets with bcrypt.
type Hasher struct {
	Cost int
}

func NewHasher(cost int) Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return Hasher{Cost: cost}
}

// Hash hashes a plaintext secret.
func (h Hasher) Hash(secret string) (hash string, version string, err error) {
	if len(secret) < 16 {
		return "", "", ErrSecretTooShort
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(secret), h.Cost)
	if err != nil {
		return "", "", err
	}

	return string(bytes), HashVersionBcrypt, nil
}

// Verify compares a plaintext secret with a stored hash.
func (h Hasher) Verify(hash string, secret string) error {
	return bcrypt.CompareHashAndPassword(
		[]byte(hash),
		[]byte(secret),
	)
}
