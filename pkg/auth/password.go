package auth

import (
	"errors"

	"github.com/helioauth/accounts/pkg/domain"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultBcryptCost is the work factor used when none is configured.
	DefaultBcryptCost = 12

	minPasswordLength = 8
	maxPasswordBytes  = 72 // bcrypt silently truncates beyond 72 bytes
)

// Hasher hashes and verifies passwords with bcrypt. The cost is a
// deployment-level setting injected at construction; tests use a low cost to
// stay fast.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the given bcrypt cost. A cost of 0 selects
// DefaultBcryptCost.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = DefaultBcryptCost
	}
	return &Hasher{cost: cost}
}

// Hash hashes a plaintext password. The returned string embeds the salt and
// cost, so the same plaintext yields a different digest on every call.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", domain.ErrWeakPassword
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plaintext matches the stored digest. A mismatch
// returns (false, nil); only a malformed digest returns a non-nil error.
func (h *Hasher) Verify(plaintext, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, err
}

// ValidatePassword checks a candidate password against the registration
// policy.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordBytes {
		return domain.ErrWeakPassword
	}
	return nil
}
