package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a user account. Exactly one credential path exists for
// an account that has never linked: password accounts carry PasswordHash,
// Google accounts carry GoogleID. A linked account carries both, with
// IsGoogleAuth set.
type Account struct {
	ID            uuid.UUID
	Name          string
	Email         string
	PasswordHash  *string
	GoogleID      *string
	Picture       string
	IsGoogleAuth  bool
	EmailVerified bool
	Verification  *Verification
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Verification is the pending email-verification record. It exists only
// while EmailVerified is false and an OTP has been issued; successful
// verification clears it in the same update that flips EmailVerified.
type Verification struct {
	// Code is a 6-digit numeric string. Leading zeros are significant, so it
	// is compared as a string, never as a number.
	Code      string
	ExpiresAt time.Time
	Attempts  int
}

// HasPassword returns true if the account can log in with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// OTPExpired returns true if the pending verification code has expired.
func (v *Verification) OTPExpired() bool {
	return time.Now().After(v.ExpiresAt)
}
