package auth

import (
	"net/mail"
	"strings"

	"github.com/helioauth/accounts/pkg/domain"
)

const maxEmailLength = 254 // RFC 5321

// ValidateEmail validates an email address for format and length.
func ValidateEmail(email string) error {
	if email == "" {
		return domain.ErrInvalidEmail
	}
	if len(email) > maxEmailLength {
		return domain.ErrInvalidEmail
	}
	if _, err := mail.ParseAddress(NormalizeEmail(email)); err != nil {
		return domain.ErrInvalidEmail
	}
	return nil
}

// NormalizeEmail normalizes an email address by lowercasing and trimming.
// All lookups and stored values use the normalized form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
