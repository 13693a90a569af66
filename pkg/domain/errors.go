package domain

import "errors"

// Account errors
var (
	ErrAccountNotFound = errors.New("account not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrGoogleIDTaken   = errors.New("google identity already linked to another account")
)

// Authentication errors
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email not verified")
	ErrInvalidToken       = errors.New("invalid token")
	ErrNoPassword         = errors.New("account has no password credential")
	ErrIdentityMismatch   = errors.New("google identity does not match the linked account")
)

// Verification errors
var (
	ErrAlreadyVerified       = errors.New("email already verified")
	ErrNoPendingVerification = errors.New("no pending verification")
	ErrOTPExpired            = errors.New("verification code expired")
	ErrOTPAttemptsExhausted  = errors.New("too many failed verification attempts")
	ErrInvalidOTP            = errors.New("invalid verification code")
)

// Validation errors
var (
	ErrInvalidEmail = errors.New("invalid email address")
	ErrInvalidName  = errors.New("name is required")
	ErrWeakPassword = errors.New("password does not meet requirements")
)

// Upstream errors
var (
	ErrEmailSend     = errors.New("failed to send email")
	ErrTokenExchange = errors.New("oauth token exchange failed")
)
