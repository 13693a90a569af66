package auth

import (
	"context"
	"time"

	"github.com/helioauth/accounts/pkg/domain"
)

// DefaultMaxOTPAttempts is the number of wrong codes an account may submit
// before a fresh code must be issued.
const DefaultMaxOTPAttempts = 5

// OTPSender delivers verification codes. Implemented by
// notification.EmailService; tests substitute a recorder.
type OTPSender interface {
	SendOTPEmail(to, name, code string) error
}

// VerificationConfig holds verification state machine configuration.
type VerificationConfig struct {
	OTPTTL      time.Duration
	MaxAttempts int
}

// VerificationService governs the email-verification state machine:
// unverified accounts move from no-code to code-pending on issue, to blocked
// after MaxAttempts wrong codes, and to verified exactly once on a match.
type VerificationService struct {
	config VerificationConfig
	store  AccountStore
	sender OTPSender
}

// NewVerificationService creates a verification service. Zero config fields
// select the defaults (10 minute TTL, 5 attempts).
func NewVerificationService(config VerificationConfig, store AccountStore, sender OTPSender) *VerificationService {
	if config.OTPTTL == 0 {
		config.OTPTTL = DefaultOTPTTL
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultMaxOTPAttempts
	}
	return &VerificationService{
		config: config,
		store:  store,
		sender: sender,
	}
}

// IssueOTP generates a fresh code for an unverified account, persists it with
// a reset attempt counter, and emails it. Issuing is always allowed while the
// account is unverified, which is what makes resend work and what unblocks an
// account that exhausted its attempts.
//
// The code is persisted before the email goes out. A send failure is
// reported as domain.ErrEmailSend and does not roll back the stored code;
// the caller decides whether delivery is best-effort (registration) or
// mandatory (resend).
func (s *VerificationService) IssueOTP(ctx context.Context, account *domain.Account) error {
	if account.EmailVerified {
		return domain.ErrAlreadyVerified
	}

	code, expiresAt, err := GenerateOTP(s.config.OTPTTL)
	if err != nil {
		return err
	}

	v := domain.Verification{
		Code:      code,
		ExpiresAt: expiresAt,
		Attempts:  0,
	}
	if err := s.store.SetVerification(ctx, account.ID, v); err != nil {
		return err
	}
	account.Verification = &v

	if err := s.sender.SendOTPEmail(account.Email, account.Name, code); err != nil {
		return domain.ErrEmailSend
	}
	return nil
}

// Resend looks an account up by email and issues a new code.
func (s *VerificationService) Resend(ctx context.Context, email string) error {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return err
	}
	return s.IssueOTP(ctx, account)
}

// CheckOTP validates a supplied code against the account's pending
// verification record. On a match it marks the email verified and clears the
// record; the verified transition is single-shot, so replaying the same code
// fails with domain.ErrNoPendingVerification.
//
// remaining is meaningful only when the error is domain.ErrInvalidOTP: it
// reports how many attempts are left before the account is blocked.
func (s *VerificationService) CheckOTP(ctx context.Context, account *domain.Account, suppliedCode string) (remaining int, err error) {
	if account.EmailVerified || account.Verification == nil {
		return 0, domain.ErrNoPendingVerification
	}

	v := account.Verification
	if v.OTPExpired() {
		// The code is not consumed; a new one must be issued.
		return 0, domain.ErrOTPExpired
	}
	if v.Attempts >= s.config.MaxAttempts {
		return 0, domain.ErrOTPAttemptsExhausted
	}

	if !otpEqual(v.Code, suppliedCode) {
		attempts, err := s.store.IncrementVerificationAttempts(ctx, account.ID)
		if err != nil {
			return 0, err
		}
		v.Attempts = attempts
		return s.config.MaxAttempts - attempts, domain.ErrInvalidOTP
	}

	if err := s.store.MarkEmailVerified(ctx, account.ID); err != nil {
		return 0, err
	}
	account.EmailVerified = true
	account.Verification = nil
	return 0, nil
}
