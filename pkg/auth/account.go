package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/helioauth/accounts/pkg/domain"
)

// AccountService handles registration, password login, and profile changes.
type AccountService struct {
	store  AccountStore
	hasher *Hasher
}

// NewAccountService creates a new account service.
func NewAccountService(store AccountStore, hasher *Hasher) *AccountService {
	return &AccountService{
		store:  store,
		hasher: hasher,
	}
}

// Register creates a new unverified password account. The caller is expected
// to follow up with VerificationService.IssueOTP.
func (s *AccountService) Register(ctx context.Context, name, email, password string) (*domain.Account, error) {
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	email = NormalizeEmail(email)

	name = SanitizeName(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	account := &domain.Account{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  &hash,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

// Authenticate verifies email and password. Unknown accounts, Google-only
// accounts, and wrong passwords all yield domain.ErrInvalidCredentials so a
// caller cannot probe which emails are registered. An unverified account
// fails with domain.ErrEmailNotVerified regardless of password correctness,
// and the check performs no writes.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	account, err := s.store.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !account.HasPassword() {
		return nil, domain.ErrInvalidCredentials
	}

	ok, err := s.hasher.Verify(password, *account.PasswordHash)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidCredentials
	}

	if !account.EmailVerified {
		return nil, domain.ErrEmailNotVerified
	}
	return account, nil
}

// GetByID retrieves an account by ID.
func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.store.GetByID(ctx, id)
}

// GetByEmail retrieves an account by email.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.store.GetByEmail(ctx, NormalizeEmail(email))
}

// UpdateProfile updates name and/or email. Changing the email resets
// EmailVerified; the caller issues a fresh OTP to the new address. Returns
// the updated account and whether the email changed.
func (s *AccountService) UpdateProfile(ctx context.Context, account *domain.Account, name, email *string) (*domain.Account, bool, error) {
	newName := account.Name
	if name != nil {
		newName = SanitizeName(*name)
		if newName == "" {
			return nil, false, domain.ErrInvalidName
		}
	}

	newEmail := account.Email
	emailChanged := false
	if email != nil && NormalizeEmail(*email) != account.Email {
		if err := ValidateEmail(*email); err != nil {
			return nil, false, err
		}
		newEmail = NormalizeEmail(*email)
		emailChanged = true
	}

	if err := s.store.UpdateProfile(ctx, account.ID, newName, newEmail, emailChanged); err != nil {
		return nil, false, err
	}

	updated, err := s.store.GetByID(ctx, account.ID)
	if err != nil {
		return nil, false, err
	}
	return updated, emailChanged, nil
}

// ChangePassword verifies the current password and stores a new hash.
// Accounts without a password credential (Google-only) fail with
// domain.ErrNoPassword.
func (s *AccountService) ChangePassword(ctx context.Context, account *domain.Account, currentPassword, newPassword string) error {
	if !account.HasPassword() {
		return domain.ErrNoPassword
	}

	ok, err := s.hasher.Verify(currentPassword, *account.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidCredentials
	}

	if err := ValidatePassword(newPassword); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, account.ID, hash)
}
