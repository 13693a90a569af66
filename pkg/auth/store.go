package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/helioauth/accounts/pkg/domain"
)

// AccountStore is the persistence contract the auth services depend on. Every
// operation is atomic at the single-record level; uniqueness of email and
// google_id is enforced by the implementation at create and update time.
type AccountStore interface {
	// Create persists a new account. Returns domain.ErrEmailTaken or
	// domain.ErrGoogleIDTaken on uniqueness violations.
	Create(ctx context.Context, account *domain.Account) error

	// GetByEmail looks up an account by normalized (lower-cased) email.
	// Returns domain.ErrAccountNotFound if no account exists.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)

	// GetByID looks up an account by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)

	// SetVerification replaces the pending verification record, resetting the
	// attempt counter. Valid for unverified accounts in any state.
	SetVerification(ctx context.Context, id uuid.UUID, v domain.Verification) error

	// IncrementVerificationAttempts bumps the attempt counter by one and
	// returns the new value. The increment is read-modify-write safe per
	// record: concurrent calls never lose an increment.
	IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int, error)

	// MarkEmailVerified flips EmailVerified to true and clears the
	// verification record in one conditional update. It only matches an
	// unverified account with a pending code, so a replay returns
	// domain.ErrNoPendingVerification.
	MarkEmailVerified(ctx context.Context, id uuid.UUID) error

	// LinkGoogle attaches a Google identity: sets GoogleID, IsGoogleAuth and
	// EmailVerified, clears any pending verification, keeps the password.
	LinkGoogle(ctx context.Context, id uuid.UUID, googleID, picture string) error

	// UpdatePicture refreshes the display image reference.
	UpdatePicture(ctx context.Context, id uuid.UUID, picture string) error

	// UpdateProfile updates name and email. An email change resets
	// EmailVerified to false. Returns domain.ErrEmailTaken if the new email
	// belongs to another account.
	UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, emailChanged bool) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}
