package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/helioauth/accounts/pkg/domain"
)

const uniqueViolation = "23505"

// AccountsRepository persists accounts in Postgres. It implements
// auth.AccountStore: every operation is a single-record statement, and email
// and google_id uniqueness are enforced by the unique indexes created in the
// migrations.
type AccountsRepository struct {
	db *sql.DB
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

const accountColumns = `
	id, name, email, password_hash, google_id, picture, is_google_auth,
	email_verified, otp_code, otp_expires_at, otp_attempts, created_at, updated_at
`

func scanAccount(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var otpCode sql.NullString
	var otpExpiresAt sql.NullTime
	var otpAttempts int

	err := row.Scan(
		&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.GoogleID, &a.Picture,
		&a.IsGoogleAuth, &a.EmailVerified, &otpCode, &otpExpiresAt, &otpAttempts,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}

	if otpCode.Valid {
		a.Verification = &domain.Verification{
			Code:      otpCode.String,
			ExpiresAt: otpExpiresAt.Time,
			Attempts:  otpAttempts,
		}
	}
	return a, nil
}

// mapUniqueViolation translates Postgres unique constraint errors to domain
// errors by constraint name.
func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		switch pqErr.Constraint {
		case "accounts_google_id_key":
			return domain.ErrGoogleIDTaken
		default:
			return domain.ErrEmailTaken
		}
	}
	return err
}

// Create creates a new account.
func (r *AccountsRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, name, email, password_hash, google_id, picture,
		                      is_google_auth, email_verified, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Name, a.Email, a.PasswordHash, a.GoogleID, a.Picture,
		a.IsGoogleAuth, a.EmailVerified, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// GetByEmail retrieves an account by normalized email.
func (r *AccountsRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, email))
}

// GetByID retrieves an account by ID.
func (r *AccountsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.db.QueryRowContext(ctx, query, id))
}

// SetVerification replaces the pending verification record and resets the
// attempt counter. Only matches unverified accounts.
func (r *AccountsRepository) SetVerification(ctx context.Context, id uuid.UUID, v domain.Verification) error {
	query := `
		UPDATE accounts
		SET otp_code = $2, otp_expires_at = $3, otp_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND email_verified = FALSE
	`
	return r.mustMatch(ctx, query, id, v.Code, v.ExpiresAt)
}

// IncrementVerificationAttempts bumps the attempt counter and returns the new
// value. The increment happens in the database, so concurrent checks
// serialize on the row and never lose an increment.
func (r *AccountsRepository) IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE accounts
		SET otp_attempts = otp_attempts + 1, updated_at = NOW()
		WHERE id = $1 AND otp_code IS NOT NULL
		RETURNING otp_attempts
	`
	var attempts int
	err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNoPendingVerification
	}
	if err != nil {
		return 0, err
	}
	return attempts, nil
}

// MarkEmailVerified flips email_verified and clears the verification record
// in one conditional update. The condition makes verification single-shot: a
// replay matches no rows.
func (r *AccountsRepository) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE accounts
		SET email_verified = TRUE, otp_code = NULL, otp_expires_at = NULL,
		    otp_attempts = 0, updated_at = NOW()
		WHERE id = $1 AND email_verified = FALSE AND otp_code IS NOT NULL
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrNoPendingVerification
	}
	return nil
}

// LinkGoogle attaches a Google identity to an existing account. The password
// hash, when present, is retained so both login paths keep working.
func (r *AccountsRepository) LinkGoogle(ctx context.Context, id uuid.UUID, googleID, picture string) error {
	query := `
		UPDATE accounts
		SET google_id = $2, is_google_auth = TRUE, email_verified = TRUE,
		    picture = CASE WHEN $3 <> '' THEN $3 ELSE picture END,
		    otp_code = NULL, otp_expires_at = NULL, otp_attempts = 0,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, googleID, picture)
	if err != nil {
		return mapUniqueViolation(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdatePicture refreshes the display image reference.
func (r *AccountsRepository) UpdatePicture(ctx context.Context, id uuid.UUID, picture string) error {
	query := `UPDATE accounts SET picture = $2, updated_at = NOW() WHERE id = $1`
	return r.mustMatch(ctx, query, id, picture)
}

// UpdateProfile updates name and email. An email change resets
// email_verified in the same statement.
func (r *AccountsRepository) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, emailChanged bool) error {
	query := `
		UPDATE accounts
		SET name = $2, email = $3,
		    email_verified = CASE WHEN $4 THEN FALSE ELSE email_verified END,
		    updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id, name, email, emailChanged)
	if err != nil {
		return mapUniqueViolation(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// UpdatePassword replaces the stored password hash.
func (r *AccountsRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE accounts SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	return r.mustMatch(ctx, query, id, passwordHash)
}

// mustMatch executes an update that must affect exactly one row.
func (r *AccountsRepository) mustMatch(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}
