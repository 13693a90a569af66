package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/helioauth/accounts/pkg/domain"
)

// MemoryStore is an in-memory implementation of auth.AccountStore. It mirrors
// the conditional-update semantics of AccountsRepository and backs the
// service tests and local development without Postgres.
type MemoryStore struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]*domain.Account
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (s *MemoryStore) clone(a *domain.Account) *domain.Account {
	cp := *a
	if a.PasswordHash != nil {
		h := *a.PasswordHash
		cp.PasswordHash = &h
	}
	if a.GoogleID != nil {
		g := *a.GoogleID
		cp.GoogleID = &g
	}
	if a.Verification != nil {
		v := *a.Verification
		cp.Verification = &v
	}
	return &cp
}

// Create creates a new account, enforcing email and google_id uniqueness.
func (s *MemoryStore) Create(ctx context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email {
			return domain.ErrEmailTaken
		}
		if account.GoogleID != nil && existing.GoogleID != nil && *existing.GoogleID == *account.GoogleID {
			return domain.ErrGoogleIDTaken
		}
	}
	s.accounts[account.ID] = s.clone(account)
	return nil
}

// GetByEmail looks up an account by normalized email.
func (s *MemoryStore) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == email {
			return s.clone(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

// GetByID looks up an account by ID.
func (s *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return s.clone(a), nil
}

// SetVerification replaces the pending verification record.
func (s *MemoryStore) SetVerification(ctx context.Context, id uuid.UUID, v domain.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.EmailVerified {
		return domain.ErrAccountNotFound
	}
	a.Verification = &domain.Verification{Code: v.Code, ExpiresAt: v.ExpiresAt, Attempts: 0}
	a.UpdatedAt = time.Now()
	return nil
}

// IncrementVerificationAttempts bumps the attempt counter under the store
// lock, matching the row-serialized increment of the SQL implementation.
func (s *MemoryStore) IncrementVerificationAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.Verification == nil {
		return 0, domain.ErrNoPendingVerification
	}
	a.Verification.Attempts++
	a.UpdatedAt = time.Now()
	return a.Verification.Attempts, nil
}

// MarkEmailVerified flips the verified flag and clears the verification
// record; single-shot like the conditional SQL update.
func (s *MemoryStore) MarkEmailVerified(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok || a.EmailVerified || a.Verification == nil {
		return domain.ErrNoPendingVerification
	}
	a.EmailVerified = true
	a.Verification = nil
	a.UpdatedAt = time.Now()
	return nil
}

// LinkGoogle attaches a Google identity.
func (s *MemoryStore) LinkGoogle(ctx context.Context, id uuid.UUID, googleID, picture string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for _, existing := range s.accounts {
		if existing.ID != id && existing.GoogleID != nil && *existing.GoogleID == googleID {
			return domain.ErrGoogleIDTaken
		}
	}
	a.GoogleID = &googleID
	a.IsGoogleAuth = true
	a.EmailVerified = true
	if picture != "" {
		a.Picture = picture
	}
	a.Verification = nil
	a.UpdatedAt = time.Now()
	return nil
}

// UpdatePicture refreshes the display image reference.
func (s *MemoryStore) UpdatePicture(ctx context.Context, id uuid.UUID, picture string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.Picture = picture
	a.UpdatedAt = time.Now()
	return nil
}

// UpdateProfile updates name and email.
func (s *MemoryStore) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string, emailChanged bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	for _, existing := range s.accounts {
		if existing.ID != id && existing.Email == email {
			return domain.ErrEmailTaken
		}
	}
	a.Name = name
	a.Email = email
	if emailChanged {
		a.EmailVerified = false
	}
	a.UpdatedAt = time.Now()
	return nil
}

// UpdatePassword replaces the stored password hash.
func (s *MemoryStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[id]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.PasswordHash = &passwordHash
	a.UpdatedAt = time.Now()
	return nil
}
