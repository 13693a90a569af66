package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/helioauth/accounts/pkg/domain"
	"github.com/helioauth/accounts/pkg/repository"
)

// fakeSender records sent codes and can be told to fail.
type fakeSender struct {
	mu       sync.Mutex
	fail     bool
	lastCode string
	sent     int
}

func (f *fakeSender) SendOTPEmail(to, name, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return domain.ErrEmailSend
	}
	f.lastCode = code
	f.sent++
	return nil
}

func newTestServices(t *testing.T) (*repository.MemoryStore, *AccountService, *VerificationService, *fakeSender) {
	t.Helper()
	store := repository.NewMemoryStore()
	hasher := NewHasher(bcrypt.MinCost)
	accounts := NewAccountService(store, hasher)
	sender := &fakeSender{}
	verification := NewVerificationService(VerificationConfig{}, store, sender)
	return store, accounts, verification, sender
}

// seedPasswordAccount creates an unverified password account directly in the
// store.
func seedPasswordAccount(t *testing.T, store *repository.MemoryStore, email string) *domain.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing seed password: %v", err)
	}
	h := string(hash)
	now := time.Now()
	acct := &domain.Account{
		ID:           uuid.New(),
		Name:         "Test User",
		Email:        email,
		PasswordHash: &h,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.Create(context.Background(), acct); err != nil {
		t.Fatalf("seeding account: %v", err)
	}
	return acct
}
