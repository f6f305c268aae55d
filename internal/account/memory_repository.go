package account

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.Mutex
	byEmail map[string]*Account
	byID    map[string]*Account
}

// NewMemoryRepository builds an in-memory account store for tests and
// development mode. The single mutex gives every operation the same
// read-modify-write atomicity the Postgres conditional updates provide.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byEmail: make(map[string]*Account),
		byID:    make(map[string]*Account),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *memoryRepository) Create(_ context.Context, acct Account) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := emailKey(acct.Email)
	if _, exists := r.byEmail[key]; exists {
		return Account{}, ErrDuplicateEmail
	}
	stored := acct
	r.byEmail[key] = &stored
	r.byID[acct.ID] = &stored
	return acct, nil
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byEmail[emailKey(email)]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *acct, nil
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	return *acct, nil
}

func (r *memoryRepository) SetVerificationToken(_ context.Context, id, hash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	if acct.EmailVerified {
		return ErrAlreadyVerified
	}
	exp := expiresAt.UTC()
	acct.VerificationTokenHash = &hash
	acct.VerificationTokenExpiresAt = &exp
	return nil
}

func (r *memoryRepository) MarkVerified(_ context.Context, id, expectHash string) (Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	acct, ok := r.byID[id]
	if !ok {
		return Account{}, ErrNotFound
	}
	if acct.EmailVerified || acct.VerificationTokenHash == nil || *acct.VerificationTokenHash != expectHash {
		return Account{}, ErrAlreadyVerified
	}
	acct.EmailVerified = true
	acct.VerificationTokenHash = nil
	acct.VerificationTokenExpiresAt = nil
	return *acct, nil
}
