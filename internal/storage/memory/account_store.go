package memory

import (
	"context"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/storage"
)

// AccountStore is an in-memory implementation of storage.AccountStore.
// Update holds a single writer lock, so all account transactions are serialized.
type AccountStore struct {
	mu       sync.RWMutex
	writeMu  sync.Mutex
	accounts map[solana.PublicKey]*domain.Account
}

// NewAccountStore creates a new in-memory account store.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		accounts: make(map[solana.PublicKey]*domain.Account),
	}
}

// Get retrieves an account by address. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(_ context.Context, address solana.PublicKey) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[address]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return a.Clone(), nil
}

// Update runs fn against a staged view and applies its writes atomically.
func (s *AccountStore) Update(ctx context.Context, fn func(tx storage.AccountTx) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx := &accountTx{store: s, staged: make(map[solana.PublicKey]*domain.Account)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	s.mu.Lock()
	for addr, a := range tx.staged {
		a.UpdatedAt = now
		s.accounts[addr] = a
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored accounts.
func (s *AccountStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}

// accountTx stages writes until the enclosing Update commits.
type accountTx struct {
	store  *AccountStore
	staged map[solana.PublicKey]*domain.Account
}

func (tx *accountTx) Get(ctx context.Context, address solana.PublicKey) (*domain.Account, error) {
	if a, ok := tx.staged[address]; ok {
		return a.Clone(), nil
	}
	return tx.store.Get(ctx, address)
}

func (tx *accountTx) Put(_ context.Context, a *domain.Account) error {
	if a == nil {
		return storage.ErrInvalidInput
	}
	tx.staged[a.Address] = a.Clone()
	return nil
}

var _ storage.AccountStore = (*AccountStore)(nil)
