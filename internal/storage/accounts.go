package storage

import (
	"context"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/domain"
)

// AccountStore provides access to ledger accounts storage.
type AccountStore interface {
	// Get retrieves an account by address. Returns ErrNotFound if not exists.
	Get(ctx context.Context, address solana.PublicKey) (*domain.Account, error)

	// Update runs fn against a transactional view of the store. Writes made via
	// the view are committed atomically iff fn returns nil; otherwise none persist.
	// Concurrent Updates touching the same address are serialized.
	Update(ctx context.Context, fn func(tx AccountTx) error) error
}

// AccountTx is the view of an AccountStore inside Update.
type AccountTx interface {
	// Get retrieves an account, locking it for the rest of the transaction.
	// Returns ErrNotFound if not exists.
	Get(ctx context.Context, address solana.PublicKey) (*domain.Account, error)

	// Put creates or replaces an account.
	Put(ctx context.Context, a *domain.Account) error
}

// ExecutionLogStore provides access to execution_log storage.
type ExecutionLogStore interface {
	// Insert adds a record. Returns ErrDuplicateKey if (signature, instruction_index) exists.
	Insert(ctx context.Context, r *domain.ExecutionRecord) error

	// GetBySignature retrieves records of one transaction, ordered by instruction_index ASC.
	GetBySignature(ctx context.Context, signature string) ([]*domain.ExecutionRecord, error)

	// GetByAccount retrieves records touching an account, ordered by (slot, signature, instruction_index) ASC.
	GetByAccount(ctx context.Context, account string) ([]*domain.ExecutionRecord, error)
}
