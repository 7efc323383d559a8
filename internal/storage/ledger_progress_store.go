package storage

import "context"

// LedgerProgress is the last committed position of the ledger.
type LedgerProgress struct {
	Slot      uint64 // last committed slot
	Blockhash string // blockhash issued for Slot (base58)
	Signature string // last committed transaction signature
}

// LedgerProgressStore persists the ledger cursor and the set of processed
// transaction signatures, so a restarted ledger resumes its slot sequence and
// keeps rejecting replays. The cursor never moves backwards.
type LedgerProgressStore interface {
	// GetLastCommitted returns the last committed slot.
	// Returns ErrNotFound if no progress has been saved yet.
	GetLastCommitted(ctx context.Context) (*LedgerProgress, error)

	// SetLastCommitted saves the last committed slot. A progress whose slot is
	// not above the stored one is ignored.
	SetLastCommitted(ctx context.Context, progress *LedgerProgress) error

	// IsSignatureSeen checks if a transaction signature has been processed.
	IsSignatureSeen(ctx context.Context, signature string) (bool, error)

	// MarkSignatureSeen records that a transaction signature has been processed.
	MarkSignatureSeen(ctx context.Context, signature string, slot uint64) error
}
