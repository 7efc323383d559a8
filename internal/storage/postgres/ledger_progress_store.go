package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"solana-scoring/internal/storage"
)

// LedgerProgressStore is a PostgreSQL implementation of storage.LedgerProgressStore.
// Uses two tables:
//   - ledger_progress: single row with (slot, blockhash, signature)
//   - ledger_seen_signatures: processed transaction signatures
type LedgerProgressStore struct {
	pool *Pool
}

// NewLedgerProgressStore creates a new PostgreSQL ledger progress store.
func NewLedgerProgressStore(pool *Pool) *LedgerProgressStore {
	return &LedgerProgressStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LedgerProgressStore = (*LedgerProgressStore)(nil)

// GetLastCommitted returns the last committed slot.
func (s *LedgerProgressStore) GetLastCommitted(ctx context.Context) (*storage.LedgerProgress, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT slot, blockhash, signature
		FROM ledger_progress
		LIMIT 1
	`)

	var progress storage.LedgerProgress
	err := row.Scan(&progress.Slot, &progress.Blockhash, &progress.Signature)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	return &progress, nil
}

// SetLastCommitted saves the last committed slot.
// Uses upsert to handle initial insert and subsequent updates; a slot not
// above the stored one leaves the row unchanged.
func (s *LedgerProgressStore) SetLastCommitted(ctx context.Context, progress *storage.LedgerProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_progress (id, slot, blockhash, signature, updated_at)
		VALUES (1, $1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET slot = EXCLUDED.slot,
		    blockhash = EXCLUDED.blockhash,
		    signature = EXCLUDED.signature,
		    updated_at = NOW()
		WHERE ledger_progress.slot < EXCLUDED.slot
	`, progress.Slot, progress.Blockhash, progress.Signature)

	return err
}

// IsSignatureSeen checks if a transaction signature has been processed.
func (s *LedgerProgressStore) IsSignatureSeen(ctx context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM ledger_seen_signatures WHERE signature = $1)
	`, signature)

	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

// MarkSignatureSeen records that a transaction signature has been processed.
func (s *LedgerProgressStore) MarkSignatureSeen(ctx context.Context, signature string, slot uint64) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO ledger_seen_signatures (signature, slot, seen_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (signature) DO NOTHING
	`, signature, slot)

	return err
}
