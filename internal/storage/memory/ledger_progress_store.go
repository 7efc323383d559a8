package memory

import (
	"context"
	"sync"

	"solana-scoring/internal/storage"
)

// LedgerProgressStore is an in-memory implementation of storage.LedgerProgressStore.
type LedgerProgressStore struct {
	mu             sync.RWMutex
	progress       *storage.LedgerProgress
	seenSignatures map[string]uint64 // signature -> slot
}

// NewLedgerProgressStore creates a new in-memory ledger progress store.
func NewLedgerProgressStore() *LedgerProgressStore {
	return &LedgerProgressStore{
		seenSignatures: make(map[string]uint64),
	}
}

// GetLastCommitted returns the last committed slot.
func (s *LedgerProgressStore) GetLastCommitted(_ context.Context) (*storage.LedgerProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.progress == nil {
		return nil, storage.ErrNotFound
	}

	p := *s.progress
	return &p, nil
}

// SetLastCommitted saves the last committed slot unless a later one is stored.
func (s *LedgerProgressStore) SetLastCommitted(_ context.Context, progress *storage.LedgerProgress) error {
	if progress == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.progress != nil && progress.Slot <= s.progress.Slot {
		return nil
	}
	p := *progress
	s.progress = &p
	return nil
}

// IsSignatureSeen checks if a transaction signature has been processed.
func (s *LedgerProgressStore) IsSignatureSeen(_ context.Context, signature string) (bool, error) {
	if signature == "" {
		return false, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.seenSignatures[signature]
	return ok, nil
}

// MarkSignatureSeen records that a transaction signature has been processed.
func (s *LedgerProgressStore) MarkSignatureSeen(_ context.Context, signature string, slot uint64) error {
	if signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seenSignatures[signature]; !ok {
		s.seenSignatures[signature] = slot
	}
	return nil
}

var _ storage.LedgerProgressStore = (*LedgerProgressStore)(nil)
