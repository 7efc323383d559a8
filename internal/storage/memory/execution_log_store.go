package memory

import (
	"context"
	"sort"
	"sync"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/storage"
)

// ExecutionLogStore is an in-memory implementation of storage.ExecutionLogStore.
type ExecutionLogStore struct {
	mu      sync.RWMutex
	records []*domain.ExecutionRecord
	keys    map[execKey]struct{}
}

type execKey struct {
	signature string
	index     int
}

// NewExecutionLogStore creates a new in-memory execution log store.
func NewExecutionLogStore() *ExecutionLogStore {
	return &ExecutionLogStore{
		keys: make(map[execKey]struct{}),
	}
}

// Insert adds a record. Returns ErrDuplicateKey if (signature, instruction_index) exists.
func (s *ExecutionLogStore) Insert(_ context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := execKey{r.Signature, r.InstructionIndex}
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}

	rec := *r
	s.records = append(s.records, &rec)
	s.keys[key] = struct{}{}
	return nil
}

// GetBySignature retrieves records of one transaction, ordered by instruction_index ASC.
func (s *ExecutionLogStore) GetBySignature(_ context.Context, signature string) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.records {
		if r.Signature == signature {
			rec := *r
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].InstructionIndex < result[j].InstructionIndex
	})
	return result, nil
}

// GetByAccount retrieves records touching an account, ordered by (slot, signature, instruction_index) ASC.
func (s *ExecutionLogStore) GetByAccount(_ context.Context, account string) ([]*domain.ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ExecutionRecord
	for _, r := range s.records {
		if r.Account == account {
			rec := *r
			result = append(result, &rec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Slot != result[j].Slot {
			return result[i].Slot < result[j].Slot
		}
		if result[i].Signature != result[j].Signature {
			return result[i].Signature < result[j].Signature
		}
		return result[i].InstructionIndex < result[j].InstructionIndex
	})
	return result, nil
}

var _ storage.ExecutionLogStore = (*ExecutionLogStore)(nil)
