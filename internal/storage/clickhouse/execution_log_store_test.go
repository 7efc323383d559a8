package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/storage"
)

func TestExecutionLogStore_Insert(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewExecutionLogStore(conn)
	ctx := context.Background()

	rec := &domain.ExecutionRecord{
		Signature:        "sig-1",
		InstructionIndex: 1,
		Slot:             42,
		ProgramID:        "SCorEKFKYJud973vCJvWFphgqQGAHo9Ruxuf622LER1",
		Instruction:      "InitializeScoreMint",
		Account:          "mint-1",
		Outcome:          domain.OutcomeOK,
		ExecutedAt:       1700000000000,
	}
	require.NoError(t, store.Insert(ctx, rec))

	got, err := store.GetBySignature(ctx, "sig-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec, got[0])
}

func TestExecutionLogStore_Insert_DuplicateKey(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewExecutionLogStore(conn)
	ctx := context.Background()

	rec := &domain.ExecutionRecord{Signature: "sig-dup", InstructionIndex: 0, Outcome: domain.OutcomeOK}
	require.NoError(t, store.Insert(ctx, rec))

	err := store.Insert(ctx, rec)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestExecutionLogStore_Insert_InvalidInput(t *testing.T) {
	store := NewExecutionLogStore(nil)

	assert.ErrorIs(t, store.Insert(context.Background(), nil), storage.ErrInvalidInput)
	assert.ErrorIs(t, store.Insert(context.Background(), &domain.ExecutionRecord{}), storage.ErrInvalidInput)
}

func TestExecutionLogStore_Ordering(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewExecutionLogStore(conn)
	ctx := context.Background()

	records := []*domain.ExecutionRecord{
		{Signature: "b", InstructionIndex: 1, Slot: 2, Account: "mint", Outcome: domain.OutcomeOK},
		{Signature: "b", InstructionIndex: 0, Slot: 2, Account: "payer", Outcome: domain.OutcomeOK},
		{Signature: "a", InstructionIndex: 0, Slot: 2, Account: "mint", Outcome: "MintExists", Error: "mint already initialized"},
		{Signature: "c", InstructionIndex: 0, Slot: 1, Account: "mint", Outcome: domain.OutcomeOK},
	}
	for _, r := range records {
		require.NoError(t, store.Insert(ctx, r))
	}

	bySig, err := store.GetBySignature(ctx, "b")
	require.NoError(t, err)
	require.Len(t, bySig, 2)
	assert.Equal(t, 0, bySig[0].InstructionIndex)
	assert.Equal(t, 1, bySig[1].InstructionIndex)

	byAccount, err := store.GetByAccount(ctx, "mint")
	require.NoError(t, err)
	require.Len(t, byAccount, 3)
	assert.Equal(t, "c", byAccount[0].Signature)
	assert.Equal(t, "a", byAccount[1].Signature)
	assert.Equal(t, "b", byAccount[2].Signature)
	assert.False(t, byAccount[1].Succeeded())
}
