package memory

import (
	"context"
	"fmt"
	"testing"

	"solana-scoring/internal/storage"
)

func TestLedgerProgressStore_GetLastCommittedEmpty(t *testing.T) {
	store := NewLedgerProgressStore()

	_, err := store.GetLastCommitted(context.Background())
	if err != storage.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLedgerProgressStore_SetAndGet(t *testing.T) {
	store := NewLedgerProgressStore()
	ctx := context.Background()

	progress := &storage.LedgerProgress{Slot: 7, Blockhash: "H7", Signature: "S7"}
	if err := store.SetLastCommitted(ctx, progress); err != nil {
		t.Fatalf("SetLastCommitted failed: %v", err)
	}

	// Mutating the input must not affect stored state.
	progress.Slot = 99

	got, err := store.GetLastCommitted(ctx)
	if err != nil {
		t.Fatalf("GetLastCommitted failed: %v", err)
	}
	if got.Slot != 7 || got.Blockhash != "H7" || got.Signature != "S7" {
		t.Errorf("unexpected progress: %+v", got)
	}
}

func TestLedgerProgressStore_Signatures(t *testing.T) {
	store := NewLedgerProgressStore()
	ctx := context.Background()

	if err := store.MarkSignatureSeen(ctx, "", 1); err != storage.ErrInvalidInput {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}

	for i, sig := range []string{"a", "b", "c"} {
		if err := store.MarkSignatureSeen(ctx, sig, uint64(i+1)); err != nil {
			t.Fatalf("MarkSignatureSeen failed: %v", err)
		}
	}

	seen, err := store.IsSignatureSeen(ctx, "b")
	if err != nil || !seen {
		t.Errorf("expected b seen, got %v %v", seen, err)
	}
	seen, _ = store.IsSignatureSeen(ctx, "z")
	if seen {
		t.Error("expected z not seen")
	}
}

func TestLedgerProgressStore_SetLastCommittedNeverRegresses(t *testing.T) {
	store := NewLedgerProgressStore()
	ctx := context.Background()

	for _, slot := range []uint64{3, 2, 3} {
		p := &storage.LedgerProgress{Slot: slot, Blockhash: fmt.Sprintf("H%d", slot), Signature: fmt.Sprintf("S%d", slot)}
		if err := store.SetLastCommitted(ctx, p); err != nil {
			t.Fatalf("SetLastCommitted(%d) failed: %v", slot, err)
		}
	}

	got, err := store.GetLastCommitted(ctx)
	if err != nil {
		t.Fatalf("GetLastCommitted failed: %v", err)
	}
	if got.Slot != 3 || got.Blockhash != "H3" {
		t.Errorf("cursor moved back: %+v", got)
	}
}
