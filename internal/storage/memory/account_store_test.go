package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/storage"
)

func addr(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	k[31] = b
	return k
}

func TestAccountStore_GetNotFound(t *testing.T) {
	store := NewAccountStore()

	_, err := store.Get(context.Background(), addr(1))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAccountStore_UpdateCommits(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.AccountTx) error {
		return tx.Put(ctx, &domain.Account{Address: addr(1), Lamports: 100, Data: []byte{1, 2, 3}})
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	got, err := store.Get(ctx, addr(1))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Lamports != 100 || len(got.Data) != 3 {
		t.Errorf("unexpected account: %+v", got)
	}
	if got.UpdatedAt == 0 {
		t.Error("expected UpdatedAt to be set")
	}
}

func TestAccountStore_UpdateRollsBackOnError(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := store.Update(ctx, func(tx storage.AccountTx) error {
		if err := tx.Put(ctx, &domain.Account{Address: addr(1), Lamports: 5}); err != nil {
			return err
		}
		if err := tx.Put(ctx, &domain.Account{Address: addr(2), Lamports: 6}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("expected no accounts after rollback, got %d", store.Len())
	}
}

func TestAccountStore_TxSeesOwnWrites(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	err := store.Update(ctx, func(tx storage.AccountTx) error {
		if err := tx.Put(ctx, &domain.Account{Address: addr(1), Lamports: 1}); err != nil {
			return err
		}
		a, err := tx.Get(ctx, addr(1))
		if err != nil {
			return err
		}
		if a.Lamports != 1 {
			t.Errorf("expected staged lamports 1, got %d", a.Lamports)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
}

func TestAccountStore_GetReturnsCopy(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	_ = store.Update(ctx, func(tx storage.AccountTx) error {
		return tx.Put(ctx, &domain.Account{Address: addr(1), Data: []byte{1}})
	})

	a, _ := store.Get(ctx, addr(1))
	a.Data[0] = 9

	b, _ := store.Get(ctx, addr(1))
	if b.Data[0] != 1 {
		t.Error("stored data was mutated through returned account")
	}
}

func TestAccountStore_ConcurrentUpdatesSerialize(t *testing.T) {
	store := NewAccountStore()
	ctx := context.Background()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Update(ctx, func(tx storage.AccountTx) error {
				a, err := tx.Get(ctx, addr(1))
				if errors.Is(err, storage.ErrNotFound) {
					a = &domain.Account{Address: addr(1)}
				} else if err != nil {
					return err
				}
				a.Lamports++
				return tx.Put(ctx, a)
			})
		}()
	}
	wg.Wait()

	a, err := store.Get(ctx, addr(1))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if a.Lamports != workers {
		t.Errorf("expected %d lamports, got %d (lost update)", workers, a.Lamports)
	}
}
