package postgres

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/observability"
	"solana-scoring/internal/storage"
)

// AccountStore implements storage.AccountStore using PostgreSQL.
// Each Update runs in one database transaction; accounts read inside it are
// guarded by a transaction-scoped advisory lock on their address, which also
// covers addresses that have no row yet.
type AccountStore struct {
	pool *Pool
}

// NewAccountStore creates a new AccountStore.
func NewAccountStore(pool *Pool) *AccountStore {
	return &AccountStore{pool: pool}
}

// Compile-time interface check.
var _ storage.AccountStore = (*AccountStore)(nil)

// Get retrieves an account by address. Returns ErrNotFound if not exists.
func (s *AccountStore) Get(ctx context.Context, address solana.PublicKey) (*domain.Account, error) {
	start := time.Now()
	row := s.pool.QueryRow(ctx, selectAccountQuery, address.String())
	a, err := scanAccount(row)
	if isNotFoundError(err) {
		observability.RecordDBQuery("postgres", "get_account", time.Since(start).Seconds(), nil)
		return nil, storage.ErrNotFound
	}
	observability.RecordDBQuery("postgres", "get_account", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Update runs fn inside a database transaction.
func (s *AccountStore) Update(ctx context.Context, fn func(tx storage.AccountTx) error) error {
	start := time.Now()
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&accountTx{tx: tx, locked: make(map[solana.PublicKey]struct{})})
	})
	observability.RecordDBQuery("postgres", "update_accounts", time.Since(start).Seconds(), err)
	return err
}

const selectAccountQuery = `
	SELECT address, lamports, owner, data, executable, rent_epoch, updated_at
	FROM accounts
	WHERE address = $1
`

type accountTx struct {
	tx     pgx.Tx
	locked map[solana.PublicKey]struct{}
}

func (t *accountTx) lock(ctx context.Context, address solana.PublicKey) error {
	if _, ok := t.locked[address]; ok {
		return nil
	}
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, address.String())
	if err != nil {
		return fmt.Errorf("lock account: %w", err)
	}
	t.locked[address] = struct{}{}
	return nil
}

func (t *accountTx) Get(ctx context.Context, address solana.PublicKey) (*domain.Account, error) {
	if err := t.lock(ctx, address); err != nil {
		return nil, err
	}

	row := t.tx.QueryRow(ctx, selectAccountQuery, address.String())
	a, err := scanAccount(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (t *accountTx) Put(ctx context.Context, a *domain.Account) error {
	if a == nil || a.Lamports > math.MaxInt64 || a.RentEpoch > math.MaxInt64 {
		return storage.ErrInvalidInput
	}
	if err := t.lock(ctx, a.Address); err != nil {
		return err
	}

	data := a.Data
	if data == nil {
		data = []byte{}
	}

	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (address, lamports, owner, data, executable, rent_epoch, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (address) DO UPDATE
		SET lamports = EXCLUDED.lamports,
		    owner = EXCLUDED.owner,
		    data = EXCLUDED.data,
		    executable = EXCLUDED.executable,
		    rent_epoch = EXCLUDED.rent_epoch,
		    updated_at = EXCLUDED.updated_at
	`,
		a.Address.String(),
		int64(a.Lamports),
		a.Owner.String(),
		data,
		a.Executable,
		int64(a.RentEpoch),
		time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put account: %w", err)
	}
	return nil
}

// scanAccount scans a single row into domain.Account.
func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a                   domain.Account
		address, owner      string
		lamports, rentEpoch int64
	)
	err := row.Scan(&address, &lamports, &owner, &a.Data, &a.Executable, &rentEpoch, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if a.Address, err = solana.PublicKeyFromBase58(address); err != nil {
		return nil, fmt.Errorf("decode address %q: %w", address, err)
	}
	if a.Owner, err = solana.PublicKeyFromBase58(owner); err != nil {
		return nil, fmt.Errorf("decode owner %q: %w", owner, err)
	}
	a.Lamports = uint64(lamports)
	a.RentEpoch = uint64(rentEpoch)
	return &a, nil
}
