package domain

import "github.com/gagliardetto/solana-go"

// Account is a ledger account as persisted by an AccountStore.
// Corresponds to accounts table in PostgreSQL.
type Account struct {
	Address    solana.PublicKey // PK
	Lamports   uint64
	Owner      solana.PublicKey // program allowed to modify Data
	Data       []byte
	Executable bool
	RentEpoch  uint64
	UpdatedAt  int64 // last write timestamp (ms)
}

// Exists reports whether the account holds lamports or data.
// Accounts that do not exist read as zero-balance, system-owned, empty.
func (a *Account) Exists() bool {
	return a.Lamports > 0 || len(a.Data) > 0
}

// Clone returns a deep copy of a.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	c := *a
	if a.Data != nil {
		c.Data = make([]byte, len(a.Data))
		copy(c.Data, a.Data)
	}
	return &c
}
