package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key.
	// Returns nil if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetMinimumBalanceForRentExemption returns the rent-exempt minimum for dataLen bytes.
	GetMinimumBalanceForRentExemption(ctx context.Context, dataLen uint64) (uint64, error)

	// GetLatestBlockhash retrieves the newest blockhash.
	GetLatestBlockhash(ctx context.Context) (*Blockhash, error)

	// GetSlot retrieves the current slot.
	GetSlot(ctx context.Context) (uint64, error)

	// SendTransaction submits a base64 wire transaction and returns its signature.
	SendTransaction(ctx context.Context, encodedTx string) (string, error)

	// RequestAirdrop asks the faucet to credit lamports and returns the signature.
	RequestAirdrop(ctx context.Context, pubkey string, lamports uint64) (string, error)
}
