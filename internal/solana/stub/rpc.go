package stub

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"solana-scoring/internal/solana"
)

// ErrNotFound is returned when a stubbed value is missing.
var ErrNotFound = errors.New("not found")

// RPCClient implements solana.RPCClient for testing.
type RPCClient struct {
	mu sync.Mutex

	Accounts        map[string]*solana.AccountInfo
	RentPerByte     uint64 // GetMinimumBalanceForRentExemption returns (len+128)*RentPerByte
	LatestBlockhash solana.Blockhash
	Slot            uint64

	// SendErr, when set, is returned by SendTransaction.
	SendErr error
	// Sent records every transaction passed to SendTransaction.
	Sent []string
	// Airdrops records requested airdrops by pubkey.
	Airdrops map[string]uint64
}

var _ solana.RPCClient = (*RPCClient)(nil)

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Accounts:    make(map[string]*solana.AccountInfo),
		RentPerByte: 6960,
		LatestBlockhash: solana.Blockhash{
			Blockhash:            "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N",
			LastValidBlockHeight: 150,
		},
		Airdrops: make(map[string]uint64),
	}
}

// GetAccountInfo returns the stubbed account or nil.
func (c *RPCClient) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	info, ok := c.Accounts[pubkey]
	if !ok {
		return nil, nil
	}
	cp := *info
	return &cp, nil
}

// GetBalance returns the stubbed account balance.
func (c *RPCClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if info, ok := c.Accounts[pubkey]; ok {
		return info.Lamports, nil
	}
	return 0, nil
}

// GetMinimumBalanceForRentExemption returns (dataLen+128)*RentPerByte.
func (c *RPCClient) GetMinimumBalanceForRentExemption(_ context.Context, dataLen uint64) (uint64, error) {
	return (dataLen + 128) * c.RentPerByte, nil
}

// GetLatestBlockhash returns the stubbed blockhash.
func (c *RPCClient) GetLatestBlockhash(_ context.Context) (*solana.Blockhash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.LatestBlockhash.Blockhash == "" {
		return nil, ErrNotFound
	}
	bh := c.LatestBlockhash
	return &bh, nil
}

// GetSlot returns the stubbed slot.
func (c *RPCClient) GetSlot(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Slot, nil
}

// SendTransaction records encodedTx and returns a synthetic signature.
func (c *RPCClient) SendTransaction(_ context.Context, encodedTx string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.SendErr != nil {
		return "", c.SendErr
	}
	c.Sent = append(c.Sent, encodedTx)
	return fmt.Sprintf("stub-signature-%d", len(c.Sent)), nil
}

// RequestAirdrop records the request and credits the stubbed account.
func (c *RPCClient) RequestAirdrop(_ context.Context, pubkey string, lamports uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Airdrops[pubkey] += lamports
	if info, ok := c.Accounts[pubkey]; ok {
		info.Lamports += lamports
	} else {
		c.Accounts[pubkey] = &solana.AccountInfo{Lamports: lamports, Owner: "11111111111111111111111111111111"}
	}
	return fmt.Sprintf("stub-airdrop-%s", pubkey), nil
}

// AddAccount adds an account to the stub store.
func (c *RPCClient) AddAccount(pubkey string, info *solana.AccountInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Accounts[pubkey] = info
}
