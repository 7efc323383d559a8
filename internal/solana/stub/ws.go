package stub

import (
	"context"
	"errors"
	"sync"

	"solana-scoring/internal/solana"
)

// WSClient implements solana.WSClient for testing.
// Publish delivers a notification to every subscriber of an account.
type WSClient struct {
	mu     sync.Mutex
	subs   map[string][]chan solana.AccountNotification
	closed bool
}

var _ solana.WSClient = (*WSClient)(nil)

// NewWSClient creates a new stub WebSocket client.
func NewWSClient() *WSClient {
	return &WSClient{subs: make(map[string][]chan solana.AccountNotification)}
}

// SubscribeAccount registers a subscriber for pubkey.
func (c *WSClient) SubscribeAccount(_ context.Context, pubkey string) (<-chan solana.AccountNotification, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, errors.New("client closed")
	}
	ch := make(chan solana.AccountNotification, 16)
	c.subs[pubkey] = append(c.subs[pubkey], ch)
	return ch, nil
}

// Publish sends n to all subscribers of pubkey.
func (c *WSClient) Publish(pubkey string, n solana.AccountNotification) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.subs[pubkey] {
		ch <- n
	}
}

// Close closes all subscription channels.
func (c *WSClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	for _, chans := range c.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	return nil
}
