package solana

import "context"

// WSClient defines Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount streams the state of an account after every change.
	// Delivery stops when ctx is cancelled; the channel is closed by Close.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, error)

	// Close closes the WebSocket connection.
	Close() error
}

// AccountNotification represents an accountSubscribe message.
type AccountNotification struct {
	Slot    uint64
	Account *AccountInfo // nil when the account was removed
}
