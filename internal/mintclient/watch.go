package mintclient

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MintUpdate is one observed state of a watched mint.
// Err is set when the account could not be decoded as a scoring mint.
type MintUpdate struct {
	Slot    uint64
	Details *MintDetails
	Err     error
}

// WatchMint streams the mint at address after every change. The channel is
// closed when ctx is cancelled or the WebSocket client is closed.
func (c *Client) WatchMint(ctx context.Context, address solana.PublicKey) (<-chan MintUpdate, error) {
	if c.ws == nil {
		return nil, ErrNoWSClient
	}

	notifs, err := c.ws.SubscribeAccount(ctx, address.String())
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", address, err)
	}

	out := make(chan MintUpdate, 16)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-notifs:
				if !ok {
					return
				}
				u := MintUpdate{Slot: n.Slot}
				if n.Account == nil {
					u.Err = fmt.Errorf("%w: %s", ErrMintNotFound, address)
				} else {
					u.Details, u.Err = c.decodeMint(address, n.Account)
				}
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
