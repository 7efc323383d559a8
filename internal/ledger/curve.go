package ledger

import (
	"filippo.io/edwards25519"
	"github.com/gagliardetto/solana-go"
)

// isOnCurve reports whether key decodes to an ed25519 point.
// Program derived addresses are off the curve and have no private key.
func isOnCurve(key solana.PublicKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err == nil
}
