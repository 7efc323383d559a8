// Package scoring implements the scoring program: the on-chain Mint record
// describing a score type, its fixed binary layout, and the InitializeScoreMint
// state transition.
package scoring

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Layout sizes of the Mint account.
const (
	MaxMetadataURILen = 128

	pubkeyLen = 32

	// MintSize is the fixed size of a Mint account:
	// authority (32) + freeze flag (1) + freeze authority (32) + state (1) + uri (128).
	MintSize = pubkeyLen + 1 + pubkeyLen + 1 + MaxMetadataURILen
)

// Field offsets within a Mint account.
const (
	offsetScoreAuthority  = 0
	offsetFreezeFlag      = 32
	offsetFreezeAuthority = 33
	offsetState           = 65
	offsetMetadataURI     = 66
)

// MintState is the lifecycle state of a scoring mint.
type MintState uint8

const (
	// MintStateUninitialized is the state of a freshly allocated, zeroed account.
	MintStateUninitialized MintState = iota
	// MintStateInitialized means the score authority may issue points.
	MintStateInitialized
	// MintStateFrozen means the freeze authority has closed the mint.
	MintStateFrozen
)

func (s MintState) String() string {
	switch s {
	case MintStateUninitialized:
		return "Uninitialized"
	case MintStateInitialized:
		return "Initialized"
	case MintStateFrozen:
		return "Frozen"
	default:
		return fmt.Sprintf("MintState(%d)", uint8(s))
	}
}

func (s MintState) valid() bool {
	return s <= MintStateFrozen
}

// Mint is the scoring mint record.
type Mint struct {
	// ScoreAuthority may issue or slash points. Set once at initialization.
	ScoreAuthority solana.PublicKey
	// FreezeAuthority may freeze the mint; nil when the mint has none.
	FreezeAuthority *solana.PublicKey
	State           MintState
	// MetadataURI points to JSON metadata describing the score type.
	MetadataURI string
}

// IsInitialized reports whether the mint has left the Uninitialized state.
func (m *Mint) IsInitialized() bool {
	return m.State == MintStateInitialized || m.State == MintStateFrozen
}
