package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// ComputeBlockhash computes a deterministic blockhash for a slot using SHA256.
// Formula: SHA256(parent_blockhash|slot)
func ComputeBlockhash(parent solana.Hash, slot uint64) solana.Hash {
	data := fmt.Sprintf("%s|%d", parent.String(), slot)
	return solana.Hash(sha256.Sum256([]byte(data)))
}

// GenesisBlockhash derives the slot-0 blockhash from a seed string.
// Formula: SHA256(genesis|seed)
func GenesisBlockhash(seed string) solana.Hash {
	return solana.Hash(sha256.Sum256([]byte("genesis|" + seed)))
}
