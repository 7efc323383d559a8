package idhash

import (
	"crypto/sha256"
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// ComputeAirdropSignature computes a deterministic 64-byte signature for a faucet credit.
// Formula: SHA256(recipient|lamports|slot) || SHA256(slot|recipient)
func ComputeAirdropSignature(recipient solana.PublicKey, lamports, slot uint64) solana.Signature {
	var num [16]byte
	binary.LittleEndian.PutUint64(num[:8], lamports)
	binary.LittleEndian.PutUint64(num[8:], slot)

	first := sha256.Sum256(append(append([]byte{}, recipient[:]...), num[:]...))
	second := sha256.Sum256(append(append([]byte{}, num[8:]...), recipient[:]...))

	var sig solana.Signature
	copy(sig[:32], first[:])
	copy(sig[32:], second[:])
	return sig
}
