package ledger

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Instruction is one program invocation within a transaction.
type Instruction struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
}

// Transaction is a signed, already verified request to execute instructions atomically.
// Signer and writable flags on account metas are trusted as given.
type Transaction struct {
	Signature       solana.Signature
	FeePayer        solana.PublicKey
	RecentBlockhash solana.Hash
	Instructions    []Instruction
}

// NewInstruction converts a solana-go instruction builder result.
func NewInstruction(inst solana.Instruction) (Instruction, error) {
	data, err := inst.Data()
	if err != nil {
		return Instruction{}, fmt.Errorf("encode instruction data: %w", err)
	}
	return Instruction{
		ProgramID: inst.ProgramID(),
		Accounts:  inst.Accounts(),
		Data:      data,
	}, nil
}

// TransactionFromSolana resolves a wire transaction into a Transaction.
// Signer and writable flags are derived from the message header.
// Signatures are not verified here.
func TransactionFromSolana(tx *solana.Transaction) (*Transaction, error) {
	msg := tx.Message
	if len(msg.AddressTableLookups) > 0 {
		return nil, ErrUnsupportedVersion
	}

	keys := msg.AccountKeys
	numSigners := int(msg.Header.NumRequiredSignatures)
	readonlySigned := int(msg.Header.NumReadonlySignedAccounts)
	readonlyUnsigned := int(msg.Header.NumReadonlyUnsignedAccounts)

	switch {
	case numSigners == 0 || numSigners > len(keys):
		return nil, fmt.Errorf("%w: %d required signatures for %d keys", ErrInvalidTransaction, numSigners, len(keys))
	case len(tx.Signatures) != numSigners:
		return nil, fmt.Errorf("%w: %d signatures, header requires %d", ErrInvalidTransaction, len(tx.Signatures), numSigners)
	case readonlySigned >= numSigners:
		return nil, fmt.Errorf("%w: fee payer must be writable", ErrInvalidTransaction)
	case readonlyUnsigned > len(keys)-numSigners:
		return nil, fmt.Errorf("%w: readonly unsigned count exceeds keys", ErrInvalidTransaction)
	}

	isWritable := func(i int) bool {
		if i < numSigners {
			return i < numSigners-readonlySigned
		}
		return i < len(keys)-readonlyUnsigned
	}

	out := &Transaction{
		Signature:       tx.Signatures[0],
		FeePayer:        keys[0],
		RecentBlockhash: msg.RecentBlockhash,
	}

	for i, ci := range msg.Instructions {
		if int(ci.ProgramIDIndex) >= len(keys) {
			return nil, fmt.Errorf("instruction %d: program %w", i, ErrInvalidAccountIndex)
		}
		inst := Instruction{
			ProgramID: keys[ci.ProgramIDIndex],
			Data:      []byte(ci.Data),
		}
		for _, idx := range ci.Accounts {
			if int(idx) >= len(keys) {
				return nil, fmt.Errorf("instruction %d: account %w", i, ErrInvalidAccountIndex)
			}
			inst.Accounts = append(inst.Accounts, solana.NewAccountMeta(keys[idx], isWritable(int(idx)), int(idx) < numSigners))
		}
		out.Instructions = append(out.Instructions, inst)
	}

	return out, nil
}
