package ledger

import (
	"errors"
	"fmt"

	"solana-scoring/internal/scoring"
)

// Transaction-level errors.
var (
	ErrNoInstructions       = errors.New("transaction has no instructions")
	ErrMissingFeePayer      = errors.New("transaction has no fee payer")
	ErrBlockhashNotFound    = errors.New("blockhash not found")
	ErrAlreadyProcessed     = errors.New("transaction already processed")
	ErrInvalidTransaction   = errors.New("invalid transaction")
	ErrUnsupportedVersion   = errors.New("address table lookups are not supported")
	ErrInvalidAccountIndex  = errors.New("invalid account index")
	ErrInvalidAirdropAmount = errors.New("airdrop amount must be positive")
)

// Instruction-level errors raised by the host.
var (
	ErrUnknownProgram              = errors.New("unknown program")
	ErrMissingRequiredSignature    = errors.New("missing required signature for instruction")
	ErrReadonlyDataModified        = errors.New("instruction modified data of a read-only account")
	ErrReadonlyLamportChange       = errors.New("instruction changed the balance of a read-only account")
	ErrExternalAccountDataModified = errors.New("instruction modified data of an account it does not own")
	ErrExternalAccountLamportSpend = errors.New("instruction spent from the balance of an account it does not own")
	ErrModifiedProgramID           = errors.New("instruction illegally modified the program id of an account")
	ErrUnbalancedInstruction       = errors.New("sum of account balances before and after instruction do not match")
	ErrNotEnoughAccountKeys        = errors.New("insufficient account keys for instruction")
	ErrInvalidInstructionData      = errors.New("invalid instruction data")
	ErrInvalidArgument             = errors.New("invalid program argument")
	ErrAccountAlreadyInUse         = errors.New("account already in use")
	ErrInvalidAccountDataLength    = errors.New("invalid account data length")
	ErrInsufficientFunds           = errors.New("insufficient funds for instruction")
	ErrArithmeticOverflow          = errors.New("arithmetic overflow")
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrUnknownProgram, "UnknownProgram"},
	{ErrMissingRequiredSignature, "MissingRequiredSignature"},
	{ErrReadonlyDataModified, "ReadonlyDataModified"},
	{ErrReadonlyLamportChange, "ReadonlyLamportChange"},
	{ErrExternalAccountDataModified, "ExternalAccountDataModified"},
	{ErrExternalAccountLamportSpend, "ExternalAccountLamportSpend"},
	{ErrModifiedProgramID, "ModifiedProgramId"},
	{ErrUnbalancedInstruction, "UnbalancedInstruction"},
	{ErrNotEnoughAccountKeys, "NotEnoughAccountKeys"},
	{ErrInvalidInstructionData, "InvalidInstructionData"},
	{ErrInvalidArgument, "InvalidArgument"},
	{ErrAccountAlreadyInUse, "AccountAlreadyInUse"},
	{ErrInvalidAccountDataLength, "InvalidAccountDataLength"},
	{ErrInsufficientFunds, "InsufficientFunds"},
	{ErrArithmeticOverflow, "ArithmeticOverflow"},
	{scoring.ErrInvalidAccountData, "InvalidAccountData"},
	{scoring.ErrInvalidInstructionData, "InvalidInstructionData"},
	{scoring.ErrIncorrectProgramID, "IncorrectProgramId"},
	{scoring.ErrNotEnoughAccountKeys, "NotEnoughAccountKeys"},
}

// ErrorName returns the short name journaled as an instruction outcome.
func ErrorName(err error) string {
	var se *scoring.Error
	if errors.As(err, &se) {
		return se.Name
	}
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return "GenericError"
}

// InstructionError reports which instruction of a transaction failed.
type InstructionError struct {
	Index int
	Err   error
}

func (e *InstructionError) Error() string {
	return fmt.Sprintf("error processing instruction %d: %v", e.Index, e.Err)
}

func (e *InstructionError) Unwrap() error {
	return e.Err
}
