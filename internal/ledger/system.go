package ledger

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// MaxPermittedDataLength is the largest account the system program allocates.
const MaxPermittedDataLength = 10 * 1024 * 1024

// System program instruction discriminators (u32 LE).
const (
	systemInstrCreateAccount uint32 = 0
	systemInstrTransfer      uint32 = 2
)

type systemCreateAccount struct {
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

func (inst *systemCreateAccount) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if inst.Lamports, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if inst.Space, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	owner, err := decoder.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(inst.Owner[:], owner)
	return nil
}

type systemTransfer struct {
	Lamports uint64
}

func (inst *systemTransfer) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	inst.Lamports, err = decoder.ReadUint64(bin.LE)
	return err
}

// systemProgram executes the subset of system program instructions the host supports.
type systemProgram struct{}

func (systemProgram) name(data []byte) string {
	if len(data) < 4 {
		return "Unknown"
	}
	switch bin.LE.Uint32(data[:4]) {
	case systemInstrCreateAccount:
		return "CreateAccount"
	case systemInstrTransfer:
		return "Transfer"
	default:
		return "Unknown"
	}
}

func (systemProgram) primaryAccount(ic *invokeContext) *accountRef {
	if len(ic.accounts) > 1 {
		return ic.accounts[1]
	}
	if len(ic.accounts) > 0 {
		return ic.accounts[0]
	}
	return nil
}

func (p systemProgram) execute(ic *invokeContext) error {
	decoder := bin.NewBinDecoder(ic.data)
	kind, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return ErrInvalidInstructionData
	}

	switch kind {
	case systemInstrCreateAccount:
		var inst systemCreateAccount
		if err := inst.UnmarshalWithDecoder(decoder); err != nil {
			return ErrInvalidInstructionData
		}
		if decoder.Remaining() != 0 {
			return ErrInvalidInstructionData
		}
		return p.createAccount(ic, &inst)

	case systemInstrTransfer:
		var inst systemTransfer
		if err := inst.UnmarshalWithDecoder(decoder); err != nil {
			return ErrInvalidInstructionData
		}
		if decoder.Remaining() != 0 {
			return ErrInvalidInstructionData
		}
		return p.transfer(ic, inst.Lamports)

	default:
		return fmt.Errorf("%w: unsupported system instruction %d", ErrInvalidInstructionData, kind)
	}
}

// createAccount allocates space for accounts[1], assigns it to the owner
// and funds it from accounts[0]. Both accounts must sign.
func (p systemProgram) createAccount(ic *invokeContext, inst *systemCreateAccount) error {
	if len(ic.accounts) < 2 {
		return ErrNotEnoughAccountKeys
	}
	funder, to := ic.accounts[0], ic.accounts[1]

	if !to.meta.IsSigner {
		ic.logf("CreateAccount: new account %s must sign", to.meta.PublicKey)
		return ErrMissingRequiredSignature
	}
	if to.account.Exists() || !to.account.Owner.Equals(solana.SystemProgramID) {
		ic.logf("CreateAccount: account %s already in use", to.meta.PublicKey)
		return ErrAccountAlreadyInUse
	}
	if inst.Space > MaxPermittedDataLength {
		ic.logf("CreateAccount: requested %d bytes, max %d", inst.Space, MaxPermittedDataLength)
		return ErrInvalidAccountDataLength
	}

	to.account.Data = make([]byte, inst.Space)
	to.account.Owner = inst.Owner

	return p.transferFrom(ic, funder, to, inst.Lamports)
}

func (p systemProgram) transfer(ic *invokeContext, lamports uint64) error {
	if len(ic.accounts) < 2 {
		return ErrNotEnoughAccountKeys
	}
	return p.transferFrom(ic, ic.accounts[0], ic.accounts[1], lamports)
}

func (systemProgram) transferFrom(ic *invokeContext, from, to *accountRef, lamports uint64) error {
	if !from.meta.IsSigner {
		ic.logf("Transfer: from account %s must sign", from.meta.PublicKey)
		return ErrMissingRequiredSignature
	}
	if len(from.account.Data) != 0 {
		ic.logf("Transfer: from account %s must not carry data", from.meta.PublicKey)
		return ErrInvalidArgument
	}
	if lamports > from.account.Lamports {
		ic.logf("Transfer: insufficient lamports %d, need %d", from.account.Lamports, lamports)
		return ErrInsufficientFunds
	}
	if to.account.Lamports+lamports < to.account.Lamports {
		return ErrArithmeticOverflow
	}

	from.account.Lamports -= lamports
	to.account.Lamports += lamports
	return nil
}
