package scoring

import (
	"bytes"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction variant tags.
const (
	InstructionInitializeScoreMint uint8 = 0
)

// InitializeScoreMint creates a new score type's mint.
//
// It requires no signers and must be included in the same transaction as the
// system CreateAccount instruction that allocates the mint; otherwise another
// party can take over the uninitialized account.
//
// Accounts expected:
//
//  0. [writable] The scoring mint to initialize.
type InitializeScoreMint struct {
	ScoreAuthority  solana.PublicKey
	FreezeAuthority *solana.PublicKey
	MetadataURI     string
}

// MarshalWithEncoder writes the borsh encoding of the instruction fields.
func (inst *InitializeScoreMint) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteBytes(inst.ScoreAuthority[:], false); err != nil {
		return err
	}
	if inst.FreezeAuthority == nil {
		if err := encoder.WriteUint8(optionNone); err != nil {
			return err
		}
	} else {
		if err := encoder.WriteUint8(optionSome); err != nil {
			return err
		}
		if err := encoder.WriteBytes(inst.FreezeAuthority[:], false); err != nil {
			return err
		}
	}
	if err := encoder.WriteUint32(uint32(len(inst.MetadataURI)), bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes([]byte(inst.MetadataURI), false)
}

// UnmarshalWithDecoder reads the borsh encoding of the instruction fields.
func (inst *InitializeScoreMint) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	authority, err := decoder.ReadNBytes(pubkeyLen)
	if err != nil {
		return fmt.Errorf("score authority: %w", err)
	}
	inst.ScoreAuthority = solana.PublicKeyFromBytes(authority)

	flag, err := decoder.ReadUint8()
	if err != nil {
		return fmt.Errorf("freeze authority flag: %w", err)
	}
	switch flag {
	case optionNone:
		inst.FreezeAuthority = nil
	case optionSome:
		freeze, err := decoder.ReadNBytes(pubkeyLen)
		if err != nil {
			return fmt.Errorf("freeze authority: %w", err)
		}
		key := solana.PublicKeyFromBytes(freeze)
		inst.FreezeAuthority = &key
	default:
		return fmt.Errorf("invalid option tag %d", flag)
	}

	n, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return fmt.Errorf("metadata uri length: %w", err)
	}
	if int(n) > decoder.Remaining() {
		return fmt.Errorf("metadata uri length %d exceeds remaining %d bytes", n, decoder.Remaining())
	}
	uri, err := decoder.ReadNBytes(int(n))
	if err != nil {
		return fmt.Errorf("metadata uri: %w", err)
	}
	inst.MetadataURI = string(uri)
	return nil
}

// Encode returns the instruction data: variant tag followed by the fields.
func (inst *InitializeScoreMint) Encode() ([]byte, error) {
	buf := new(bytes.Buffer)
	encoder := bin.NewBorshEncoder(buf)
	if err := encoder.WriteUint8(InstructionInitializeScoreMint); err != nil {
		return nil, err
	}
	if err := inst.MarshalWithEncoder(encoder); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeInstruction decodes scoring instruction data. All input bytes must be
// consumed. Any failure is reported as ErrInvalidInstructionData.
func DecodeInstruction(data []byte) (interface{}, error) {
	decoder := bin.NewBorshDecoder(data)
	tag, err := decoder.ReadUint8()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
	}

	switch tag {
	case InstructionInitializeScoreMint:
		var inst InitializeScoreMint
		if err := inst.UnmarshalWithDecoder(decoder); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInstructionData, err)
		}
		if decoder.Remaining() != 0 {
			return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidInstructionData, decoder.Remaining())
		}
		return &inst, nil
	default:
		return nil, fmt.Errorf("%w: unknown instruction %d", ErrInvalidInstructionData, tag)
	}
}
