package scoring

import (
	"github.com/gagliardetto/solana-go"
)

// DefaultProgramID is the address the scoring program is deployed at.
var DefaultProgramID = solana.MustPublicKeyFromBase58("SCorEKFKYJud973vCJvWFphgqQGAHo9Ruxuf622LER1")

// Program identifies a deployed scoring program.
type Program struct {
	ID solana.PublicKey
}

// NewProgram returns a Program bound to id.
func NewProgram(id solana.PublicKey) Program {
	return Program{ID: id}
}

// CheckProgramAccount returns ErrIncorrectProgramID unless id is the program's address.
func (p Program) CheckProgramAccount(id solana.PublicKey) error {
	if !id.Equals(p.ID) {
		return ErrIncorrectProgramID
	}
	return nil
}

// NewInitializeScoreMintInstruction builds an InitializeScoreMint instruction
// targeting programID, which must be this program's address.
func (p Program) NewInitializeScoreMintInstruction(
	programID solana.PublicKey,
	mint solana.PublicKey,
	scoreAuthority solana.PublicKey,
	freezeAuthority *solana.PublicKey,
	metadataURI string,
) (*solana.GenericInstruction, error) {
	if err := p.CheckProgramAccount(programID); err != nil {
		return nil, err
	}

	inst := &InitializeScoreMint{
		ScoreAuthority:  scoreAuthority,
		FreezeAuthority: freezeAuthority,
		MetadataURI:     metadataURI,
	}
	data, err := inst.Encode()
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(mint, true, false),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}
