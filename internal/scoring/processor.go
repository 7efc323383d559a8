package scoring

import (
	"fmt"
	"log"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/rent"
)

// InitializeParams are the caller-supplied inputs to Initialize.
type InitializeParams struct {
	ScoreAuthority  solana.PublicKey
	FreezeAuthority *solana.PublicKey
	MetadataURI     string

	// RentExemptMinimum is the externally computed rent-exempt balance
	// for an account of AccountLength bytes.
	RentExemptMinimum uint64
	AccountLamports   uint64
	AccountLength     int
}

// Initialize performs the Uninitialized -> Initialized transition on record
// and returns the newly encoded record. record is never modified; on error
// the caller's stored bytes remain authoritative.
//
// Ownership of record is not checked here: the caller must only invoke
// Initialize for accounts it is authorized to write.
func Initialize(record []byte, p InitializeParams) ([]byte, error) {
	if p.AccountLength != len(record) {
		return nil, ErrDataTypeMismatch
	}

	mint, err := DecodeMint(record, MintSize)
	if err != nil {
		return nil, err
	}
	if mint.State != MintStateUninitialized {
		return nil, ErrMintExists
	}
	if p.AccountLamports < p.RentExemptMinimum {
		return nil, ErrScoringMintNotRentExempt
	}
	if err := ValidateMetadataURI(p.MetadataURI); err != nil {
		return nil, err
	}

	mint.ScoreAuthority = p.ScoreAuthority
	mint.FreezeAuthority = nil
	if p.FreezeAuthority != nil {
		freeze := *p.FreezeAuthority
		mint.FreezeAuthority = &freeze
	}
	mint.State = MintStateInitialized
	mint.MetadataURI = p.MetadataURI

	return EncodeMint(mint)
}

// AccountInfo is the runtime's view of an account passed to the program.
// Data is writable in place; the runtime decides whether changes persist.
type AccountInfo struct {
	Key        solana.PublicKey
	Owner      solana.PublicKey
	Lamports   uint64
	Data       []byte
	IsSigner   bool
	IsWritable bool
}

// Processor executes scoring program instructions.
type Processor struct {
	rent   rent.Rent
	logger *log.Logger
}

// NewProcessor creates a Processor using r to compute rent-exempt minimums.
// logger may be nil.
func NewProcessor(r rent.Rent, logger *log.Logger) *Processor {
	return &Processor{rent: r, logger: logger}
}

// Process decodes input and executes it against accounts.
func (p *Processor) Process(programID solana.PublicKey, accounts []*AccountInfo, input []byte) error {
	inst, err := DecodeInstruction(input)
	if err != nil {
		p.logf("failed to unpack ScoreInstruction (%d bytes): %v", len(input), err)
		return err
	}

	switch inst := inst.(type) {
	case *InitializeScoreMint:
		return p.processInitializeScoreMint(accounts, inst)
	default:
		return fmt.Errorf("%w: unsupported instruction %T", ErrInvalidInstructionData, inst)
	}
}

func (p *Processor) processInitializeScoreMint(accounts []*AccountInfo, inst *InitializeScoreMint) error {
	if len(accounts) < 1 {
		return ErrNotEnoughAccountKeys
	}
	mintInfo := accounts[0]

	out, err := Initialize(mintInfo.Data, InitializeParams{
		ScoreAuthority:    inst.ScoreAuthority,
		FreezeAuthority:   inst.FreezeAuthority,
		MetadataURI:       inst.MetadataURI,
		RentExemptMinimum: p.rent.MinimumBalance(uint64(len(mintInfo.Data))),
		AccountLamports:   mintInfo.Lamports,
		AccountLength:     len(mintInfo.Data),
	})
	if err != nil {
		return err
	}

	copy(mintInfo.Data, out)
	p.logf("initialized scoring mint %s", mintInfo.Key)
	return nil
}

func (p *Processor) logf(format string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Printf(format, args...)
	}
}
