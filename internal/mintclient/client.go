// Package mintclient reads, creates and watches scoring mints through a Solana RPC endpoint.
package mintclient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"solana-scoring/internal/scoring"
	solclient "solana-scoring/internal/solana"
)

// MaxURILength is the longest metadata URI accepted on the command line.
// The on-chain slot is smaller; see scoring.MaxMetadataURILen.
const MaxURILength = 255

var (
	// ErrMintNotFound is returned when the mint account does not exist.
	ErrMintNotFound = errors.New("mint not found")
	// ErrNotScoringMint is returned when the account is not owned by the scoring program.
	ErrNotScoringMint = errors.New("account is not owned by the scoring program")
	// ErrInvalidURI is returned when a metadata URI fails validation.
	ErrInvalidURI = errors.New("invalid metadata uri")
	// ErrNoWSClient is returned by WatchMint when no WebSocket client is configured.
	ErrNoWSClient = errors.New("no websocket client configured")
)

// MintDetails is a decoded scoring mint account.
type MintDetails struct {
	Address         solana.PublicKey
	Lamports        uint64
	State           scoring.MintState
	ScoreAuthority  solana.PublicKey
	FreezeAuthority *solana.PublicKey
	MetadataURI     string
}

// Client talks to the scoring program through RPC.
type Client struct {
	rpc     solclient.RPCClient
	ws      solclient.WSClient
	program scoring.Program
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithWSClient enables WatchMint.
func WithWSClient(ws solclient.WSClient) Option {
	return func(c *Client) {
		c.ws = ws
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a Client for the scoring program at programID.
func New(rpc solclient.RPCClient, programID solana.PublicKey, opts ...Option) *Client {
	c := &Client{
		rpc:     rpc,
		program: scoring.NewProgram(programID),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetMintDetails fetches and decodes the mint at address.
func (c *Client) GetMintDetails(ctx context.Context, address solana.PublicKey) (*MintDetails, error) {
	info, err := c.rpc.GetAccountInfo(ctx, address.String())
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", address, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", ErrMintNotFound, address)
	}
	return c.decodeMint(address, info)
}

func (c *Client) decodeMint(address solana.PublicKey, info *solclient.AccountInfo) (*MintDetails, error) {
	owner, err := solana.PublicKeyFromBase58(info.Owner)
	if err != nil {
		return nil, fmt.Errorf("parse owner of %s: %w", address, err)
	}
	if err := c.program.CheckProgramAccount(owner); err != nil {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrNotScoringMint, address, owner)
	}

	data, err := info.DecodeData()
	if err != nil {
		return nil, err
	}
	m, err := scoring.DecodeMint(data, scoring.MintSize)
	if err != nil {
		return nil, fmt.Errorf("decode mint %s: %w", address, err)
	}

	return &MintDetails{
		Address:         address,
		Lamports:        info.Lamports,
		State:           m.State,
		ScoreAuthority:  m.ScoreAuthority,
		FreezeAuthority: m.FreezeAuthority,
		MetadataURI:     m.MetadataURI,
	}, nil
}

// CreateParams describes a new scoring mint.
type CreateParams struct {
	// Payer funds the mint account and pays for the transaction.
	Payer solana.PrivateKey
	// Mint is the keypair of the new mint account. A fresh keypair is generated when nil.
	Mint solana.PrivateKey
	// ScoreAuthority defaults to the payer.
	ScoreAuthority  *solana.PublicKey
	FreezeAuthority *solana.PublicKey
	MetadataURI     string
}

// CreateResult is the outcome of CreateScoringMint.
type CreateResult struct {
	Mint         solana.PublicKey
	Signature    string
	RentLamports uint64
}

// ValidateURI checks that uri parses, names a host and fits the mint's URI slot.
func ValidateURI(uri string) error {
	u, err := url.Parse(uri)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: no host provided", ErrInvalidURI)
	}
	if len(uri) > MaxURILength {
		return fmt.Errorf("%w: too long: %d bytes", ErrInvalidURI, len(uri))
	}
	if err := scoring.ValidateMetadataURI(uri); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	return nil
}

// CreateScoringMint creates and initializes a mint in one transaction.
func (c *Client) CreateScoringMint(ctx context.Context, p CreateParams) (*CreateResult, error) {
	if err := ValidateURI(p.MetadataURI); err != nil {
		return nil, err
	}
	if len(p.Payer) == 0 {
		return nil, errors.New("payer keypair is required")
	}

	mintKey := p.Mint
	if len(mintKey) == 0 {
		var err error
		mintKey, err = solana.NewRandomPrivateKey()
		if err != nil {
			return nil, fmt.Errorf("generate mint keypair: %w", err)
		}
	}
	payer := p.Payer.PublicKey()
	mint := mintKey.PublicKey()

	authority := payer
	if p.ScoreAuthority != nil {
		authority = *p.ScoreAuthority
	}

	rentLamports, err := c.rpc.GetMinimumBalanceForRentExemption(ctx, scoring.MintSize)
	if err != nil {
		return nil, fmt.Errorf("get rent exemption: %w", err)
	}

	initialize, err := c.program.NewInitializeScoreMintInstruction(c.program.ID, mint, authority, p.FreezeAuthority, p.MetadataURI)
	if err != nil {
		return nil, fmt.Errorf("build initialize instruction: %w", err)
	}
	create := system.NewCreateAccountInstruction(rentLamports, scoring.MintSize, c.program.ID, payer, mint).Build()

	bh, err := c.rpc.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest blockhash: %w", err)
	}
	blockhash, err := solana.HashFromBase58(bh.Blockhash)
	if err != nil {
		return nil, fmt.Errorf("parse blockhash: %w", err)
	}

	tx, err := solana.NewTransaction([]solana.Instruction{create, initialize}, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(payer):
			return &p.Payer
		case key.Equals(mint):
			return &mintKey
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	encoded, err := tx.ToBase64()
	if err != nil {
		return nil, fmt.Errorf("encode transaction: %w", err)
	}
	sig, err := c.rpc.SendTransaction(ctx, encoded)
	if err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	c.logf("created scoring mint %s (signature %s)", mint, sig)
	return &CreateResult{Mint: mint, Signature: sig, RentLamports: rentLamports}, nil
}

func (c *Client) logf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, args...)
	}
}
