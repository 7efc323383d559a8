package mintclient

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-scoring/internal/scoring"
	solclient "solana-scoring/internal/solana"
	"solana-scoring/internal/solana/stub"
)

func mintAccount(t *testing.T, m *scoring.Mint, owner solana.PublicKey) *solclient.AccountInfo {
	t.Helper()
	data, err := scoring.EncodeMint(m)
	require.NoError(t, err)
	return &solclient.AccountInfo{
		Lamports: 2_241_120,
		Owner:    owner.String(),
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

func TestGetMintDetails(t *testing.T) {
	rpc := stub.NewRPCClient()
	client := New(rpc, scoring.DefaultProgramID)

	mint := solana.NewWallet().PublicKey()
	authority := solana.NewWallet().PublicKey()
	freeze := solana.NewWallet().PublicKey()
	rpc.AddAccount(mint.String(), mintAccount(t, &scoring.Mint{
		ScoreAuthority:  authority,
		FreezeAuthority: &freeze,
		State:           scoring.MintStateInitialized,
		MetadataURI:     "https://example.org/m.json",
	}, scoring.DefaultProgramID))

	details, err := client.GetMintDetails(context.Background(), mint)
	require.NoError(t, err)
	assert.Equal(t, mint, details.Address)
	assert.Equal(t, uint64(2_241_120), details.Lamports)
	assert.Equal(t, scoring.MintStateInitialized, details.State)
	assert.Equal(t, authority, details.ScoreAuthority)
	require.NotNil(t, details.FreezeAuthority)
	assert.Equal(t, freeze, *details.FreezeAuthority)
	assert.Equal(t, "https://example.org/m.json", details.MetadataURI)
}

func TestGetMintDetails_Errors(t *testing.T) {
	rpc := stub.NewRPCClient()
	client := New(rpc, scoring.DefaultProgramID)
	ctx := context.Background()

	_, err := client.GetMintDetails(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrMintNotFound)

	foreign := solana.NewWallet().PublicKey()
	rpc.AddAccount(foreign.String(), mintAccount(t, &scoring.Mint{}, solana.SystemProgramID))
	_, err = client.GetMintDetails(ctx, foreign)
	assert.ErrorIs(t, err, ErrNotScoringMint)

	short := solana.NewWallet().PublicKey()
	rpc.AddAccount(short.String(), &solclient.AccountInfo{
		Owner: scoring.DefaultProgramID.String(),
		Data:  base64.StdEncoding.EncodeToString(make([]byte, 193)),
	})
	_, err = client.GetMintDetails(ctx, short)
	assert.ErrorIs(t, err, scoring.ErrDataTypeMismatch)
}

func TestValidateURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{"valid", "https://example.org/m.json", false},
		{"exactly 128 bytes", "https://example.org/" + strings.Repeat("a", 108), false},
		{"over slot capacity", "https://example.org/" + strings.Repeat("a", 109), true},
		{"over cli limit", "https://example.org/" + strings.Repeat("a", 300), true},
		{"no host", "/relative/path", true},
		{"unparseable", "http://[::1", true},
		{"nul byte", "https://example.org/\x00", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateURI(tt.uri)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURI)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateScoringMint(t *testing.T) {
	rpc := stub.NewRPCClient()
	client := New(rpc, scoring.DefaultProgramID)

	payer := solana.NewWallet().PrivateKey
	mintKey := solana.NewWallet().PrivateKey
	freeze := solana.NewWallet().PublicKey()

	res, err := client.CreateScoringMint(context.Background(), CreateParams{
		Payer:           payer,
		Mint:            mintKey,
		FreezeAuthority: &freeze,
		MetadataURI:     "https://example.org/m.json",
	})
	require.NoError(t, err)
	assert.Equal(t, mintKey.PublicKey(), res.Mint)
	assert.Equal(t, uint64(2_241_120), res.RentLamports)
	require.Len(t, rpc.Sent, 1)

	raw, err := base64.StdEncoding.DecodeString(rpc.Sent[0])
	require.NoError(t, err)
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	require.NoError(t, err)
	require.NoError(t, tx.VerifySignatures())

	assert.Equal(t, payer.PublicKey(), tx.Message.AccountKeys[0])
	assert.Equal(t, solana.MustHashFromBase58(rpc.LatestBlockhash.Blockhash), tx.Message.RecentBlockhash)
	require.Len(t, tx.Message.Instructions, 2)

	keys := tx.Message.AccountKeys
	assert.Equal(t, solana.SystemProgramID, keys[tx.Message.Instructions[0].ProgramIDIndex])
	assert.Equal(t, scoring.DefaultProgramID, keys[tx.Message.Instructions[1].ProgramIDIndex])

	decoded, err := scoring.DecodeInstruction(tx.Message.Instructions[1].Data)
	require.NoError(t, err)
	inst, ok := decoded.(*scoring.InitializeScoreMint)
	require.True(t, ok)
	assert.Equal(t, payer.PublicKey(), inst.ScoreAuthority)
	require.NotNil(t, inst.FreezeAuthority)
	assert.Equal(t, freeze, *inst.FreezeAuthority)
	assert.Equal(t, "https://example.org/m.json", inst.MetadataURI)
}

func TestCreateScoringMint_GeneratesMintKeypair(t *testing.T) {
	rpc := stub.NewRPCClient()
	client := New(rpc, scoring.DefaultProgramID)

	res, err := client.CreateScoringMint(context.Background(), CreateParams{
		Payer:       solana.NewWallet().PrivateKey,
		MetadataURI: "https://example.org/m.json",
	})
	require.NoError(t, err)
	assert.False(t, res.Mint.IsZero())
	assert.Equal(t, "stub-signature-1", res.Signature)
}

func TestCreateScoringMint_Errors(t *testing.T) {
	rpc := stub.NewRPCClient()
	client := New(rpc, scoring.DefaultProgramID)
	ctx := context.Background()
	payer := solana.NewWallet().PrivateKey

	_, err := client.CreateScoringMint(ctx, CreateParams{Payer: payer, MetadataURI: "not a url"})
	assert.ErrorIs(t, err, ErrInvalidURI)
	assert.Empty(t, rpc.Sent)

	_, err = client.CreateScoringMint(ctx, CreateParams{MetadataURI: "https://example.org/m.json"})
	assert.Error(t, err)

	sendErr := errors.New("node unavailable")
	rpc.SendErr = sendErr
	_, err = client.CreateScoringMint(ctx, CreateParams{Payer: payer, MetadataURI: "https://example.org/m.json"})
	assert.ErrorIs(t, err, sendErr)
}

func TestWatchMint(t *testing.T) {
	rpc := stub.NewRPCClient()
	ws := stub.NewWSClient()
	client := New(rpc, scoring.DefaultProgramID, WithWSClient(ws))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mint := solana.NewWallet().PublicKey()
	updates, err := client.WatchMint(ctx, mint)
	require.NoError(t, err)

	authority := solana.NewWallet().PublicKey()
	ws.Publish(mint.String(), solclient.AccountNotification{
		Slot: 7,
		Account: mintAccount(t, &scoring.Mint{
			ScoreAuthority: authority,
			State:          scoring.MintStateInitialized,
			MetadataURI:    "https://example.org/m.json",
		}, scoring.DefaultProgramID),
	})
	ws.Publish(mint.String(), solclient.AccountNotification{Slot: 8})

	select {
	case u := <-updates:
		require.NoError(t, u.Err)
		assert.Equal(t, uint64(7), u.Slot)
		assert.Equal(t, authority, u.Details.ScoreAuthority)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for update")
	}

	select {
	case u := <-updates:
		assert.Equal(t, uint64(8), u.Slot)
		assert.ErrorIs(t, u.Err, ErrMintNotFound)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for update")
	}

	cancel()
	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestWatchMint_NoWSClient(t *testing.T) {
	client := New(stub.NewRPCClient(), scoring.DefaultProgramID)

	_, err := client.WatchMint(context.Background(), solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, ErrNoWSClient)
}
