package ledger

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-scoring/internal/scoring"
)

func TestTransactionFromSolana(t *testing.T) {
	payer := solana.NewWallet()
	mint := solana.NewWallet()
	blockhash := solana.Hash{1, 2, 3}

	create := system.NewCreateAccountInstruction(mintRent, scoring.MintSize, scoring.DefaultProgramID,
		payer.PublicKey(), mint.PublicKey()).Build()
	initialize, err := scoring.NewProgram(scoring.DefaultProgramID).NewInitializeScoreMintInstruction(
		scoring.DefaultProgramID, mint.PublicKey(), payer.PublicKey(), nil, "https://example.com")
	require.NoError(t, err)

	stx, err := solana.NewTransaction([]solana.Instruction{create, initialize}, blockhash,
		solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)

	_, err = stx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(payer.PublicKey()):
			return &payer.PrivateKey
		case key.Equals(mint.PublicKey()):
			return &mint.PrivateKey
		}
		return nil
	})
	require.NoError(t, err)

	tx, err := TransactionFromSolana(stx)
	require.NoError(t, err)

	assert.Equal(t, stx.Signatures[0], tx.Signature)
	assert.Equal(t, payer.PublicKey(), tx.FeePayer)
	assert.Equal(t, blockhash, tx.RecentBlockhash)
	require.Len(t, tx.Instructions, 2)

	createInst := tx.Instructions[0]
	assert.Equal(t, solana.SystemProgramID, createInst.ProgramID)
	require.Len(t, createInst.Accounts, 2)
	assert.True(t, createInst.Accounts[0].IsSigner)
	assert.True(t, createInst.Accounts[0].IsWritable)
	assert.True(t, createInst.Accounts[1].IsSigner)
	assert.True(t, createInst.Accounts[1].IsWritable)

	initInst := tx.Instructions[1]
	assert.Equal(t, scoring.DefaultProgramID, initInst.ProgramID)
	require.Len(t, initInst.Accounts, 1)
	assert.Equal(t, mint.PublicKey(), initInst.Accounts[0].PublicKey)
	assert.True(t, initInst.Accounts[0].IsWritable)

	data, err := initialize.Data()
	require.NoError(t, err)
	assert.Equal(t, data, initInst.Data)
}

func TestTransactionFromSolana_InvalidHeader(t *testing.T) {
	payer := solana.NewWallet()
	stx, err := solana.NewTransaction([]solana.Instruction{
		system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build(),
	}, solana.Hash{1}, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)

	// unsigned: signature count does not match the header
	_, err = TransactionFromSolana(stx)
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	stx.Signatures = []solana.Signature{{1}}
	stx.Message.Instructions[0].ProgramIDIndex = 99
	_, err = TransactionFromSolana(stx)
	assert.ErrorIs(t, err, ErrInvalidAccountIndex)
}
