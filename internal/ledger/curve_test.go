package ledger

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-scoring/internal/scoring"
)

func TestIsOnCurve(t *testing.T) {
	assert.True(t, isOnCurve(solana.NewWallet().PublicKey()))

	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("score")}, scoring.DefaultProgramID)
	require.NoError(t, err)
	assert.False(t, isOnCurve(pda))
}

func TestLedger_RejectsOffCurveFeePayer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pda, _, err := solana.FindProgramAddress([][]byte{[]byte("payer")}, scoring.DefaultProgramID)
	require.NoError(t, err)
	_, err = env.ledger.Airdrop(ctx, pda, 1_000_000)
	require.NoError(t, err)

	tx := env.tx(t, system.NewTransferInstruction(100, pda, solana.NewWallet().PublicKey()).Build())
	tx.FeePayer = pda
	_, err = env.ledger.Submit(ctx, tx)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
	assert.Equal(t, uint64(1_000_000), env.balance(t, pda))
}
