package rpcserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/mr-tron/base58"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-scoring/internal/ledger"
	"solana-scoring/internal/observability"
	"solana-scoring/internal/scoring"
	solclient "solana-scoring/internal/solana"
	"solana-scoring/internal/storage/memory"
)

const testURI = "https://example.org/m.json"

type testServer struct {
	ledger *ledger.Ledger
	http   *httptest.Server
	client *solclient.HTTPClient
}

func newTestServer(t *testing.T, opts ...Option) *testServer {
	t.Helper()

	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	l := ledger.New(memory.NewAccountStore(), ledger.WithMetrics(metrics))
	srv := New(l, append([]Option{WithMetrics(metrics)}, opts...)...)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{
		ledger: l,
		http:   ts,
		client: solclient.NewHTTPClient(ts.URL, solclient.WithMaxRetries(0)),
	}
}

// postRaw sends body to the server and returns the decoded response.
func (ts *testServer) postRaw(t *testing.T, body string) map[string]interface{} {
	t.Helper()

	resp, err := http.Post(ts.http.URL, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func errorCode(t *testing.T, resp map[string]interface{}) int {
	t.Helper()
	e, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "expected error in %v", resp)
	return int(e["code"].(float64))
}

// buildMintTx builds a signed create+initialize transaction.
func buildMintTx(t *testing.T, ts *testServer, payer, mint solana.PrivateKey, lamports uint64) *solana.Transaction {
	t.Helper()
	ctx := context.Background()

	bh, err := ts.client.GetLatestBlockhash(ctx)
	require.NoError(t, err)

	create := system.NewCreateAccountInstruction(lamports, scoring.MintSize, scoring.DefaultProgramID, payer.PublicKey(), mint.PublicKey()).Build()
	initialize, err := scoring.NewProgram(scoring.DefaultProgramID).NewInitializeScoreMintInstruction(
		scoring.DefaultProgramID, mint.PublicKey(), payer.PublicKey(), nil, testURI)
	require.NoError(t, err)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{create, initialize},
		solana.MustHashFromBase58(bh.Blockhash),
		solana.TransactionPayer(payer.PublicKey()),
	)
	require.NoError(t, err)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		switch {
		case key.Equals(payer.PublicKey()):
			return &payer
		case key.Equals(mint.PublicKey()):
			return &mint
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func fundedPayer(t *testing.T, ts *testServer) solana.PrivateKey {
	t.Helper()
	payer := solana.NewWallet().PrivateKey
	_, err := ts.client.RequestAirdrop(context.Background(), payer.PublicKey().String(), 1_000_000_000)
	require.NoError(t, err)
	return payer
}

func rpcErrorOf(t *testing.T, err error) *solclient.RPCError {
	t.Helper()
	var rpcErr *solclient.RPCError
	require.True(t, errors.As(err, &rpcErr), "expected RPC error, got %v", err)
	return rpcErr
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_GetAccountInfo_NotFound(t *testing.T) {
	ts := newTestServer(t)

	info, err := ts.client.GetAccountInfo(context.Background(), solana.NewWallet().PublicKey().String())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestServer_AirdropAndBalance(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	addr := solana.NewWallet().PublicKey().String()

	sig, err := ts.client.RequestAirdrop(ctx, addr, 5000)
	require.NoError(t, err)
	assert.NotEmpty(t, sig)

	balance, err := ts.client.GetBalance(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(5000), balance)

	info, err := ts.client.GetAccountInfo(ctx, addr)
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, solana.SystemProgramID.String(), info.Owner)

	slot, err := ts.client.GetSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), slot)
}

func TestServer_AirdropLimit(t *testing.T) {
	ts := newTestServer(t, WithMaxAirdrop(100))

	_, err := ts.client.RequestAirdrop(context.Background(), solana.NewWallet().PublicKey().String(), 101)
	assert.Equal(t, CodeInvalidParams, rpcErrorOf(t, err).Code)
}

func TestServer_GetMinimumBalanceForRentExemption(t *testing.T) {
	ts := newTestServer(t)

	lamports, err := ts.client.GetMinimumBalanceForRentExemption(context.Background(), scoring.MintSize)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_241_120), lamports)
}

func TestServer_SendTransaction_CreatesMint(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	payer := fundedPayer(t, ts)
	mint := solana.NewWallet().PrivateKey
	tx := buildMintTx(t, ts, payer, mint, 2_241_120)

	encoded, err := tx.ToBase64()
	require.NoError(t, err)

	sig, err := ts.client.SendTransaction(ctx, encoded)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0].String(), sig)

	info, err := ts.client.GetAccountInfo(ctx, mint.PublicKey().String())
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, scoring.DefaultProgramID.String(), info.Owner)

	data, err := info.DecodeData()
	require.NoError(t, err)
	m, err := scoring.DecodeMint(data, scoring.MintSize)
	require.NoError(t, err)
	assert.Equal(t, scoring.MintStateInitialized, m.State)
	assert.Equal(t, payer.PublicKey(), m.ScoreAuthority)
	assert.Equal(t, testURI, m.MetadataURI)

	// Replaying the same signed transaction is rejected.
	_, err = ts.client.SendTransaction(ctx, encoded)
	assert.Equal(t, CodeTransactionFailed, rpcErrorOf(t, err).Code)
}

func TestServer_SendTransaction_Base58(t *testing.T) {
	ts := newTestServer(t)

	payer := fundedPayer(t, ts)
	tx := buildMintTx(t, ts, payer, solana.NewWallet().PrivateKey, 2_241_120)

	raw, err := tx.MarshalBinary()
	require.NoError(t, err)

	body := `{"jsonrpc":"2.0","id":1,"method":"sendTransaction","params":["` + base58.Encode(raw) + `"]}`
	resp := ts.postRaw(t, body)
	assert.Nil(t, resp["error"])
	assert.Equal(t, tx.Signatures[0].String(), resp["result"])
}

func TestServer_SendTransaction_ProgramError(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	payer := fundedPayer(t, ts)
	mint := solana.NewWallet().PrivateKey
	tx := buildMintTx(t, ts, payer, mint, 2_241_119)

	encoded, err := tx.ToBase64()
	require.NoError(t, err)

	_, err = ts.client.SendTransaction(ctx, encoded)
	rpcErr := rpcErrorOf(t, err)
	assert.Equal(t, CodeTransactionFailed, rpcErr.Code)
	assert.Contains(t, rpcErr.Message, "Error processing Instruction 1: custom program error: 0x3")

	var data struct {
		Err map[string][]interface{} `json:"err"`
	}
	require.NoError(t, json.Unmarshal(rpcErr.Data, &data))
	require.Len(t, data.Err["InstructionError"], 2)
	assert.Equal(t, float64(1), data.Err["InstructionError"][0])
	assert.Equal(t, map[string]interface{}{"Custom": float64(3)}, data.Err["InstructionError"][1])

	// Create was rolled back with the failed initialize.
	info, err := ts.client.GetAccountInfo(ctx, mint.PublicKey().String())
	require.NoError(t, err)
	assert.Nil(t, info)
}

func TestServer_SendTransaction_BadSignature(t *testing.T) {
	ts := newTestServer(t)

	payer := fundedPayer(t, ts)
	tx := buildMintTx(t, ts, payer, solana.NewWallet().PrivateKey, 2_241_120)
	tx.Signatures[1][0] ^= 0xff

	encoded, err := tx.ToBase64()
	require.NoError(t, err)

	_, err = ts.client.SendTransaction(context.Background(), encoded)
	assert.Equal(t, CodeSignatureVerifyFail, rpcErrorOf(t, err).Code)
}

func TestServer_SendTransaction_InvalidEncoding(t *testing.T) {
	ts := newTestServer(t)

	_, err := ts.client.SendTransaction(context.Background(), "not base64!")
	assert.Equal(t, CodeInvalidParams, rpcErrorOf(t, err).Code)
}

func TestServer_GetLatestBlockhashAdvances(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()

	first, err := ts.client.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(ledger.MaxRecentBlockhashes), first.LastValidBlockHeight)

	_, err = ts.client.RequestAirdrop(ctx, solana.NewWallet().PublicKey().String(), 1)
	require.NoError(t, err)

	second, err := ts.client.GetLatestBlockhash(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.Blockhash, second.Blockhash)
}

func TestServer_ProtocolErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse error", `{`, CodeParseError},
		{"missing version", `{"id":1,"method":"getSlot"}`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"getBlock"}`, CodeMethodNotFound},
		{"params not array", `{"jsonrpc":"2.0","id":1,"method":"getBalance","params":{}}`, CodeInvalidParams},
		{"missing params", `{"jsonrpc":"2.0","id":1,"method":"getBalance","params":[]}`, CodeInvalidParams},
		{"bad pubkey", `{"jsonrpc":"2.0","id":1,"method":"getBalance","params":["xyz"]}`, CodeInvalidParams},
		{"bad encoding", `{"jsonrpc":"2.0","id":1,"method":"getAccountInfo","params":["11111111111111111111111111111111",{"encoding":"jsonParsed"}]}`, CodeInvalidParams},
		{"zero airdrop", `{"jsonrpc":"2.0","id":1,"method":"requestAirdrop","params":["11111111111111111111111111111111",0]}`, CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, errorCode(t, ts.postRaw(t, tt.body)))
		})
	}
}

func TestServer_Batch(t *testing.T) {
	ts := newTestServer(t)

	body := `[{"jsonrpc":"2.0","id":1,"method":"getSlot"},{"jsonrpc":"2.0","id":2,"method":"nope"}]`
	resp, err := http.Post(ts.http.URL, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var out []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.Len(t, out, 2)
	assert.Equal(t, float64(0), out[0]["result"])
	assert.Equal(t, float64(CodeMethodNotFound), out[1]["error"].(map[string]interface{})["code"])
}

func TestServer_MethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.http.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServer_AccountSubscribe(t *testing.T) {
	ts := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(ts.http.URL, "http")
	ws, err := solclient.NewWSClient(ctx, wsURL, nil)
	require.NoError(t, err)
	defer ws.Close()

	addr := solana.NewWallet().PublicKey().String()
	updates, err := ws.SubscribeAccount(ctx, addr)
	require.NoError(t, err)

	_, err = ts.client.RequestAirdrop(ctx, addr, 42)
	require.NoError(t, err)

	select {
	case n := <-updates:
		require.NotNil(t, n.Account)
		assert.Equal(t, uint64(42), n.Account.Lamports)
		assert.Equal(t, uint64(1), n.Slot)
	case <-ctx.Done():
		t.Fatal("timeout waiting for account notification")
	}
}
