package rpcserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/ledger"
	"solana-scoring/internal/scoring"
	"solana-scoring/internal/storage"
)

// MaxTransactionSize is the largest accepted wire transaction in bytes.
const MaxTransactionSize = 1232

// Supported encodings.
const (
	EncodingBase58 = "base58"
	EncodingBase64 = "base64"
)

// parseParams unmarshals positional params into targets.
// The first required params must be present; null entries are skipped.
func parseParams(raw json.RawMessage, required int, targets ...interface{}) *Error {
	var items []json.RawMessage
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &items); err != nil {
			return invalidParams("Invalid params: expected an array")
		}
	}
	if len(items) < required {
		return invalidParams("Invalid params: expected at least %d parameters", required)
	}
	if len(items) > len(targets) {
		return invalidParams("Invalid params: expected at most %d parameters", len(targets))
	}
	for i, item := range items {
		if string(item) == "null" {
			continue
		}
		if err := json.Unmarshal(item, targets[i]); err != nil {
			return invalidParams("Invalid params: %v", err)
		}
	}
	return nil
}

func parsePubkey(s string) (solana.PublicKey, *Error) {
	pk, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, invalidParams("Invalid param: %v", err)
	}
	return pk, nil
}

func (s *Server) getAccountInfo(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var (
		address string
		cfg     accountConfig
	)
	if rpcErr := parseParams(params, 1, &address, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	pk, rpcErr := parsePubkey(address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	encoding := cfg.Encoding
	if encoding == "" {
		encoding = EncodingBase58
	}
	if encoding != EncodingBase58 && encoding != EncodingBase64 {
		return nil, invalidParams("Invalid params: unsupported encoding %q", encoding)
	}

	slot := s.host.Slot()
	acc, err := s.host.GetAccount(ctx, pk)
	if errors.Is(err, storage.ErrNotFound) {
		return contextResult{Context: rpcContext{Slot: slot}, Value: nil}, nil
	}
	if err != nil {
		return nil, s.internalError("getAccountInfo", err)
	}
	if !acc.Exists() {
		return contextResult{Context: rpcContext{Slot: slot}, Value: nil}, nil
	}
	return contextResult{Context: rpcContext{Slot: slot}, Value: encodeAccount(acc, encoding)}, nil
}

func encodeAccount(acc *domain.Account, encoding string) *accountValue {
	var payload string
	if encoding == EncodingBase64 {
		payload = base64.StdEncoding.EncodeToString(acc.Data)
	} else {
		payload = base58.Encode(acc.Data)
	}
	return &accountValue{
		Lamports:   acc.Lamports,
		Owner:      acc.Owner.String(),
		Data:       []string{payload, encoding},
		Executable: acc.Executable,
		RentEpoch:  acc.RentEpoch,
		Space:      len(acc.Data),
	}
}

func (s *Server) getBalance(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var (
		address string
		cfg     accountConfig
	)
	if rpcErr := parseParams(params, 1, &address, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	pk, rpcErr := parsePubkey(address)
	if rpcErr != nil {
		return nil, rpcErr
	}

	slot := s.host.Slot()
	acc, err := s.host.GetAccount(ctx, pk)
	if errors.Is(err, storage.ErrNotFound) {
		return contextResult{Context: rpcContext{Slot: slot}, Value: uint64(0)}, nil
	}
	if err != nil {
		return nil, s.internalError("getBalance", err)
	}
	return contextResult{Context: rpcContext{Slot: slot}, Value: acc.Lamports}, nil
}

func (s *Server) getMinimumBalanceForRentExemption(_ context.Context, params json.RawMessage) (interface{}, *Error) {
	var (
		dataLen uint64
		cfg     accountConfig
	)
	if rpcErr := parseParams(params, 1, &dataLen, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	if dataLen > ledger.MaxPermittedDataLength {
		return nil, invalidParams("Invalid params: data length %d exceeds %d", dataLen, ledger.MaxPermittedDataLength)
	}
	return s.host.MinimumBalanceForRentExemption(dataLen), nil
}

func (s *Server) getLatestBlockhash(_ context.Context, params json.RawMessage) (interface{}, *Error) {
	var cfg accountConfig
	if rpcErr := parseParams(params, 0, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	slot := s.host.Slot()
	hash, lastValid := s.host.LatestBlockhash()
	return contextResult{
		Context: rpcContext{Slot: slot},
		Value: blockhashValue{
			Blockhash:            hash.String(),
			LastValidBlockHeight: lastValid,
		},
	}, nil
}

func (s *Server) getSlot(_ context.Context, params json.RawMessage) (interface{}, *Error) {
	var cfg accountConfig
	if rpcErr := parseParams(params, 0, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	return s.host.Slot(), nil
}

func (s *Server) requestAirdrop(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var (
		address  string
		lamports uint64
		cfg      accountConfig
	)
	if rpcErr := parseParams(params, 2, &address, &lamports, &cfg); rpcErr != nil {
		return nil, rpcErr
	}
	pk, rpcErr := parsePubkey(address)
	if rpcErr != nil {
		return nil, rpcErr
	}
	if lamports == 0 {
		return nil, invalidParams("Invalid params: lamports must be positive")
	}
	if s.maxAirdrop > 0 && lamports > s.maxAirdrop {
		return nil, invalidParams("Invalid params: airdrop of %d lamports exceeds limit %d", lamports, s.maxAirdrop)
	}

	sig, err := s.host.Airdrop(ctx, pk, lamports)
	if err != nil {
		return nil, s.transactionFailed(err)
	}
	return sig.String(), nil
}

func (s *Server) sendTransaction(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var (
		encoded string
		cfg     sendConfig
	)
	if rpcErr := parseParams(params, 1, &encoded, &cfg); rpcErr != nil {
		return nil, rpcErr
	}

	raw, rpcErr := decodeWireTransaction(encoded, cfg.Encoding)
	if rpcErr != nil {
		return nil, rpcErr
	}

	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, invalidParams("failed to deserialize transaction: %v", err)
	}
	if err := tx.VerifySignatures(); err != nil {
		return nil, &Error{Code: CodeSignatureVerifyFail, Message: "Transaction signature verification failure"}
	}

	ltx, err := ledger.TransactionFromSolana(tx)
	if err != nil {
		return nil, invalidParams("invalid transaction: %v", err)
	}

	sig, err := s.host.Submit(ctx, ltx)
	if err != nil {
		return nil, s.transactionFailed(err)
	}
	return sig.String(), nil
}

func decodeWireTransaction(encoded, encoding string) ([]byte, *Error) {
	var (
		raw []byte
		err error
	)
	switch encoding {
	case "", EncodingBase58:
		raw, err = base58.Decode(encoded)
	case EncodingBase64:
		raw, err = base64.StdEncoding.DecodeString(encoded)
	default:
		return nil, invalidParams("Invalid params: unsupported encoding %q", encoding)
	}
	if err != nil {
		return nil, invalidParams("invalid transaction encoding: %v", err)
	}
	if len(raw) == 0 {
		return nil, invalidParams("invalid transaction: empty")
	}
	if len(raw) > MaxTransactionSize {
		return nil, invalidParams("transaction too large: %d bytes (max %d)", len(raw), MaxTransactionSize)
	}
	return raw, nil
}

// transactionFailed maps a ledger error to a -32002 error whose data mirrors
// a Solana TransactionError.
func (s *Server) transactionFailed(err error) *Error {
	var ie *ledger.InstructionError
	if errors.As(err, &ie) {
		detail := ie.Err.Error()
		var errValue interface{} = ledger.ErrorName(ie.Err)
		if code, ok := scoring.CodeOf(ie.Err); ok {
			detail = fmt.Sprintf("custom program error: 0x%x", code)
			errValue = map[string]uint32{"Custom": code}
		}
		return &Error{
			Code:    CodeTransactionFailed,
			Message: fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", ie.Index, detail),
			Data: transactionError{
				Err:  map[string]interface{}{"InstructionError": []interface{}{ie.Index, errValue}},
				Logs: []string{},
			},
		}
	}

	var name string
	switch {
	case errors.Is(err, ledger.ErrBlockhashNotFound):
		name = "BlockhashNotFound"
	case errors.Is(err, ledger.ErrAlreadyProcessed):
		name = "AlreadyProcessed"
	case errors.Is(err, ledger.ErrNoInstructions),
		errors.Is(err, ledger.ErrMissingFeePayer),
		errors.Is(err, ledger.ErrInvalidTransaction),
		errors.Is(err, ledger.ErrInvalidAirdropAmount),
		errors.Is(err, ledger.ErrArithmeticOverflow):
		name = "InvalidTransaction"
	default:
		return s.internalError("submit", err)
	}
	return &Error{
		Code:    CodeTransactionFailed,
		Message: "Transaction simulation failed: " + err.Error(),
		Data:    transactionError{Err: name, Logs: []string{}},
	}
}

func (s *Server) internalError(op string, err error) *Error {
	s.logf("%s: %v", op, err)
	return &Error{Code: CodeInternalError, Message: "Internal error"}
}
