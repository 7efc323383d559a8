// Package rpcserver exposes a Ledger over a subset of the Solana JSON-RPC API.
package rpcserver

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/ledger"
	"solana-scoring/internal/observability"
)

// MaxRequestBytes bounds the size of a JSON-RPC request body.
const MaxRequestBytes = 1 << 20

// Host is the ledger surface served over RPC.
type Host interface {
	GetAccount(ctx context.Context, address solana.PublicKey) (*domain.Account, error)
	MinimumBalanceForRentExemption(dataLen uint64) uint64
	LatestBlockhash() (solana.Hash, uint64)
	Slot() uint64
	Airdrop(ctx context.Context, address solana.PublicKey, lamports uint64) (solana.Signature, error)
	Submit(ctx context.Context, tx *ledger.Transaction) (solana.Signature, error)
	WatchAccount(address solana.PublicKey) (<-chan ledger.AccountUpdate, func())
}

var _ Host = (*ledger.Ledger)(nil)

// Server handles JSON-RPC requests against a Host.
type Server struct {
	host       Host
	metrics    *observability.Metrics
	logger     *log.Logger
	upgrader   websocket.Upgrader
	maxAirdrop uint64

	methods map[string]methodFunc
}

type methodFunc func(ctx context.Context, params json.RawMessage) (interface{}, *Error)

// Option configures a Server.
type Option func(*Server)

// WithMetrics sets the metrics sink. Defaults to observability.DefaultMetrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxAirdrop caps the lamports a single requestAirdrop may credit. Zero disables the cap.
func WithMaxAirdrop(lamports uint64) Option {
	return func(s *Server) {
		s.maxAirdrop = lamports
	}
}

// New creates a Server over host.
func New(host Host, opts ...Option) *Server {
	s := &Server{
		host:    host,
		metrics: observability.DefaultMetrics,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.methods = map[string]methodFunc{
		"getAccountInfo":                    s.getAccountInfo,
		"getBalance":                        s.getBalance,
		"getMinimumBalanceForRentExemption": s.getMinimumBalanceForRentExemption,
		"getLatestBlockhash":                s.getLatestBlockhash,
		"getSlot":                           s.getSlot,
		"requestAirdrop":                    s.requestAirdrop,
		"sendTransaction":                   s.sendTransaction,
	}
	return s
}

// Handler returns the HTTP handler serving JSON-RPC on "/", WebSocket
// subscriptions on "/" with an Upgrade header, "/health" and "/metrics".
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.HandleFunc("/", s.handleRoot)
	return mux
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		s.serveWS(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBytes+1))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	if len(body) > MaxRequestBytes {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	var out interface{}
	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		var batch []json.RawMessage
		if err := json.Unmarshal(body, &batch); err != nil {
			out = errorResponse(nil, &Error{Code: CodeParseError, Message: "Parse error"})
		} else if len(batch) == 0 {
			out = errorResponse(nil, &Error{Code: CodeInvalidRequest, Message: "Invalid request"})
		} else {
			resps := make([]*response, 0, len(batch))
			for _, raw := range batch {
				resps = append(resps, s.handleMessage(r.Context(), raw))
			}
			out = resps
		}
	} else {
		out = s.handleMessage(r.Context(), body)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logf("write response: %v", err)
	}
}

// handleMessage decodes and dispatches a single JSON-RPC request.
func (s *Server) handleMessage(ctx context.Context, raw []byte) *response {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResponse(nil, &Error{Code: CodeParseError, Message: "Parse error"})
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		return errorResponse(req.ID, &Error{Code: CodeInvalidRequest, Message: "Invalid request"})
	}

	start := time.Now()
	method, ok := s.methods[req.Method]
	if !ok {
		s.metrics.RecordRPC("unknown", "error", time.Since(start).Seconds())
		return errorResponse(req.ID, &Error{Code: CodeMethodNotFound, Message: "Method not found"})
	}

	result, rpcErr := method(ctx, req.Params)
	status := "ok"
	if rpcErr != nil {
		status = "error"
	}
	s.metrics.RecordRPC(req.Method, status, time.Since(start).Seconds())

	if rpcErr != nil {
		return errorResponse(req.ID, rpcErr)
	}
	return &response{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func errorResponse(id json.RawMessage, err *Error) *response {
	if id == nil {
		id = json.RawMessage("null")
	}
	return &response{JSONRPC: "2.0", ID: id, Error: err}
}

func (s *Server) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
