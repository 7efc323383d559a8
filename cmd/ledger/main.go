// Package main runs the local ledger: the execution host behind a Solana
// compatible JSON-RPC server, with Prometheus metrics on a separate address.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/ledger"
	"solana-scoring/internal/observability"
	"solana-scoring/internal/rpcserver"
	"solana-scoring/internal/scoring"
	"solana-scoring/internal/storage"
	chstore "solana-scoring/internal/storage/clickhouse"
	"solana-scoring/internal/storage/memory"
	"solana-scoring/internal/storage/migrations"
	pgstore "solana-scoring/internal/storage/postgres"
)

// stores holds the ledger's storage implementations.
type stores struct {
	accounts storage.AccountStore
	journal  storage.ExecutionLogStore
	progress storage.LedgerProgressStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listen := flag.String("listen", envOr("LEDGER_LISTEN", ":8899"), "JSON-RPC listen address")
	metricsAddr := flag.String("metrics-addr", envOr("LEDGER_METRICS_ADDR", ":9090"), "Prometheus metrics HTTP address")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional, execution journal)")
	useMemory := flag.Bool("use-memory", envBool("LEDGER_USE_MEMORY"), "Use in-memory storage instead of PostgreSQL")
	programID := flag.String("program-id", envOr("SCORING_PROGRAM_ID", scoring.DefaultProgramID.String()), "Scoring program address")
	maxAirdrop := flag.Uint64("max-airdrop", 10_000_000_000, "Maximum lamports per requestAirdrop (0 = unlimited)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ledger] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}
	program, err := solana.PublicKeyFromBase58(*programID)
	if err != nil {
		logger.Fatalf("invalid --program-id %q: %v", *programID, err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, cleanup, err := createStores(ctx, logger, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	l := ledger.New(st.accounts,
		ledger.WithJournal(st.journal),
		ledger.WithProgressStore(st.progress),
		ledger.WithProgramID(program),
		ledger.WithLogger(log.New(os.Stdout, "[host] ", log.LstdFlags|log.Lshortfile)),
	)
	if err := l.Restore(ctx); err != nil {
		logger.Fatalf("Failed to restore ledger: %v", err)
	}
	logger.Printf("Scoring program %s, slot %d", program, l.Slot())

	rpc := rpcserver.New(l,
		rpcserver.WithLogger(log.New(os.Stdout, "[rpc] ", log.LstdFlags|log.Lshortfile)),
		rpcserver.WithMaxAirdrop(*maxAirdrop),
	)
	rpcServer := &http.Server{
		Addr:              *listen,
		Handler:           rpc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metricsServer := &http.Server{
		Addr:              *metricsAddr,
		Handler:           metricsMux(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go serve(logger, "JSON-RPC", rpcServer, errCh)
	go serve(logger, "metrics", metricsServer, errCh)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		logger.Printf("Server error: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	go func() {
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	if err := rpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("JSON-RPC shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("metrics shutdown: %v", err)
	}

	logger.Println("Shutdown complete")
}

func serve(logger *log.Logger, name string, srv *http.Server, errCh chan<- error) {
	logger.Printf("Starting %s server on %s", name, srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s server: %w", name, err)
	}
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	return mux
}

// createStores creates the account store, journal and progress store.
// Without a ClickHouse DSN the journal stays in memory.
func createStores(ctx context.Context, logger *log.Logger, postgresDSN, clickhouseDSN string, useMemory bool) (*stores, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage")
		return &stores{
			accounts: memory.NewAccountStore(),
			journal:  memory.NewExecutionLogStore(),
			progress: memory.NewLedgerProgressStore(),
		}, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	st := &stores{
		accounts: pgstore.NewAccountStore(pool),
		progress: pgstore.NewLedgerProgressStore(pool),
	}

	if clickhouseDSN == "" {
		logger.Println("No --clickhouse-dsn, execution journal kept in memory")
		st.journal = memory.NewExecutionLogStore()
		return st, pool.Close, nil
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	st.journal = chstore.NewExecutionLogStore(chConn)

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}
	return st, cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
