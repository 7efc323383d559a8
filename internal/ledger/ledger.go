// Package ledger implements a local execution host: it owns the keyed account
// store, runs system program and scoring program instructions against it and
// commits every transaction atomically.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/idhash"
	"solana-scoring/internal/observability"
	"solana-scoring/internal/rent"
	"solana-scoring/internal/scoring"
	"solana-scoring/internal/storage"
	"solana-scoring/internal/storage/memory"
)

// MaxRecentBlockhashes is how many trailing blockhashes a transaction may reference.
const MaxRecentBlockhashes = 150

// Ledger executes transactions against an AccountStore.
type Ledger struct {
	store     storage.AccountStore
	journal   storage.ExecutionLogStore
	progress  storage.LedgerProgressStore
	programID solana.PublicKey
	rent      rent.Rent
	metrics   *observability.Metrics
	logger    *log.Logger
	now       func() time.Time

	programs map[solana.PublicKey]program
	watchers *watchers

	mu          sync.Mutex
	slot        uint64
	blockhashes []solana.Hash             // oldest first, newest last
	inflight    map[solana.Signature]bool // signatures reserved by running Submits
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithJournal sets the execution journal. Defaults to an in-memory journal.
func WithJournal(j storage.ExecutionLogStore) Option {
	return func(l *Ledger) {
		l.journal = j
	}
}

// WithProgressStore sets the slot cursor and replay store. Defaults to in-memory.
func WithProgressStore(p storage.LedgerProgressStore) Option {
	return func(l *Ledger) {
		l.progress = p
	}
}

// WithProgramID sets the scoring program address. Defaults to scoring.DefaultProgramID.
func WithProgramID(id solana.PublicKey) Option {
	return func(l *Ledger) {
		l.programID = id
	}
}

// WithRent sets the rent parameters. Defaults to rent.Default().
func WithRent(r rent.Rent) Option {
	return func(l *Ledger) {
		l.rent = r
	}
}

// WithMetrics sets the metrics sink. Defaults to observability.DefaultMetrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(l *Ledger) {
		l.metrics = m
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithClock overrides the time source used for journal timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New creates a Ledger over store.
func New(store storage.AccountStore, opts ...Option) *Ledger {
	l := &Ledger{
		store:     store,
		programID: scoring.DefaultProgramID,
		rent:      rent.Default(),
		metrics:   observability.DefaultMetrics,
		now:       time.Now,
		inflight:  make(map[solana.Signature]bool),
		watchers:  newWatchers(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.journal == nil {
		l.journal = memory.NewExecutionLogStore()
	}
	if l.progress == nil {
		l.progress = memory.NewLedgerProgressStore()
	}

	l.programs = map[solana.PublicKey]program{
		solana.SystemProgramID: systemProgram{},
		l.programID:            &scoringProgram{id: l.programID, processor: scoring.NewProcessor(l.rent, l.logger)},
	}
	l.blockhashes = []solana.Hash{idhash.GenesisBlockhash(l.programID.String())}
	return l
}

// Restore resumes the slot sequence from the progress store.
// A ledger without saved progress starts at slot 0.
func (l *Ledger) Restore(ctx context.Context) error {
	p, err := l.progress.GetLastCommitted(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ledger progress: %w", err)
	}

	hash, err := solana.HashFromBase58(p.Blockhash)
	if err != nil {
		return fmt.Errorf("decode stored blockhash: %w", err)
	}

	l.mu.Lock()
	l.slot = p.Slot
	l.blockhashes = []solana.Hash{hash}
	l.mu.Unlock()

	l.logf("restored ledger at slot %d (blockhash %s)", p.Slot, hash)
	return nil
}

// ProgramID returns the scoring program address.
func (l *Ledger) ProgramID() solana.PublicKey {
	return l.programID
}

// Slot returns the current slot.
func (l *Ledger) Slot() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slot
}

// LatestBlockhash returns the newest blockhash and the last slot at which
// transactions referencing it are accepted.
func (l *Ledger) LatestBlockhash() (solana.Hash, uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blockhashes[len(l.blockhashes)-1], l.slot + MaxRecentBlockhashes
}

// IsBlockhashValid reports whether hash is among the recent blockhashes.
func (l *Ledger) IsBlockhashValid(hash solana.Hash) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isRecentLocked(hash)
}

func (l *Ledger) isRecentLocked(hash solana.Hash) bool {
	for _, h := range l.blockhashes {
		if h == hash {
			return true
		}
	}
	return false
}

// MinimumBalanceForRentExemption returns the rent-exempt minimum for dataLen bytes.
func (l *Ledger) MinimumBalanceForRentExemption(dataLen uint64) uint64 {
	return l.rent.MinimumBalance(dataLen)
}

// GetAccount returns the account at address. Returns storage.ErrNotFound if it has never been written.
func (l *Ledger) GetAccount(ctx context.Context, address solana.PublicKey) (*domain.Account, error) {
	return l.store.Get(ctx, address)
}

// ExecutionLog returns the journal records of a transaction.
func (l *Ledger) ExecutionLog(ctx context.Context, signature solana.Signature) ([]*domain.ExecutionRecord, error) {
	return l.journal.GetBySignature(ctx, signature.String())
}

// Airdrop credits lamports to address, creating a system-owned account if needed.
func (l *Ledger) Airdrop(ctx context.Context, address solana.PublicKey, lamports uint64) (solana.Signature, error) {
	if lamports == 0 {
		return solana.Signature{}, ErrInvalidAirdropAmount
	}

	slot, blockhash := l.advanceSlot()
	sig := idhash.ComputeAirdropSignature(address, lamports, slot)

	var credited *domain.Account
	err := l.store.Update(ctx, func(tx storage.AccountTx) error {
		acc, err := loadAccount(ctx, tx, address)
		if err != nil {
			return err
		}
		if acc.Lamports+lamports < acc.Lamports {
			return ErrArithmeticOverflow
		}
		acc.Lamports += lamports
		credited = acc.Clone()
		return tx.Put(ctx, acc)
	})

	rec := &domain.ExecutionRecord{
		Signature:   sig.String(),
		Slot:        slot,
		ProgramID:   solana.SystemProgramID.String(),
		Instruction: "Airdrop",
		Account:     address.String(),
		Outcome:     domain.OutcomeOK,
		ExecutedAt:  l.now().UnixMilli(),
	}
	if err != nil {
		rec.Outcome = ErrorName(err)
		rec.Error = err.Error()
	}
	l.writeJournal(ctx, []*domain.ExecutionRecord{rec})
	l.commitProgress(ctx, sig, slot, blockhash, err == nil)

	if err != nil {
		return solana.Signature{}, fmt.Errorf("airdrop: %w", err)
	}
	l.metrics.AirdropLamports.Add(float64(lamports))
	l.watchers.publish(slot, []*domain.Account{credited})
	l.logf("airdropped %d lamports to %s at slot %d", lamports, address, slot)
	return sig, nil
}

// Submit executes tx atomically: either every instruction succeeds and all
// account changes are committed, or nothing is persisted.
// Failed instructions are reported as *InstructionError.
func (l *Ledger) Submit(ctx context.Context, tx *Transaction) (solana.Signature, error) {
	if err := l.validate(tx); err != nil {
		return solana.Signature{}, err
	}

	seen, err := l.progress.IsSignatureSeen(ctx, tx.Signature.String())
	if err != nil {
		return solana.Signature{}, fmt.Errorf("check signature: %w", err)
	}
	if seen {
		return solana.Signature{}, ErrAlreadyProcessed
	}

	slot, blockhash, err := l.reserve(tx)
	if err != nil {
		return solana.Signature{}, err
	}
	defer l.release(tx.Signature)

	var (
		records []*domain.ExecutionRecord
		changed []*domain.Account
	)
	err = l.store.Update(ctx, func(atx storage.AccountTx) error {
		var execErr error
		records, changed, execErr = l.execute(ctx, atx, tx, slot)
		return execErr
	})

	l.writeJournal(ctx, records)
	l.commitProgress(ctx, tx.Signature, slot, blockhash, err == nil)

	status := "ok"
	if err != nil {
		status = "failed"
	}
	l.metrics.RecordTransaction(status, slot, l.now().Unix())

	if err != nil {
		l.logf("transaction %s failed at slot %d: %v", tx.Signature, slot, err)
		return solana.Signature{}, err
	}
	l.watchers.publish(slot, changed)
	return tx.Signature, nil
}

func (l *Ledger) validate(tx *Transaction) error {
	if tx == nil || len(tx.Instructions) == 0 {
		return ErrNoInstructions
	}
	if tx.FeePayer.IsZero() {
		return ErrMissingFeePayer
	}
	if !isOnCurve(tx.FeePayer) {
		return fmt.Errorf("%w: fee payer %s cannot sign", ErrInvalidTransaction, tx.FeePayer)
	}
	if tx.Signature.IsZero() {
		return fmt.Errorf("%w: missing signature", ErrInvalidTransaction)
	}
	return nil
}

// reserve checks the blockhash, claims the signature and assigns the
// transaction its slot and that slot's blockhash.
func (l *Ledger) reserve(tx *Transaction) (uint64, solana.Hash, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isRecentLocked(tx.RecentBlockhash) {
		return 0, solana.Hash{}, ErrBlockhashNotFound
	}
	if l.inflight[tx.Signature] {
		return 0, solana.Hash{}, ErrAlreadyProcessed
	}
	l.inflight[tx.Signature] = true
	slot, hash := l.advanceSlotLocked()
	return slot, hash, nil
}

func (l *Ledger) release(sig solana.Signature) {
	l.mu.Lock()
	delete(l.inflight, sig)
	l.mu.Unlock()
}

func (l *Ledger) advanceSlot() (uint64, solana.Hash) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advanceSlotLocked()
}

func (l *Ledger) advanceSlotLocked() (uint64, solana.Hash) {
	l.slot++
	next := idhash.ComputeBlockhash(l.blockhashes[len(l.blockhashes)-1], l.slot)
	l.blockhashes = append(l.blockhashes, next)
	if len(l.blockhashes) > MaxRecentBlockhashes {
		l.blockhashes = l.blockhashes[len(l.blockhashes)-MaxRecentBlockhashes:]
	}
	return l.slot, next
}

// commitProgress saves the slot cursor and, on success, marks sig processed.
// Submits finish out of slot order; the progress store keeps the highest slot.
func (l *Ledger) commitProgress(ctx context.Context, sig solana.Signature, slot uint64, blockhash solana.Hash, ok bool) {
	if ok {
		if err := l.progress.MarkSignatureSeen(ctx, sig.String(), slot); err != nil {
			l.logf("failed to mark signature %s: %v", sig, err)
		}
	}
	err := l.progress.SetLastCommitted(ctx, &storage.LedgerProgress{
		Slot:      slot,
		Blockhash: blockhash.String(),
		Signature: sig.String(),
	})
	if err != nil {
		l.logf("failed to save ledger progress at slot %d: %v", slot, err)
	}
}

func (l *Ledger) writeJournal(ctx context.Context, records []*domain.ExecutionRecord) {
	for _, r := range records {
		if err := l.journal.Insert(ctx, r); err != nil {
			l.metrics.JournalErrors.Inc()
			l.logf("failed to journal %s#%d: %v", r.Signature, r.InstructionIndex, err)
		}
	}
}

func (l *Ledger) logf(format string, args ...interface{}) {
	if l.logger != nil {
		l.logger.Printf(format, args...)
	}
}

// loadAccount reads address inside tx; a missing account reads as an empty
// system-owned account.
func loadAccount(ctx context.Context, tx storage.AccountTx, address solana.PublicKey) (*domain.Account, error) {
	acc, err := tx.Get(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		return &domain.Account{Address: address, Owner: solana.SystemProgramID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load account %s: %w", address, err)
	}
	return acc, nil
}
