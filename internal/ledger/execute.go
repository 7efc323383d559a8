package ledger

import (
	"bytes"
	"context"
	"log"
	"time"

	"github.com/gagliardetto/solana-go"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/scoring"
	"solana-scoring/internal/storage"
)

// program is a builtin the host can dispatch instructions to.
type program interface {
	name(data []byte) string
	primaryAccount(ic *invokeContext) *accountRef
	execute(ic *invokeContext) error
}

// accountRef is one account meta of an instruction bound to its loaded state.
// Metas naming the same address share the account pointer.
type accountRef struct {
	meta    *solana.AccountMeta
	account *domain.Account
}

// invokeContext is the view of a transaction given to a program for one instruction.
type invokeContext struct {
	programID solana.PublicKey
	accounts  []*accountRef
	data      []byte
	logger    *log.Logger
}

func (ic *invokeContext) logf(format string, args ...interface{}) {
	if ic.logger != nil {
		ic.logger.Printf(format, args...)
	}
}

// execute runs every instruction of tx inside atx and stages the resulting
// account writes. It returns the journal records of the instructions it ran
// and the accounts it changed.
func (l *Ledger) execute(ctx context.Context, atx storage.AccountTx, tx *Transaction, slot uint64) ([]*domain.ExecutionRecord, []*domain.Account, error) {
	loaded := make(map[solana.PublicKey]*domain.Account)
	original := make(map[solana.PublicKey]*domain.Account)

	load := func(address solana.PublicKey) (*domain.Account, error) {
		if acc, ok := loaded[address]; ok {
			return acc, nil
		}
		acc, err := loadAccount(ctx, atx, address)
		if err != nil {
			return nil, err
		}
		loaded[address] = acc
		original[address] = acc.Clone()
		return acc, nil
	}

	records := make([]*domain.ExecutionRecord, 0, len(tx.Instructions))
	for i, inst := range tx.Instructions {
		rec := &domain.ExecutionRecord{
			Signature:        tx.Signature.String(),
			InstructionIndex: i,
			Slot:             slot,
			ProgramID:        inst.ProgramID.String(),
			Outcome:          domain.OutcomeOK,
		}
		records = append(records, rec)

		start := time.Now()
		err := l.executeInstruction(inst, load, rec)
		rec.ExecutedAt = l.now().UnixMilli()
		l.metrics.RecordInstruction(programLabel(inst.ProgramID, l.programID), outcomeLabel(err), time.Since(start).Seconds())

		if err != nil {
			rec.Outcome = ErrorName(err)
			rec.Error = err.Error()
			return records, nil, &InstructionError{Index: i, Err: err}
		}
	}

	var changed []*domain.Account
	for address, acc := range loaded {
		if accountEqual(original[address], acc) {
			continue
		}
		if err := atx.Put(ctx, acc); err != nil {
			return records, nil, err
		}
		changed = append(changed, acc.Clone())
	}
	return records, changed, nil
}

func (l *Ledger) executeInstruction(inst Instruction, load func(solana.PublicKey) (*domain.Account, error), rec *domain.ExecutionRecord) error {
	prog, ok := l.programs[inst.ProgramID]
	if !ok {
		rec.Instruction = "Unknown"
		return ErrUnknownProgram
	}
	rec.Instruction = prog.name(inst.Data)

	ic := &invokeContext{
		programID: inst.ProgramID,
		data:      inst.Data,
		logger:    l.logger,
	}
	writable := make(map[solana.PublicKey]bool)
	for _, meta := range inst.Accounts {
		acc, err := load(meta.PublicKey)
		if err != nil {
			return err
		}
		ic.accounts = append(ic.accounts, &accountRef{meta: meta, account: acc})
		writable[meta.PublicKey] = writable[meta.PublicKey] || meta.IsWritable
	}
	if primary := prog.primaryAccount(ic); primary != nil {
		rec.Account = primary.meta.PublicKey.String()
	}

	before := make(map[solana.PublicKey]*domain.Account, len(ic.accounts))
	for _, ref := range ic.accounts {
		if _, ok := before[ref.meta.PublicKey]; !ok {
			before[ref.meta.PublicKey] = ref.account.Clone()
		}
	}

	if err := prog.execute(ic); err != nil {
		return err
	}

	return verifyChanges(inst.ProgramID, before, ic.accounts, writable)
}

// verifyChanges enforces the ownership and write-authorization rules on the
// accounts an instruction touched: only writable accounts may change, only
// the owning program may modify data or spend lamports, and total lamports
// are conserved.
func verifyChanges(programID solana.PublicKey, before map[solana.PublicKey]*domain.Account, refs []*accountRef, writable map[solana.PublicKey]bool) error {
	var sumBefore, sumAfter uint64
	checked := make(map[solana.PublicKey]bool, len(before))

	for _, ref := range refs {
		address := ref.meta.PublicKey
		if checked[address] {
			continue
		}
		checked[address] = true

		pre, post := before[address], ref.account
		sumBefore += pre.Lamports
		sumAfter += post.Lamports
		ownedByProgram := pre.Owner.Equals(programID)

		if !post.Owner.Equals(pre.Owner) {
			if !writable[address] || !ownedByProgram {
				return ErrModifiedProgramID
			}
		}
		if post.Lamports != pre.Lamports {
			if !writable[address] {
				return ErrReadonlyLamportChange
			}
			if post.Lamports < pre.Lamports && !ownedByProgram {
				return ErrExternalAccountLamportSpend
			}
		}
		if !bytes.Equal(post.Data, pre.Data) || len(post.Data) != len(pre.Data) {
			if !writable[address] {
				return ErrReadonlyDataModified
			}
			if !ownedByProgram {
				return ErrExternalAccountDataModified
			}
		}
		if post.Executable != pre.Executable {
			return ErrModifiedProgramID
		}
	}

	if sumBefore != sumAfter {
		return ErrUnbalancedInstruction
	}
	return nil
}

func accountEqual(a, b *domain.Account) bool {
	return a.Lamports == b.Lamports &&
		a.Owner.Equals(b.Owner) &&
		a.Executable == b.Executable &&
		a.RentEpoch == b.RentEpoch &&
		len(a.Data) == len(b.Data) &&
		bytes.Equal(a.Data, b.Data)
}

func programLabel(id, scoringID solana.PublicKey) string {
	switch {
	case id.Equals(solana.SystemProgramID):
		return "system"
	case id.Equals(scoringID):
		return "scoring"
	default:
		return "unknown"
	}
}

func outcomeLabel(err error) string {
	if err == nil {
		return domain.OutcomeOK
	}
	return ErrorName(err)
}

// scoringProgram adapts scoring.Processor to the host.
type scoringProgram struct {
	id        solana.PublicKey
	processor *scoring.Processor
}

func (p *scoringProgram) name(data []byte) string {
	if len(data) > 0 && data[0] == scoring.InstructionInitializeScoreMint {
		return "InitializeScoreMint"
	}
	return "Unknown"
}

func (p *scoringProgram) primaryAccount(ic *invokeContext) *accountRef {
	if len(ic.accounts) > 0 {
		return ic.accounts[0]
	}
	return nil
}

func (p *scoringProgram) execute(ic *invokeContext) error {
	infos := make([]*scoring.AccountInfo, len(ic.accounts))
	for i, ref := range ic.accounts {
		infos[i] = &scoring.AccountInfo{
			Key:        ref.meta.PublicKey,
			Owner:      ref.account.Owner,
			Lamports:   ref.account.Lamports,
			Data:       ref.account.Data,
			IsSigner:   ref.meta.IsSigner,
			IsWritable: ref.meta.IsWritable,
		}
	}
	return p.processor.Process(p.id, infos, ic.data)
}
