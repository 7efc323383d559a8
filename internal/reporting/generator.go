package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/storage"
)

// ErrNoHistory is returned when the journal has no records for an account.
var ErrNoHistory = errors.New("no execution history")

// Generator produces account reports from the execution journal.
type Generator struct {
	journal storage.ExecutionLogStore
	now     func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(journal storage.ExecutionLogStore) *Generator {
	return &Generator{
		journal: journal,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds the report for account.
func (g *Generator) Generate(ctx context.Context, account string) (*Report, error) {
	records, err := g.journal.GetByAccount(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("load journal for %s: %w", account, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w for %s", ErrNoHistory, account)
	}

	return &Report{
		Account:     account,
		GeneratedAt: g.now(),
		Summary:     summarize(records),
		Outcomes:    outcomeBreakdown(records),
		Records:     toRows(records),
	}, nil
}

func summarize(records []*domain.ExecutionRecord) Summary {
	s := Summary{
		TotalInstructions: len(records),
		FirstSlot:         records[0].Slot,
		LastSlot:          records[0].Slot,
		FirstExecutedAt:   records[0].ExecutedAt,
		LastExecutedAt:    records[0].ExecutedAt,
	}

	signatures := make(map[string]struct{})
	for _, r := range records {
		signatures[r.Signature] = struct{}{}
		if r.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
		if r.Slot < s.FirstSlot {
			s.FirstSlot = r.Slot
		}
		if r.Slot > s.LastSlot {
			s.LastSlot = r.Slot
		}
		if r.ExecutedAt < s.FirstExecutedAt {
			s.FirstExecutedAt = r.ExecutedAt
		}
		if r.ExecutedAt > s.LastExecutedAt {
			s.LastExecutedAt = r.ExecutedAt
		}
	}
	s.Transactions = len(signatures)
	return s
}

func outcomeBreakdown(records []*domain.ExecutionRecord) []OutcomeRow {
	counts := make(map[string]int)
	for _, r := range records {
		counts[r.Outcome]++
	}

	rows := make([]OutcomeRow, 0, len(counts))
	for outcome, n := range counts {
		rows = append(rows, OutcomeRow{Outcome: outcome, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Outcome < rows[j].Outcome
	})
	return rows
}

func toRows(records []*domain.ExecutionRecord) []*RecordRow {
	rows := make([]*RecordRow, 0, len(records))
	for _, r := range records {
		rows = append(rows, &RecordRow{
			Slot:             r.Slot,
			Signature:        r.Signature,
			InstructionIndex: r.InstructionIndex,
			Instruction:      r.Instruction,
			ProgramID:        r.ProgramID,
			Outcome:          r.Outcome,
			Error:            r.Error,
			ExecutedAt:       r.ExecutedAt,
		})
	}

	// Deterministic order regardless of store
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Slot != rows[j].Slot {
			return rows[i].Slot < rows[j].Slot
		}
		if rows[i].Signature != rows[j].Signature {
			return rows[i].Signature < rows[j].Signature
		}
		return rows[i].InstructionIndex < rows[j].InstructionIndex
	})
	return rows
}
