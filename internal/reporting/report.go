package reporting

import "time"

// Report is the execution history of one account.
type Report struct {
	// Metadata
	Account     string
	GeneratedAt time.Time

	Summary Summary

	// Outcomes counts records per outcome, sorted by count desc then outcome.
	Outcomes []OutcomeRow

	// Records ordered by (slot, signature, instruction index)
	Records []*RecordRow
}

// Summary describes the journaled history.
type Summary struct {
	TotalInstructions int
	Succeeded         int
	Failed            int
	Transactions      int // distinct signatures
	FirstSlot         uint64
	LastSlot          uint64
	FirstExecutedAt   int64 // Unix ms
	LastExecutedAt    int64 // Unix ms
}

// OutcomeRow is one line of the outcome breakdown.
type OutcomeRow struct {
	Outcome string
	Count   int
}

// RecordRow is one journaled instruction.
type RecordRow struct {
	Slot             uint64
	Signature        string
	InstructionIndex int
	Instruction      string
	ProgramID        string
	Outcome          string
	Error            string
	ExecutedAt       int64 // Unix ms
}
