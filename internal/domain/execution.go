package domain

// OutcomeOK marks a successfully executed instruction.
const OutcomeOK = "ok"

// ExecutionRecord is one journaled instruction execution.
// Corresponds to execution_log table in ClickHouse.
type ExecutionRecord struct {
	Signature        string // transaction signature (base58)
	InstructionIndex int    // position within the transaction
	Slot             uint64
	ProgramID        string
	Instruction      string // instruction name, e.g. InitializeScoreMint
	Account          string // primary account touched
	Outcome          string // OutcomeOK or error name
	Error            string // error message (empty on success)
	ExecutedAt       int64  // ms
}

// Succeeded reports whether the instruction executed without error.
func (r *ExecutionRecord) Succeeded() bool {
	return r.Outcome == OutcomeOK
}
