package reporting

import (
	"encoding/csv"
	"strconv"
	"strings"
)

// RenderCSV renders report records as CSV string.
func RenderCSV(r *Report) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	// Header
	if err := w.Write([]string{
		"slot", "signature", "instruction_index", "instruction",
		"program_id", "outcome", "error", "executed_at",
	}); err != nil {
		return "", err
	}

	// Rows
	for _, row := range r.Records {
		if err := w.Write([]string{
			strconv.FormatUint(row.Slot, 10),
			row.Signature,
			strconv.Itoa(row.InstructionIndex),
			row.Instruction,
			row.ProgramID,
			row.Outcome,
			row.Error,
			strconv.FormatInt(row.ExecutedAt, 10),
		}); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
