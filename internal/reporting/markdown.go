package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Execution History\n\n")
	sb.WriteString(fmt.Sprintf("Account: `%s`\n\n", r.Account))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Transactions | %d |\n", r.Summary.Transactions))
	sb.WriteString(fmt.Sprintf("| Instructions | %d |\n", r.Summary.TotalInstructions))
	sb.WriteString(fmt.Sprintf("| Succeeded | %d |\n", r.Summary.Succeeded))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.Summary.Failed))
	sb.WriteString(fmt.Sprintf("| Slot Range | %d - %d |\n", r.Summary.FirstSlot, r.Summary.LastSlot))
	sb.WriteString(fmt.Sprintf("| First Executed (ms) | %d |\n", r.Summary.FirstExecutedAt))
	sb.WriteString(fmt.Sprintf("| Last Executed (ms) | %d |\n", r.Summary.LastExecutedAt))
	sb.WriteString("\n")

	// Outcomes
	sb.WriteString("## Outcomes\n\n")
	sb.WriteString("| Outcome | Count |\n")
	sb.WriteString("|---------|-------|\n")
	for _, o := range r.Outcomes {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", o.Outcome, o.Count))
	}
	sb.WriteString("\n")

	// Instructions
	sb.WriteString("## Instructions\n\n")
	sb.WriteString("| Slot | Signature | # | Instruction | Outcome | Error |\n")
	sb.WriteString("|------|-----------|---|-------------|---------|-------|\n")
	for _, row := range r.Records {
		sb.WriteString(fmt.Sprintf("| %d | %s | %d | %s | %s | %s |\n",
			row.Slot, shortSignature(row.Signature), row.InstructionIndex,
			row.Instruction, row.Outcome, escapeCell(row.Error)))
	}
	sb.WriteString("\n")

	return sb.String()
}

func shortSignature(sig string) string {
	if len(sig) <= 16 {
		return sig
	}
	return sig[:8] + "..." + sig[len(sig)-8:]
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
