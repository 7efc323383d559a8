package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-scoring/internal/domain"
	"solana-scoring/internal/observability"
	"solana-scoring/internal/storage"
)

// ExecutionLogStore implements storage.ExecutionLogStore using ClickHouse.
type ExecutionLogStore struct {
	conn *Conn
}

// NewExecutionLogStore creates a new ExecutionLogStore.
func NewExecutionLogStore(conn *Conn) *ExecutionLogStore {
	return &ExecutionLogStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ExecutionLogStore = (*ExecutionLogStore)(nil)

const executionLogColumns = `signature, instruction_index, slot, program_id, instruction, account, outcome, error, executed_at`

// Insert adds a record. Returns ErrDuplicateKey if (signature, instruction_index) exists.
func (s *ExecutionLogStore) Insert(ctx context.Context, r *domain.ExecutionRecord) error {
	if r == nil || r.Signature == "" || r.InstructionIndex < 0 {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, r.Signature, r.InstructionIndex)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO execution_log (`+executionLogColumns+`)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		r.Signature, uint32(r.InstructionIndex), r.Slot, r.ProgramID, r.Instruction,
		r.Account, r.Outcome, r.Error, uint64(r.ExecutedAt),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_execution", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySignature retrieves records of one transaction, ordered by instruction_index ASC.
func (s *ExecutionLogStore) GetBySignature(ctx context.Context, signature string) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT ` + executionLogColumns + `
		FROM execution_log
		WHERE signature = ?
		ORDER BY instruction_index ASC
	`

	rows, err := s.conn.Query(ctx, query, signature)
	if err != nil {
		return nil, fmt.Errorf("query by signature: %w", err)
	}
	defer rows.Close()

	return scanExecutionRecords(rows)
}

// GetByAccount retrieves records touching an account, ordered by (slot, signature, instruction_index) ASC.
func (s *ExecutionLogStore) GetByAccount(ctx context.Context, account string) ([]*domain.ExecutionRecord, error) {
	query := `
		SELECT ` + executionLogColumns + `
		FROM execution_log
		WHERE account = ?
		ORDER BY slot ASC, signature ASC, instruction_index ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, account)
	observability.RecordDBQuery("clickhouse", "get_by_account", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanExecutionRecords(rows)
}

// exists checks if a record with the given key exists.
func (s *ExecutionLogStore) exists(ctx context.Context, signature string, index int) (bool, error) {
	query := `
		SELECT count() FROM execution_log
		WHERE signature = ? AND instruction_index = ?
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, signature, uint32(index)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func scanExecutionRecords(rows chRows) ([]*domain.ExecutionRecord, error) {
	var result []*domain.ExecutionRecord
	for rows.Next() {
		var (
			r          domain.ExecutionRecord
			index      uint32
			executedAt uint64
		)
		err := rows.Scan(
			&r.Signature, &index, &r.Slot, &r.ProgramID, &r.Instruction,
			&r.Account, &r.Outcome, &r.Error, &executedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.InstructionIndex = int(index)
		r.ExecutedAt = int64(executedAt)
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return result, nil
}
