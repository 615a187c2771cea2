package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
)

// ErrorCodeRuntime marks a failure that is not part of the lowering
// taxonomy (e.g. a backend crash surfaced as a plain error).
const ErrorCodeRuntime = "ERROR"

// LoweringRecord is the outcome of one lowering attempt.
type LoweringRecord struct {
	ID             string
	ExpressionHash string
	Backend        string
	BackendVersion string
	ErrorCode      string
	ErrorMessage   string
	Seq            int64
}

// OK reports whether the lowering succeeded.
func (r LoweringRecord) OK() bool {
	return r.ErrorCode == ""
}

// RecordLowering appends the outcome of lowering the tree stored under hash
// with backend. lowerErr is nil on success.
//
// Note: The expression referenced by hash must exist (foreign key constraint).
func (s *Store) RecordLowering(ctx context.Context, hash, backend string, lowerErr error) (LoweringRecord, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return LoweringRecord{}, fmt.Errorf("record lowering: generate id: %w", err)
	}

	rec := LoweringRecord{
		ID:             id.String(),
		ExpressionHash: hash,
		Backend:        backend,
		BackendVersion: ir.BackendVersion,
	}
	if lowerErr != nil {
		rec.ErrorCode = string(lower.CodeOf(lowerErr))
		if rec.ErrorCode == "" {
			rec.ErrorCode = ErrorCodeRuntime
		}
		rec.ErrorMessage = lowerErr.Error()
		var le *lower.Error
		if errors.As(lowerErr, &le) {
			rec.ErrorMessage = le.Message
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LoweringRecord{}, fmt.Errorf("record lowering: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM lowerings`).Scan(&rec.Seq); err != nil {
		return LoweringRecord{}, fmt.Errorf("record lowering: next seq: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO lowerings
		(id, expression_hash, backend, backend_version, error_code, error_message, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.ExpressionHash,
		rec.Backend,
		rec.BackendVersion,
		rec.ErrorCode,
		rec.ErrorMessage,
		rec.Seq,
	)
	if err != nil {
		return LoweringRecord{}, fmt.Errorf("record lowering: insert: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return LoweringRecord{}, fmt.Errorf("record lowering: commit: %w", err)
	}
	return rec, nil
}

// Lowerings returns the lowering history of the tree stored under hash,
// ordered by seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) Lowerings(ctx context.Context, hash string) ([]LoweringRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, expression_hash, backend, backend_version, error_code, error_message, seq
		FROM lowerings
		WHERE expression_hash = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query lowerings: %w", err)
	}
	defer rows.Close()

	records := []LoweringRecord{}
	for rows.Next() {
		var rec LoweringRecord
		if err := rows.Scan(&rec.ID, &rec.ExpressionHash, &rec.Backend, &rec.BackendVersion,
			&rec.ErrorCode, &rec.ErrorMessage, &rec.Seq); err != nil {
			return nil, fmt.Errorf("scan lowering: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lowerings: %w", err)
	}
	return records, nil
}
