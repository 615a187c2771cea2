package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/exprgen/internal/ir"
)

// ExpressionRecord is a stored tree.
type ExpressionRecord struct {
	Hash      string
	Name      string
	IRVersion string
	NodeCount int
	Canonical string
	Seq       int64
	Root      ir.Node
}

// PutExpression stores root under its tree hash and returns the hash.
// Uses ON CONFLICT(hash) DO NOTHING for idempotency: storing a structurally
// identical tree again keeps the first record (and its name) and reports
// inserted=false.
//
// Trees holding constants without a portable encoding cannot be stored; the
// error wraps ir.ErrUnencodable.
func (s *Store) PutExpression(ctx context.Context, name string, root ir.Node) (hash string, inserted bool, err error) {
	hash, err = ir.TreeHash(root)
	if err != nil {
		return "", false, fmt.Errorf("put expression %q: %w", name, err)
	}
	canonical, err := ir.MarshalCanonical(root)
	if err != nil {
		return "", false, fmt.Errorf("put expression %q: %w", name, err)
	}
	blob, err := ir.MarshalBinary(root)
	if err != nil {
		return "", false, fmt.Errorf("put expression %q: %w", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", false, fmt.Errorf("put expression: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	result, err := tx.ExecContext(ctx, `
		INSERT INTO expressions
		(hash, name, ir_version, node_count, tree, canonical, seq)
		VALUES (?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM expressions))
		ON CONFLICT(hash) DO NOTHING
	`,
		hash,
		name,
		ir.IRVersion,
		ir.Count(root),
		blob,
		string(canonical),
	)
	if err != nil {
		return "", false, fmt.Errorf("put expression: insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return "", false, fmt.Errorf("put expression: rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", false, fmt.Errorf("put expression: commit: %w", err)
	}
	return hash, rows > 0, nil
}

// GetExpression returns the tree stored under hash.
// Returns an error wrapping ErrNotFound if no such tree exists.
func (s *Store) GetExpression(ctx context.Context, hash string) (ExpressionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, name, ir_version, node_count, tree, canonical, seq
		FROM expressions
		WHERE hash = ?
	`, hash)
	rec, err := scanExpression(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ExpressionRecord{}, fmt.Errorf("expression %s: %w", hash, ErrNotFound)
	}
	return rec, err
}

// FindExpression returns the first tree stored under name.
func (s *Store) FindExpression(ctx context.Context, name string) (ExpressionRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT hash, name, ir_version, node_count, tree, canonical, seq
		FROM expressions
		WHERE name = ?
		ORDER BY seq ASC
		LIMIT 1
	`, name)
	rec, err := scanExpression(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ExpressionRecord{}, fmt.Errorf("expression %q: %w", name, ErrNotFound)
	}
	return rec, err
}

// ListExpressions returns every stored tree in insertion order:
// ORDER BY seq ASC, hash COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if the catalog is empty.
func (s *Store) ListExpressions(ctx context.Context) ([]ExpressionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, name, ir_version, node_count, tree, canonical, seq
		FROM expressions
		ORDER BY seq ASC, hash COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query expressions: %w", err)
	}
	defer rows.Close()

	records := []ExpressionRecord{}
	for rows.Next() {
		rec, err := scanExpression(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expressions: %w", err)
	}
	return records, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExpression(sc scanner) (ExpressionRecord, error) {
	var rec ExpressionRecord
	var blob []byte
	if err := sc.Scan(&rec.Hash, &rec.Name, &rec.IRVersion, &rec.NodeCount, &blob, &rec.Canonical, &rec.Seq); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan expression: %w", err)
	}
	root, err := ir.UnmarshalBinary(blob)
	if err != nil {
		return rec, fmt.Errorf("decode expression %s: %w", rec.Hash, err)
	}
	rec.Root = root
	return rec, nil
}
