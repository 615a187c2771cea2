package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// pragmas are applied to every connection, in order.
var pragmas = []struct{ name, value string }{
	{"journal_mode", "WAL"},
	{"synchronous", "NORMAL"},
	{"busy_timeout", "5000"},
	{"foreign_keys", "ON"},
}

// migrations run after schema.sql. Entry i moves user_version from i to
// i+1, so a new file applies all of them.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_lowerings_expression_seq ON lowerings(expression_hash, seq)`,
	`CREATE INDEX IF NOT EXISTS idx_lowerings_error_code ON lowerings(error_code) WHERE error_code != ''`,
}

// schemaVersion is the user_version of an up-to-date catalog.
var schemaVersion = len(migrations)

// Store is the expression catalog. One connection is kept open since
// SQLite admits a single writer.
type Store struct {
	db *sql.DB
}

// Open creates or opens the catalog at path, applying pragmas and
// migrations. Opening an up-to-date catalog changes nothing.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initialize(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection. Closing twice is harmless.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func initialize(db *sql.DB) error {
	if err := db.Ping(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	for _, p := range pragmas {
		if _, err := db.Exec(fmt.Sprintf("PRAGMA %s = %s", p.name, p.value)); err != nil {
			return fmt.Errorf("pragma %s: %w", p.name, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return migrate(db)
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	if version > schemaVersion {
		return fmt.Errorf("catalog schema version %d is newer than supported version %d", version, schemaVersion)
	}
	for ; version < schemaVersion; version++ {
		if _, err := db.Exec(migrations[version]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// Stats summarizes the catalog.
type Stats struct {
	Expressions int `json:"expressions"`
	Lowerings   int `json:"lowerings"`

	// Failing counts expressions whose latest lowering failed.
	Failing int `json:"failing"`
}

// Stats counts stored expressions and lowering attempts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM expressions),
			(SELECT COUNT(*) FROM lowerings),
			(SELECT COUNT(*) FROM lowerings l
				WHERE l.error_code != ''
				AND l.seq = (SELECT MAX(seq) FROM lowerings WHERE expression_hash = l.expression_hash))
	`).Scan(&st.Expressions, &st.Lowerings, &st.Failing)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}
