package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/exprgen/internal/ir"
	"github.com/roach88/exprgen/internal/lower"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_IdempotentReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)
	hash, _, err := s.PutExpression(ctx, "sample", sampleTree(1))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for i := 0; i < 3; i++ {
		s, err = Open(path)
		require.NoError(t, err, "reopen %d", i)
		require.NoError(t, s.Close())
	}

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	rec, err := s.GetExpression(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, "sample", rec.Name)
	assert.Equal(t, schemaVersion, userVersion(t, s.db))
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestClose_Twice(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())

	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	_ = s.Close()
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	want := map[string]string{
		"journal_mode": "wal",
		"synchronous":  "1", // NORMAL
		"busy_timeout": "5000",
		"foreign_keys": "1",
	}
	for name, expected := range want {
		var value string
		require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&value))
		assert.Equal(t, expected, value, "PRAGMA %s", name)
	}
}

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	assert.Equal(t,
		[]string{"hash", "name", "ir_version", "node_count", "tree", "canonical", "seq"},
		tableColumns(t, s.db, "expressions"))
	assert.Equal(t,
		[]string{"id", "expression_hash", "backend", "backend_version", "error_code", "error_message", "seq"},
		tableColumns(t, s.db, "lowerings"))
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	assert.Contains(t, tableIndexes(t, s.db, "expressions"), "idx_expressions_name")
	indexes := tableIndexes(t, s.db, "lowerings")
	assert.Contains(t, indexes, "idx_lowerings_expression_seq")
	assert.Contains(t, indexes, "idx_lowerings_error_code")
}

func TestConstraint_LoweringNeedsExpression(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO lowerings (id, expression_hash, backend, backend_version, seq)
		VALUES ('x', 'missing', 'closure', '1', 1)`)
	assert.Error(t, err, "foreign key must reject unknown expression hash")
}

func TestMigration_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	// Simulate a catalog written before any migration existed.
	_, err = s.db.Exec("DROP INDEX idx_lowerings_expression_seq")
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_lowerings_error_code")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, schemaVersion, userVersion(t, s.db))
	assert.Contains(t, tableIndexes(t, s.db, "lowerings"), "idx_lowerings_expression_seq")
}

func TestMigration_RejectsNewerCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "newer than supported")
}

func TestStats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, st)

	ok, _, err := s.PutExpression(ctx, "ok", sampleTree(1))
	require.NoError(t, err)
	flaky, _, err := s.PutExpression(ctx, "flaky", sampleTree(2))
	require.NoError(t, err)

	unbound := lower.NewUnboundVariable(ir.KindLoad, "x", "Load")
	_, err = s.RecordLowering(ctx, ok, "closure", nil)
	require.NoError(t, err)
	_, err = s.RecordLowering(ctx, flaky, "closure", nil)
	require.NoError(t, err)
	_, err = s.RecordLowering(ctx, flaky, "closure", unbound)
	require.NoError(t, err)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Expressions: 2, Lowerings: 3, Failing: 1}, st)

	// A later success clears the failure.
	_, err = s.RecordLowering(ctx, flaky, "closure", nil)
	require.NoError(t, err)
	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Failing)
}

func TestStats_Cancelled(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Stats(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func userVersion(t *testing.T, db *sql.DB) int {
	t.Helper()
	var version int
	require.NoError(t, db.QueryRow("PRAGMA user_version").Scan(&version))
	return version
}

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	require.NoError(t, err)
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		cols = append(cols, name)
	}
	require.NoError(t, rows.Err())
	return cols
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	return names
}
