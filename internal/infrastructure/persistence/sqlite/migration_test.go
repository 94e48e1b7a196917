package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigration_NewDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "approvals.db"))
	require.NoError(t, err)
	defer db.Close()

	version, err := NewMigrator(db).Version()
	require.NoError(t, err)
	assert.Equal(t, schemaVersion, version)

	columns := map[string]bool{}
	rows, err := db.Query("PRAGMA table_info(approval_requests)")
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var (
			cid          int
			name, typ    string
			notNull, pk  int
			defaultValue sql.NullString
		)
		require.NoError(t, rows.Scan(&cid, &name, &typ, &notNull, &defaultValue, &pk))
		columns[name] = true
	}
	for _, c := range []string{"id", "user_id", "draft_ref", "status", "expires_at", "transport_message_id"} {
		assert.True(t, columns[c], "missing column %s", c)
	}
}

func TestMigration_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "approvals.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, NewMigrator(db).Migrate())

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSplitSQLStatements(t *testing.T) {
	stmts := splitSQLStatements("-- comment\nCREATE TABLE a (x INT);\n\n  -- another\nCREATE INDEX i ON a (x);\n")
	assert.Equal(t, []string{"CREATE TABLE a (x INT)", "CREATE INDEX i ON a (x)"}, stmts)
}
