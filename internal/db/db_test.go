package db

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
-- accounts
CREATE TABLE a (id TEXT);

CREATE INDEX idx_a ON a (id);
-- trailing note
`)
	require.Equal(t, []string{
		"-- accounts\nCREATE TABLE a (id TEXT)",
		"CREATE INDEX idx_a ON a (id)",
	}, stmts)
	require.Empty(t, splitStatements("  ;\n-- nothing here\n;"))
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/002_b.sql":   {Data: []byte("ALTER TABLE a ADD COLUMN b TEXT;")},
		"m/001_a.sql":   {Data: []byte("CREATE TABLE a (id TEXT);CREATE INDEX i ON a (id);")},
		"m/003_e.sql":   {Data: []byte("-- reserved\n")},
		"m/README.md":   {Data: []byte("not sql")},
		"m/sub/004.sql": {Data: []byte("CREATE TABLE x (id TEXT);")},
	}
	got, err := loadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "001_a", got[0].Version)
	require.Len(t, got[0].Statements, 2)
	require.Equal(t, "002_b", got[1].Version)
	require.Equal(t, []string{"ALTER TABLE a ADD COLUMN b TEXT"}, got[1].Statements)
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := loadMigrations(migrationsFS, "migrations")
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, "001_accounts", got[0].Version)
	for _, m := range got {
		for _, stmt := range m.Statements {
			require.NotContains(t, stmt, ";")
		}
	}
}
