package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/didi/gendry/builder"
	_ "github.com/lib/pq"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/anonmsg/internal/config"
	"github.com/xxxsen/anonmsg/internal/pkg/dbutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	migrationTable = "schema_migrations"
	// migrationLockKey serializes migrators across replicas sharing a database.
	migrationLockKey = 0x616e6f6e
)

type migration struct {
	Version    string
	Statements []string
}

func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn := cfg.DSN
	if dsn == "" {
		sslmode := cfg.SSLMode
		if sslmode == "" {
			sslmode = "disable"
		}
		dsn = fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, sslmode)
	}
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

// ApplyMigrations runs every embedded migration not yet recorded in
// schema_migrations. Each file commits atomically with its version row.
func ApplyMigrations(ctx context.Context, conn *sql.DB) error {
	migrations, err := loadMigrations(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	if _, err := conn.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+migrationTable+
		" (version TEXT PRIMARY KEY, applied_at BIGINT NOT NULL)"); err != nil {
		return fmt.Errorf("create %s: %w", migrationTable, err)
	}
	logger := logutil.GetLogger(ctx)
	for _, m := range migrations {
		applied, err := applyMigration(ctx, conn, m)
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.Version, err)
		}
		if applied {
			logger.Info("migration applied", zap.String("version", m.Version), zap.Int("statements", len(m.Statements)))
		}
	}
	return nil
}

func applyMigration(ctx context.Context, conn *sql.DB, m migration) (bool, error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", migrationLockKey); err != nil {
		return false, fmt.Errorf("lock: %w", err)
	}
	done, err := isApplied(ctx, tx, m.Version)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}
	for i, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("statement %d: %w", i+1, err)
		}
	}
	sqlStr, args, err := builder.BuildInsert(migrationTable, []map[string]interface{}{
		{"version": m.Version, "applied_at": time.Now().Unix()},
	})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return false, fmt.Errorf("record version: %w", err)
	}
	return true, tx.Commit()
}

func isApplied(ctx context.Context, tx *sql.Tx, version string) (bool, error) {
	sqlStr, args, err := builder.BuildSelect(migrationTable, map[string]interface{}{
		"version": version,
		"_limit":  []uint{1},
	}, []string{"version"})
	if err != nil {
		return false, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := tx.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return false, err
	}
	defer rows.Close()
	found := rows.Next()
	return found, rows.Err()
}

// loadMigrations returns the .sql files under dir ordered by name, each split
// into its statements.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var out []migration
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		stmts := splitStatements(string(content))
		if len(stmts) == 0 {
			continue
		}
		out = append(out, migration{
			Version:    strings.TrimSuffix(entry.Name(), ".sql"),
			Statements: stmts,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// splitStatements splits on ";" and drops blank and comment-only pieces.
// Migrations must not put semicolons inside literals.
func splitStatements(content string) []string {
	var out []string
	for _, piece := range strings.Split(content, ";") {
		piece = strings.TrimSpace(piece)
		if piece == "" || isCommentOnly(piece) {
			continue
		}
		out = append(out, piece)
	}
	return out
}

func isCommentOnly(piece string) bool {
	for _, line := range strings.Split(piece, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
