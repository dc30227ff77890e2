package publish

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/recipeflow/internal/core"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (creating if needed) the SQLite database at path.
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// SQLite publishes tables into a local SQLite database. Column affinity
// follows the registered field types so numeric columns sort and aggregate
// as numbers.
type SQLite struct {
	db *sql.DB
}

// NewSQLite returns a SQLite publisher over db.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

func (s *SQLite) Name() string { return "sqlite" }

// Publish replaces the target table's rows with t's rows in one transaction.
func (s *SQLite) Publish(ctx context.Context, t *core.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return publishError(s.Name(), t.Key, fmt.Errorf("begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	name := sqliteIdent(t.Key)

	if _, err := tx.ExecContext(ctx, sqliteCreateSQL(t)); err != nil {
		return publishError(s.Name(), t.Key, fmt.Errorf("create table: %w", err))
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM "+name); err != nil {
		return publishError(s.Name(), t.Key, fmt.Errorf("clear table: %w", err))
	}

	stmt, err := tx.PrepareContext(ctx, sqliteInsertSQL(t))
	if err != nil {
		return publishError(s.Name(), t.Key, fmt.Errorf("prepare insert: %w", err))
	}
	defer func() { _ = stmt.Close() }()

	for i, row := range t.Rows {
		if _, err := stmt.ExecContext(ctx, rowArgs(row)...); err != nil {
			return publishError(s.Name(), t.Key, fmt.Errorf("insert row %d: %w", i+1, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return publishError(s.Name(), t.Key, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func sqliteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func sqliteCreateSQL(t *core.Table) string {
	def, registered := core.Get(t.Key)

	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		affinity := "TEXT"
		if registered {
			if spec, ok := def.Spec(c); ok {
				affinity = sqliteAffinity(spec.Type)
			}
		}
		cols[i] = sqliteIdent(c) + " " + affinity
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", sqliteIdent(t.Key), strings.Join(cols, ", "))
}

func sqliteInsertSQL(t *core.Table) string {
	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = sqliteIdent(c)
		marks[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		sqliteIdent(t.Key), strings.Join(cols, ", "), strings.Join(marks, ", "))
}

func sqliteAffinity(ft core.FieldType) string {
	switch ft {
	case core.FieldInteger:
		return "INTEGER"
	case core.FieldNumeric:
		return "REAL"
	default:
		return "TEXT"
	}
}
