package publish

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// TxBeginner is the subset of *pgxpool.Pool used by Postgres.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Postgres publishes tables into a PostgreSQL schema. Every column is text:
// cells are published exactly as they appear in the table files.
type Postgres struct {
	db     TxBeginner
	schema string
}

// NewPostgres returns a Postgres publisher writing into schema.
func NewPostgres(db TxBeginner, schema string) *Postgres {
	if schema == "" {
		schema = "public"
	}
	return &Postgres{db: db, schema: schema}
}

func (p *Postgres) Name() string { return "postgres" }

// Publish replaces the rows of the target table with t's rows in one
// transaction: create if absent, truncate, COPY.
func (p *Postgres) Publish(ctx context.Context, t *core.Table) error {
	tx, err := p.db.Begin(ctx)
	if err != nil {
		return publishError(p.Name(), t.Key, fmt.Errorf("begin transaction: %w", err))
	}
	defer tx.Rollback(ctx) // no-op after commit

	ident := pgx.Identifier{p.schema, t.Key}

	if _, err := tx.Exec(ctx, createTableSQL(ident, t.Columns)); err != nil {
		return publishError(p.Name(), t.Key, fmt.Errorf("create table: %w", err))
	}
	if _, err := tx.Exec(ctx, "TRUNCATE "+ident.Sanitize()); err != nil {
		return publishError(p.Name(), t.Key, fmt.Errorf("truncate: %w", err))
	}

	rows := make([][]any, len(t.Rows))
	for i, r := range t.Rows {
		rows[i] = rowArgs(r)
	}

	n, err := tx.CopyFrom(ctx, ident, t.Columns, pgx.CopyFromRows(rows))
	if err != nil {
		return publishError(p.Name(), t.Key, fmt.Errorf("copy: %w", err))
	}
	if int(n) != len(rows) {
		return publishError(p.Name(), t.Key, fmt.Errorf("copied %d of %d rows", n, len(rows)))
	}

	if err := tx.Commit(ctx); err != nil {
		return publishError(p.Name(), t.Key, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func createTableSQL(ident pgx.Identifier, columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " text"
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", ident.Sanitize(), strings.Join(defs, ", "))
}
