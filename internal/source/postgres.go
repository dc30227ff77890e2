package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// Querier is the subset of *pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads documents from a jsonb table laid out as
//
//	CREATE TABLE documents (
//	    id         bigserial PRIMARY KEY,
//	    collection text  NOT NULL,
//	    doc        jsonb NOT NULL
//	);
type PostgresSource struct {
	db    Querier
	query string
}

// NewPostgresSource returns a PostgresSource over table.
func NewPostgresSource(db Querier, table string) *PostgresSource {
	return &PostgresSource{db: db, query: documentsQuery(table)}
}

func documentsQuery(table string) string {
	return "SELECT doc FROM " + quoteIdentifier(table) + " WHERE collection = $1 ORDER BY id"
}

// Documents implements Source.
func (s *PostgresSource) Documents(ctx context.Context, collection string) ([]core.Document, error) {
	rows, err := s.db.Query(ctx, s.query, collection)
	if err != nil {
		return nil, fmt.Errorf("document source: query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("document source: scan %s: %w", collection, err)
		}
		doc, err := decodeDocument(raw)
		if err != nil {
			return nil, fmt.Errorf("document source: decode %s document %d: %w", collection, len(docs)+1, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("document source: %s: %w", collection, err)
	}

	return docs, nil
}

// quoteIdentifier quotes a SQL identifier, escaping embedded double quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
