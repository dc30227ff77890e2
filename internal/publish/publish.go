// Package publish hands clean tables to downstream consumers.
//
// Publishers only read tables. Each Publish call replaces the target's copy
// of one table in full, inside a transaction where the target supports one.
package publish

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// Publisher sends one table to a downstream target.
type Publisher interface {
	// Name identifies the target in logs and errors.
	Name() string
	Publish(ctx context.Context, t *core.Table) error
}

// rowArgs converts a row to driver arguments, with null cells as nil.
func rowArgs(row core.Row) []any {
	args := make([]any, len(row))
	for i, c := range row {
		if c.Valid {
			args[i] = c.String
		}
	}
	return args
}

func publishError(target, table string, err error) error {
	return fmt.Errorf("publish %s to %s: %w", table, target, err)
}
