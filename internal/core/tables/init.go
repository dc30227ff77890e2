// Package tables registers all table definitions with the core registry.
// Import this package to ensure all tables are registered.
package tables

import "github.com/JonMunkholm/recipeflow/internal/core"

// specs builds field specs for columns, typing each column through types.
// Columns absent from types are text.
func specs(columns []string, types map[string]core.FieldType, keys ...string) []core.FieldSpec {
	isKey := make(map[string]bool, len(keys))
	for _, k := range keys {
		isKey[k] = true
	}

	out := make([]core.FieldSpec, len(columns))
	for i, col := range columns {
		out[i] = core.FieldSpec{
			Name: col,
			Type: types[col],
			Key:  isKey[col],
		}
	}
	return out
}
