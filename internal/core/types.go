package core

import (
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
)

// FieldType represents the expected data type for a table column.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldNumeric
	FieldInteger
	FieldTimestamp
)

// String returns a human-readable name for the field type.
func (ft FieldType) String() string {
	switch ft {
	case FieldText:
		return "text"
	case FieldEnum:
		return "enum"
	case FieldNumeric:
		return "numeric"
	case FieldInteger:
		return "integer"
	case FieldTimestamp:
		return "timestamp"
	default:
		return "value"
	}
}

// FieldSpec describes a single column of a relational table.
type FieldSpec struct {
	Name       string    // Column header name, also the database column name
	Type       FieldType // Expected data type
	Key        bool      // Part of the table's identifying key
	EnumValues []string  // Known values for FieldEnum (informational, enforced by rules)
}

// TableInfo contains display and storage information about a table.
type TableInfo struct {
	Key      string   // Unique identifier: "recipes"
	Group    string   // Logical group: "catalog", "activity"
	Label    string   // Display name: "Recipes"
	FileName string   // File name in the data directory: "recipes.csv"
	Columns  []string // Header column names, in file order
	Parent   string   // Key of the table this one references through ForeignKey
	// ForeignKey is the column holding the parent's identifier.
	ForeignKey string
}

// TableDefinition contains everything needed to store and validate a table.
type TableDefinition struct {
	Info       TableInfo
	FieldSpecs []FieldSpec
}

// Spec returns the field spec for a column (case-insensitive).
func (d TableDefinition) Spec(column string) (FieldSpec, bool) {
	for _, spec := range d.FieldSpecs {
		if strings.EqualFold(spec.Name, column) {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Cell is a single nullable value in a table. Valid=false means the value is
// missing, which is distinct from an empty string only before serialization.
type Cell = pgtype.Text

// Row is one record of a table, with cells in column order.
type Row []Cell

// Record is implemented by the typed row structs so they can be turned into
// generic tables for storage and validation.
type Record interface {
	Cells() Row
}
