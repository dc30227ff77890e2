// Package quality implements the rule-based data-quality gate.
//
// A Rule partitions a table into compliant and violating rows. A Pipeline is
// an ordered list of rules folded over one table: each rule receives the
// compliant output of the previous one, and the compliant output of the last
// rule is the clean table. Violating rows are dropped and summarized in a
// Report, which is informational only.
//
// Pipelines are data. They are usually built from a Plan, the YAML document
// returned by DefaultPlan or read with LoadPlan.
package quality

import (
	"github.com/JonMunkholm/recipeflow/internal/core"
)

// ErrSchemaMismatch is returned when a rule names a column the table lacks.
var ErrSchemaMismatch = core.ErrSchemaMismatch

// maxSamples caps the example values carried by a Partition.
const maxSamples = 10

// Rule is a named predicate over a table's rows.
type Rule interface {
	// Name identifies the rule in reports and logs.
	Name() string
	// Columns lists the columns the rule reads.
	Columns() []string
	// Partition splits t into compliant and violating rows.
	Partition(t *core.Table) (Partition, error)
}

// Partition is the result of applying a rule to a table. Both tables share
// the input's schema; together they hold every input row exactly once, each
// in its original relative order.
type Partition struct {
	Compliant *core.Table
	Violating *core.Table
	// Samples are example offending values, distinct and in first-seen order.
	Samples []string
}

// split partitions t with violates, collecting a sample per violating row.
func split(t *core.Table, violates func(row core.Row) (bool, string)) Partition {
	p := Partition{Compliant: t.Derive(), Violating: t.Derive()}
	seen := make(map[string]struct{})

	for _, row := range t.Rows {
		bad, sample := violates(row)
		if !bad {
			p.Compliant.Rows = append(p.Compliant.Rows, row)
			continue
		}
		p.Violating.Rows = append(p.Violating.Rows, row)

		if _, ok := seen[sample]; ok || len(p.Samples) >= maxSamples {
			continue
		}
		seen[sample] = struct{}{}
		p.Samples = append(p.Samples, sample)
	}

	return p
}

// display renders a cell for samples and logs.
func display(c core.Cell) string {
	if !c.Valid {
		return "<null>"
	}
	return c.String
}
