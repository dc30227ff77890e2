package quality

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/logging"
)

// Pipeline is the ordered rule list for one table.
type Pipeline struct {
	Table string
	Rules []Rule
}

// Entry summarizes one rule invocation.
type Entry struct {
	Rule        string   `json:"rule"`
	Description string   `json:"description"`
	Columns     []string `json:"columns"`
	Violations  int      `json:"violations"`
	Samples     []string `json:"samples,omitempty"`
}

// Report summarizes a pipeline run over one table.
type Report struct {
	Table   string  `json:"table"`
	Input   int     `json:"input_rows"`
	Output  int     `json:"output_rows"`
	Entries []Entry `json:"entries"`
	Skipped bool    `json:"skipped,omitempty"`
	Reason  string  `json:"reason,omitempty"`
	// Error is set when the table failed; nothing was written for it.
	Error string `json:"error,omitempty"`
}

// Violations returns the number of rows dropped across all rules.
func (r Report) Violations() int {
	n := 0
	for _, e := range r.Entries {
		n += e.Violations
	}
	return n
}

// SkippedReport records a table that was not validated.
func SkippedReport(table, reason string) Report {
	return Report{Table: table, Skipped: true, Reason: reason}
}

// Failed reports whether the run for this table ended in an error.
func (r Report) Failed() bool {
	return r.Error != ""
}

// Requires returns the tables this pipeline's rules reference.
func (p Pipeline) Requires() []string {
	var out []string
	for _, r := range p.Rules {
		if ref, ok := r.(*References); ok {
			out = append(out, ref.Table)
		}
	}
	return out
}

// Bind resolves every References rule against tables, keyed by table key.
func (p Pipeline) Bind(tables map[string]*core.Table) error {
	for _, r := range p.Rules {
		ref, ok := r.(*References)
		if !ok {
			continue
		}
		parent, ok := tables[ref.Table]
		if !ok {
			return fmt.Errorf("rule references on %s: table %s is not available", p.Table, ref.Table)
		}
		if err := ref.Bind(parent); err != nil {
			return err
		}
	}
	return nil
}

// Check verifies that t's schema has every column the rules read.
func (p Pipeline) Check(t *core.Table) error {
	for _, r := range p.Rules {
		if missing := t.MissingColumns(r.Columns()); len(missing) > 0 {
			return fmt.Errorf("rule %s on %s: %w: column %q", r.Name(), p.Table, ErrSchemaMismatch, missing[0])
		}
	}
	return nil
}

// Run folds the rules over t in order and returns the clean table.
// The schema is checked before any rule runs, so a mismatch yields no
// partial result. t is not modified.
func (p Pipeline) Run(ctx context.Context, t *core.Table) (*core.Table, Report, error) {
	logger := logging.FromContext(ctx).With("table", p.Table)
	report := Report{Table: p.Table, Input: t.Len(), Entries: make([]Entry, 0, len(p.Rules))}

	if err := p.Check(t); err != nil {
		return nil, report, err
	}

	current := t
	for _, r := range p.Rules {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		part, err := r.Partition(current)
		if err != nil {
			return nil, report, err
		}

		entry := Entry{
			Rule:        r.Name(),
			Description: describe(r),
			Columns:     r.Columns(),
			Violations:  part.Violating.Len(),
			Samples:     part.Samples,
		}
		report.Entries = append(report.Entries, entry)

		if entry.Violations > 0 {
			logger.Warn("rule violations",
				"rule", entry.Description,
				"violations", entry.Violations,
				"samples", entry.Samples)
		} else {
			logger.Info("rule passed", "rule", entry.Description)
		}

		current = part.Compliant
	}

	report.Output = current.Len()
	logger.Info("pipeline complete",
		"input_rows", report.Input,
		"output_rows", report.Output,
		"dropped", report.Violations())

	return current, report, nil
}
