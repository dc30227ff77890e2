package quality

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// Completeness flags rows in which any required column is null.
// A row missing several required columns is flagged once.
type Completeness struct {
	Required []string
}

func (r Completeness) Name() string      { return "completeness" }
func (r Completeness) Columns() []string { return r.Required }

func (r Completeness) Partition(t *core.Table) (Partition, error) {
	pos, err := positions(t, r)
	if err != nil {
		return Partition{}, err
	}

	return split(t, func(row core.Row) (bool, string) {
		for i, p := range pos {
			if !cellAt(row, p).Valid {
				return true, r.Required[i]
			}
		}
		return false, ""
	}), nil
}

// Membership flags rows whose Column value is not one of Allowed.
// Matching is exact and case-sensitive; null is never a member.
type Membership struct {
	Column  string
	Allowed []string
}

func (r Membership) Name() string      { return "membership" }
func (r Membership) Columns() []string { return []string{r.Column} }

func (r Membership) Partition(t *core.Table) (Partition, error) {
	pos, err := positions(t, r)
	if err != nil {
		return Partition{}, err
	}

	allowed := make(map[string]struct{}, len(r.Allowed))
	for _, v := range r.Allowed {
		allowed[v] = struct{}{}
	}

	return split(t, func(row core.Row) (bool, string) {
		c := cellAt(row, pos[0])
		if c.Valid {
			if _, ok := allowed[c.String]; ok {
				return false, ""
			}
		}
		return true, display(c)
	}), nil
}

// Range flags rows whose Column value is not a number in (Min, Max].
// Null values pass and are left to Completeness; non-numeric text violates.
type Range struct {
	Column string
	Min    float64 // exclusive
	Max    float64 // inclusive
}

func (r Range) Name() string      { return "range" }
func (r Range) Columns() []string { return []string{r.Column} }

func (r Range) Partition(t *core.Table) (Partition, error) {
	pos, err := positions(t, r)
	if err != nil {
		return Partition{}, err
	}

	return split(t, func(row core.Row) (bool, string) {
		c := cellAt(row, pos[0])
		if !c.Valid {
			return false, ""
		}
		v, ok := core.CellFloat(c)
		if ok && v > r.Min && v <= r.Max {
			return false, ""
		}
		return true, display(c)
	}), nil
}

// Unique flags the second and later rows sharing the same values in Keys.
// Rows with a null key cell are left to Completeness and pass.
type Unique struct {
	Keys []string
}

func (r Unique) Name() string      { return "unique" }
func (r Unique) Columns() []string { return r.Keys }

func (r Unique) Partition(t *core.Table) (Partition, error) {
	pos, err := positions(t, r)
	if err != nil {
		return Partition{}, err
	}

	seen := make(map[string]struct{}, t.Len())
	return split(t, func(row core.Row) (bool, string) {
		parts := make([]string, len(pos))
		for i, p := range pos {
			c := cellAt(row, p)
			if !c.Valid {
				return false, ""
			}
			parts[i] = c.String
		}
		key := strings.Join(parts, "\x1f")
		if _, dup := seen[key]; dup {
			return true, strings.Join(parts, "/")
		}
		seen[key] = struct{}{}
		return false, ""
	}), nil
}

// References flags rows whose Column value does not appear in a column of
// another table. The rule must be bound to that table before it runs.
type References struct {
	Column string
	// Table and TableColumn name the referenced column.
	Table       string
	TableColumn string

	values map[string]struct{}
}

func (r *References) Name() string      { return "references" }
func (r *References) Columns() []string { return []string{r.Column} }

// Bind loads the referenced values from parent.
func (r *References) Bind(parent *core.Table) error {
	cells, err := parent.Column(r.TableColumn)
	if err != nil {
		return fmt.Errorf("rule references %s.%s: %w: %v", r.Table, r.TableColumn, ErrSchemaMismatch, err)
	}
	r.values = make(map[string]struct{}, len(cells))
	for _, c := range cells {
		if c.Valid {
			r.values[c.String] = struct{}{}
		}
	}
	return nil
}

// Bound reports whether Bind has been called.
func (r *References) Bound() bool { return r.values != nil }

func (r *References) Partition(t *core.Table) (Partition, error) {
	if !r.Bound() {
		return Partition{}, fmt.Errorf("rule references: %s.%s is not bound", r.Table, r.TableColumn)
	}
	pos, err := positions(t, r)
	if err != nil {
		return Partition{}, err
	}

	return split(t, func(row core.Row) (bool, string) {
		c := cellAt(row, pos[0])
		if c.Valid {
			if _, ok := r.values[c.String]; ok {
				return false, ""
			}
		}
		return true, display(c)
	}), nil
}

// positions resolves a rule's columns against t's schema.
func positions(t *core.Table, r Rule) ([]int, error) {
	cols := r.Columns()
	pos := make([]int, len(cols))
	for i, c := range cols {
		p, ok := t.ColumnIndex(c)
		if !ok {
			return nil, fmt.Errorf("rule %s on %s: %w: column %q", r.Name(), t.Key, ErrSchemaMismatch, c)
		}
		pos[i] = p
	}
	return pos, nil
}

func cellAt(row core.Row, pos int) core.Cell {
	if pos >= len(row) {
		return core.Cell{}
	}
	return row[pos]
}

// describe renders a rule and its parameters for logs.
func describe(r Rule) string {
	switch v := r.(type) {
	case Membership:
		return fmt.Sprintf("%s(%s in %v)", v.Name(), v.Column, v.Allowed)
	case Range:
		return fmt.Sprintf("%s(%s in (%s, %s])", v.Name(), v.Column,
			strconv.FormatFloat(v.Min, 'f', -1, 64), strconv.FormatFloat(v.Max, 'f', -1, 64))
	case *References:
		return fmt.Sprintf("%s(%s -> %s.%s)", v.Name(), v.Column, v.Table, v.TableColumn)
	default:
		return fmt.Sprintf("%s(%s)", r.Name(), strings.Join(r.Columns(), ", "))
	}
}
