package core

// convert.go provides conversions between text cells and typed nullable values.
//
// Every ToPg* function returns a pgtype value with Valid=false for empty or
// unparseable input, so "missing" stays a first-class state instead of a zero
// value. Every *Cell function renders a typed value back into a text cell;
// values that have no sensible textual form (NaN, ±Inf) become null cells, so
// they reach the file as an empty cell rather than a "NaN" token.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TimestampLayout is the fixed textual format used for every timestamp
// written to a table. It is ISO-8601 without zone, microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// numericRegex validates that a string is a plain decimal number.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// timestampLayouts are tried in order when parsing. The fixed layout comes
// first since it is what this package writes.
var timestampLayouts = []string{
	TimestampLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ToPgText converts a string to pgtype.Text.
// Returns invalid if the string is empty or only whitespace.
func ToPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// RawCell converts a value read from a file into a cell without any
// trimming. Only the empty string is treated as missing.
func RawCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{String: s, Valid: true}
}

// ToPgFloat8 converts a string to pgtype.Float8.
// Non-finite values are rejected.
func ToPgFloat8(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToPgInt4 converts a string to pgtype.Int4.
// Integral decimals such as "8.0" are accepted; fractional values are not.
func ToPgInt4(s string) pgtype.Int4 {
	f := ToPgFloat8(s)
	if !f.Valid {
		return pgtype.Int4{Valid: false}
	}
	return Float64ToInt4(f.Float64)
}

// Float64ToInt4 converts a float to pgtype.Int4 when it is integral and in range.
func Float64ToInt4(f float64) pgtype.Int4 {
	if f != math.Trunc(f) || f > math.MaxInt32 || f < math.MinInt32 {
		return pgtype.Int4{Valid: false}
	}
	return pgtype.Int4{Int32: int32(f), Valid: true}
}

// ParseTimestamp parses a timestamp in the fixed layout or in one of the
// common ISO-8601 variants. Zoned values are converted to UTC and the zone
// is dropped.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return StripZone(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}

// StripZone returns the wall clock of t in UTC as a zone-less time.
func StripZone(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC)
}

// ToPgTimestamp converts a string to pgtype.Timestamp.
func ToPgTimestamp(s string) pgtype.Timestamp {
	if strings.TrimSpace(s) == "" {
		return pgtype.Timestamp{Valid: false}
	}
	t, err := ParseTimestamp(s)
	if err != nil {
		return pgtype.Timestamp{Valid: false}
	}
	return pgtype.Timestamp{Time: t, Valid: true}
}

// FormatTimestamp renders t in TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return StripZone(t).Format(TimestampLayout)
}

// Float8Cell renders a float as a text cell.
func Float8Cell(f pgtype.Float8) Cell {
	if !f.Valid || math.IsNaN(f.Float64) || math.IsInf(f.Float64, 0) {
		return Cell{}
	}
	return Cell{String: strconv.FormatFloat(f.Float64, 'f', -1, 64), Valid: true}
}

// Int4Cell renders an integer as a text cell.
func Int4Cell(i pgtype.Int4) Cell {
	if !i.Valid {
		return Cell{}
	}
	return Cell{String: strconv.FormatInt(int64(i.Int32), 10), Valid: true}
}

// TimestampCell renders a timestamp as a text cell in TimestampLayout.
func TimestampCell(ts pgtype.Timestamp) Cell {
	if !ts.Valid || ts.InfinityModifier != pgtype.Finite {
		return Cell{}
	}
	return Cell{String: FormatTimestamp(ts.Time), Valid: true}
}

// CellFloat parses a cell as a finite number.
func CellFloat(c Cell) (float64, bool) {
	if !c.Valid {
		return 0, false
	}
	f := ToPgFloat8(c.String)
	return f.Float64, f.Valid
}
