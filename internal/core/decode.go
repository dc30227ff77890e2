package core

// decode.go turns opaque documents from the document store into typed
// documents. Decoding never fails: a missing key, a null, or a value of an
// unusable type all become an invalid (null) field, and the data-quality
// rules decide later whether that matters.

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// Document is a raw key-value record as produced by a document store.
type Document map[string]any

// DecodeRecipe converts a raw recipe document.
func DecodeRecipe(doc Document) RecipeDocument {
	rd := RecipeDocument{
		RecipeID:    textValue(doc["recipe_id"]),
		UserID:      textValue(doc["user_id"]),
		Name:        textValue(doc["name"]),
		Servings:    intValue(doc["servings"]),
		PrepTimeMin: intValue(doc["prep_time_min"]),
		CookTimeMin: intValue(doc["cook_time_min"]),
		Difficulty:  textValue(doc["difficulty"]),
		CreatedAt:   timeValue(doc["created_at"]),
	}

	for _, entry := range listValue(doc["ingredients"]) {
		rd.Ingredients = append(rd.Ingredients, IngredientEntry{
			Name:     textValue(entry["name"]),
			Quantity: floatValue(entry["quantity"]),
			Unit:     textValue(entry["unit"]),
		})
	}

	for _, entry := range listValue(doc["steps"]) {
		rd.Steps = append(rd.Steps, StepEntry{
			StepNumber:  intValue(entry["step_number"]),
			Instruction: textValue(entry["instruction"]),
		})
	}

	return rd
}

// DecodeUser converts a raw user document.
func DecodeUser(doc Document) UserRow {
	return UserRow{
		UserID:   textValue(doc["user_id"]),
		JoinDate: timeValue(doc["join_date"]),
		Region:   textValue(doc["region"]),
	}
}

// DecodeInteraction converts a raw interaction document.
func DecodeInteraction(doc Document) InteractionRow {
	return InteractionRow{
		InteractionID:   textValue(doc["interaction_id"]),
		UserID:          textValue(doc["user_id"]),
		RecipeID:        textValue(doc["recipe_id"]),
		InteractionType: textValue(doc["interaction_type"]),
		Timestamp:       timeValue(doc["timestamp"]),
		Value:           floatValue(doc["value"]),
	}
}

func textValue(v any) pgtype.Text {
	switch x := v.(type) {
	case string:
		return ToPgText(x)
	case json.Number:
		return ToPgText(x.String())
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return pgtype.Text{}
		}
		return ToPgText(strconv.FormatFloat(x, 'f', -1, 64))
	case int:
		return ToPgText(strconv.Itoa(x))
	case int64:
		return ToPgText(strconv.FormatInt(x, 10))
	case bool:
		return ToPgText(strconv.FormatBool(x))
	default:
		return pgtype.Text{}
	}
}

func floatValue(v any) pgtype.Float8 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		return ToPgFloat8(x.String())
	case string:
		return ToPgFloat8(x)
	default:
		return pgtype.Float8{}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return pgtype.Float8{}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

func intValue(v any) pgtype.Int4 {
	f := floatValue(v)
	if !f.Valid {
		return pgtype.Int4{}
	}
	return Float64ToInt4(f.Float64)
}

// timeValue accepts time.Time, textual timestamps, and the exported
// timestamp object form {"_seconds": s, "_nanoseconds": ns} (also without
// the leading underscores).
func timeValue(v any) pgtype.Timestamp {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return pgtype.Timestamp{}
		}
		return pgtype.Timestamp{Time: StripZone(x), Valid: true}
	case string:
		return ToPgTimestamp(x)
	case map[string]any:
		secs := floatValue(firstOf(x, "_seconds", "seconds"))
		if !secs.Valid {
			return pgtype.Timestamp{}
		}
		nanos := floatValue(firstOf(x, "_nanoseconds", "nanoseconds", "nanos"))
		t := time.Unix(int64(secs.Float64), int64(nanos.Float64))
		return pgtype.Timestamp{Time: StripZone(t), Valid: true}
	default:
		return pgtype.Timestamp{}
	}
}

func firstOf(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

// listValue returns the object elements of a list value. Elements that are
// not objects are dropped.
func listValue(v any) []map[string]any {
	switch x := v.(type) {
	case []map[string]any:
		return x
	case []any:
		out := make([]map[string]any, 0, len(x))
		for _, e := range x {
			switch m := e.(type) {
			case map[string]any:
				out = append(out, m)
			case Document:
				out = append(out, m)
			}
		}
		return out
	default:
		return nil
	}
}
