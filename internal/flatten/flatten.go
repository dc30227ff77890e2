// Package flatten converts hierarchical documents into relational rows.
//
// A recipe document becomes one master row plus one row per ingredient and
// per step, each child row carrying the recipe's id as its foreign key.
// Flattening is a pure in-memory transformation: it never writes anything
// and never rejects a document. Missing values stay null and are left to the
// data-quality rules.
package flatten

import (
	"time"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
)

// Result holds the three outputs of flattening recipe documents. Each slice
// preserves the order of the source documents, and child rows preserve the
// order of their document's lists.
type Result struct {
	Recipes     []core.RecipeRow
	Ingredients []core.IngredientRow
	Steps       []core.StepRow
}

// Tables returns the result as storable tables, keyed by table key.
func (r Result) Tables() []*core.Table {
	return []*core.Table{
		core.TableOf(core.TableRecipes, core.RecipeColumns, r.Recipes),
		core.TableOf(core.TableIngredients, core.IngredientColumns, r.Ingredients),
		core.TableOf(core.TableSteps, core.StepColumns, r.Steps),
	}
}

// Flattener turns recipe documents into rows.
type Flattener struct {
	// Now supplies created_at for documents that lack one.
	// Defaults to time.Now.
	Now func() time.Time
}

// New returns a Flattener using the wall clock.
func New() *Flattener {
	return &Flattener{Now: time.Now}
}

// Recipes flattens docs into master, ingredient and step rows.
func (f *Flattener) Recipes(docs []core.RecipeDocument) Result {
	var res Result
	res.Recipes = make([]core.RecipeRow, 0, len(docs))

	for _, doc := range docs {
		res.Recipes = append(res.Recipes, f.master(doc))

		for _, ing := range doc.Ingredients {
			res.Ingredients = append(res.Ingredients, core.IngredientRow{
				RecipeID:       doc.RecipeID,
				IngredientName: ing.Name,
				Quantity:       ing.Quantity,
				Unit:           ing.Unit,
			})
		}

		for _, step := range doc.Steps {
			res.Steps = append(res.Steps, core.StepRow{
				RecipeID:    doc.RecipeID,
				StepNumber:  step.StepNumber,
				Instruction: step.Instruction,
			})
		}
	}

	return res
}

func (f *Flattener) master(doc core.RecipeDocument) core.RecipeRow {
	createdAt := doc.CreatedAt
	if !createdAt.Valid {
		// Truncated to the written precision so the row equals what a
		// later read of the file produces.
		createdAt = pgtype.Timestamp{Time: core.StripZone(f.now()).Truncate(time.Microsecond), Valid: true}
	}

	return core.RecipeRow{
		RecipeID:    doc.RecipeID,
		UserID:      doc.UserID,
		Name:        doc.Name,
		Servings:    doc.Servings,
		PrepTimeMin: doc.PrepTimeMin,
		CookTimeMin: doc.CookTimeMin,
		Difficulty:  doc.Difficulty,
		CreatedAt:   createdAt,
	}
}

func (f *Flattener) now() time.Time {
	if f.Now == nil {
		return time.Now()
	}
	return f.Now()
}

// Documents decodes and flattens raw recipe documents in one step.
func (f *Flattener) Documents(docs []core.Document) Result {
	typed := make([]core.RecipeDocument, len(docs))
	for i, d := range docs {
		typed[i] = core.DecodeRecipe(d)
	}
	return f.Recipes(typed)
}

// Users projects raw user documents into rows.
func Users(docs []core.Document) []core.UserRow {
	rows := make([]core.UserRow, len(docs))
	for i, d := range docs {
		rows[i] = core.DecodeUser(d)
	}
	return rows
}

// Interactions projects raw interaction documents into rows.
func Interactions(docs []core.Document) []core.InteractionRow {
	rows := make([]core.InteractionRow, len(docs))
	for i, d := range docs {
		rows[i] = core.DecodeInteraction(d)
	}
	return rows
}
