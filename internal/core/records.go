package core

import "github.com/jackc/pgx/v5/pgtype"

// Table keys.
const (
	TableRecipes      = "recipes"
	TableIngredients  = "ingredients"
	TableSteps        = "steps"
	TableUsers        = "users"
	TableInteractions = "interactions"
)

// Column lists, in file order. The table registry builds its field specs
// from these, so they are the single source of truth for each schema.
var (
	RecipeColumns = []string{
		"recipe_id", "user_id", "name", "servings",
		"prep_time_min", "cook_time_min", "difficulty", "created_at",
	}
	IngredientColumns  = []string{"recipe_id", "ingredient_name", "quantity", "unit"}
	StepColumns        = []string{"recipe_id", "step_number", "instruction"}
	UserColumns        = []string{"user_id", "join_date", "region"}
	InteractionColumns = []string{
		"interaction_id", "user_id", "recipe_id", "interaction_type", "timestamp", "value",
	}
)

// InteractionRating is the interaction type that carries a value.
const InteractionRating = "rating"

// RecipeDocument is a hierarchical recipe as stored in the document store.
type RecipeDocument struct {
	RecipeID    pgtype.Text
	UserID      pgtype.Text
	Name        pgtype.Text
	Servings    pgtype.Int4
	PrepTimeMin pgtype.Int4
	CookTimeMin pgtype.Int4
	Difficulty  pgtype.Text
	CreatedAt   pgtype.Timestamp
	Ingredients []IngredientEntry
	Steps       []StepEntry
}

// IngredientEntry is one element of a recipe document's ingredient list.
type IngredientEntry struct {
	Name     pgtype.Text
	Quantity pgtype.Float8
	Unit     pgtype.Text
}

// StepEntry is one element of a recipe document's step list.
type StepEntry struct {
	StepNumber  pgtype.Int4
	Instruction pgtype.Text
}

// RecipeRow is the scalar projection of a RecipeDocument.
type RecipeRow struct {
	RecipeID    pgtype.Text
	UserID      pgtype.Text
	Name        pgtype.Text
	Servings    pgtype.Int4
	PrepTimeMin pgtype.Int4
	CookTimeMin pgtype.Int4
	Difficulty  pgtype.Text
	CreatedAt   pgtype.Timestamp
}

// Cells implements Record.
func (r RecipeRow) Cells() Row {
	return Row{
		r.RecipeID,
		r.UserID,
		r.Name,
		Int4Cell(r.Servings),
		Int4Cell(r.PrepTimeMin),
		Int4Cell(r.CookTimeMin),
		r.Difficulty,
		TimestampCell(r.CreatedAt),
	}
}

// IngredientRow is one ingredient of a recipe, keyed by the recipe's id.
type IngredientRow struct {
	RecipeID       pgtype.Text
	IngredientName pgtype.Text
	Quantity       pgtype.Float8
	Unit           pgtype.Text
}

// Cells implements Record.
func (r IngredientRow) Cells() Row {
	return Row{r.RecipeID, r.IngredientName, Float8Cell(r.Quantity), r.Unit}
}

// StepRow is one step of a recipe, keyed by the recipe's id.
type StepRow struct {
	RecipeID    pgtype.Text
	StepNumber  pgtype.Int4
	Instruction pgtype.Text
}

// Cells implements Record.
func (r StepRow) Cells() Row {
	return Row{r.RecipeID, Int4Cell(r.StepNumber), r.Instruction}
}

// UserRow is a user record.
type UserRow struct {
	UserID   pgtype.Text
	JoinDate pgtype.Timestamp
	Region   pgtype.Text
}

// Cells implements Record.
func (r UserRow) Cells() Row {
	return Row{r.UserID, TimestampCell(r.JoinDate), r.Region}
}

// InteractionRow is a user's interaction with a recipe.
type InteractionRow struct {
	InteractionID   pgtype.Text
	UserID          pgtype.Text
	RecipeID        pgtype.Text
	InteractionType pgtype.Text
	Timestamp       pgtype.Timestamp
	Value           pgtype.Float8
}

// Cells implements Record.
func (r InteractionRow) Cells() Row {
	return Row{
		r.InteractionID,
		r.UserID,
		r.RecipeID,
		r.InteractionType,
		TimestampCell(r.Timestamp),
		Float8Cell(r.Value),
	}
}
