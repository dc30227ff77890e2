package flatten

import (
	"fmt"
	"testing"
	"time"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2025, 2, 3, 4, 5, 6, 789123456, time.UTC)

func newTestFlattener() *Flattener {
	return &Flattener{Now: func() time.Time { return fixedNow }}
}

func txt(s string) pgtype.Text { return pgtype.Text{String: s, Valid: true} }

func recipeDoc(id string, ingredients, steps int) core.RecipeDocument {
	doc := core.RecipeDocument{
		RecipeID:    txt(id),
		UserID:      txt("user_1"),
		Name:        txt("Recipe " + id),
		Servings:    pgtype.Int4{Int32: 2, Valid: true},
		PrepTimeMin: pgtype.Int4{Int32: 10, Valid: true},
		CookTimeMin: pgtype.Int4{Int32: 20, Valid: true},
		Difficulty:  txt("Easy"),
		CreatedAt:   pgtype.Timestamp{Time: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Valid: true},
	}
	for i := 0; i < ingredients; i++ {
		doc.Ingredients = append(doc.Ingredients, core.IngredientEntry{
			Name:     txt(fmt.Sprintf("item_%d", i)),
			Quantity: pgtype.Float8{Float64: float64(i) + 0.5, Valid: true},
			Unit:     txt("g"),
		})
	}
	for i := 1; i <= steps; i++ {
		doc.Steps = append(doc.Steps, core.StepEntry{
			StepNumber:  pgtype.Int4{Int32: int32(i), Valid: true},
			Instruction: txt(fmt.Sprintf("Step %d.", i)),
		})
	}
	return doc
}

func TestRecipes_PreservesCardinality(t *testing.T) {
	tests := []struct {
		ingredients int
		steps       int
	}{
		{0, 0},
		{1, 0},
		{0, 3},
		{6, 8},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_ingredients_%d_steps", tt.ingredients, tt.steps), func(t *testing.T) {
			res := newTestFlattener().Recipes([]core.RecipeDocument{recipeDoc("r1", tt.ingredients, tt.steps)})

			require.Len(t, res.Recipes, 1)
			assert.Len(t, res.Ingredients, tt.ingredients)
			assert.Len(t, res.Steps, tt.steps)

			for _, ing := range res.Ingredients {
				assert.Equal(t, "r1", ing.RecipeID.String)
			}
			for _, st := range res.Steps {
				assert.Equal(t, "r1", st.RecipeID.String)
			}
		})
	}
}

func TestRecipes_PreservesOrder(t *testing.T) {
	docs := []core.RecipeDocument{recipeDoc("a", 2, 1), recipeDoc("b", 1, 2)}

	res := newTestFlattener().Recipes(docs)

	require.Len(t, res.Recipes, 2)
	assert.Equal(t, "a", res.Recipes[0].RecipeID.String)
	assert.Equal(t, "b", res.Recipes[1].RecipeID.String)

	var ingOwners []string
	for _, ing := range res.Ingredients {
		ingOwners = append(ingOwners, ing.RecipeID.String+"/"+ing.IngredientName.String)
	}
	assert.Equal(t, []string{"a/item_0", "a/item_1", "b/item_0"}, ingOwners)

	var stepOrder []int32
	for _, st := range res.Steps {
		stepOrder = append(stepOrder, st.StepNumber.Int32)
	}
	assert.Equal(t, []int32{1, 1, 2}, stepOrder)
}

func TestRecipes_StepNumberIsDeclaredNotPositional(t *testing.T) {
	doc := recipeDoc("r1", 0, 0)
	doc.Steps = []core.StepEntry{
		{StepNumber: pgtype.Int4{Int32: 10, Valid: true}, Instruction: txt("first listed")},
		{StepNumber: pgtype.Int4{Int32: 3, Valid: true}, Instruction: txt("second listed")},
		{Instruction: txt("no number")},
	}

	res := newTestFlattener().Recipes([]core.RecipeDocument{doc})

	require.Len(t, res.Steps, 3)
	assert.Equal(t, int32(10), res.Steps[0].StepNumber.Int32)
	assert.Equal(t, int32(3), res.Steps[1].StepNumber.Int32)
	assert.False(t, res.Steps[2].StepNumber.Valid)
}

func TestRecipes_MissingCreatedAtUsesClock(t *testing.T) {
	doc := recipeDoc("r1", 0, 0)
	doc.CreatedAt = pgtype.Timestamp{}

	res := newTestFlattener().Recipes([]core.RecipeDocument{doc})

	got := res.Recipes[0].CreatedAt
	require.True(t, got.Valid)
	assert.True(t, got.Time.Equal(fixedNow.Truncate(time.Microsecond)))

	cell := core.TimestampCell(got)
	assert.Equal(t, "2025-02-03T04:05:06.789123", cell.String)

	back, err := core.ParseTimestamp(cell.String)
	require.NoError(t, err)
	assert.True(t, back.Equal(got.Time), "serialized created_at must round-trip")
}

func TestRecipes_MissingScalarsStayNull(t *testing.T) {
	doc := core.RecipeDocument{RecipeID: txt("r9")}

	res := newTestFlattener().Recipes([]core.RecipeDocument{doc})

	row := res.Recipes[0]
	assert.False(t, row.Name.Valid)
	assert.False(t, row.Servings.Valid)
	assert.False(t, row.Difficulty.Valid)

	cells := row.Cells()
	assert.False(t, cells[2].Valid, "name cell should be null")
	assert.True(t, cells[7].Valid, "created_at is always filled")
}

func TestRecipes_MissingRecipeIDPropagatesNull(t *testing.T) {
	doc := recipeDoc("x", 1, 1)
	doc.RecipeID = pgtype.Text{}

	res := newTestFlattener().Recipes([]core.RecipeDocument{doc})

	assert.False(t, res.Ingredients[0].RecipeID.Valid)
	assert.False(t, res.Steps[0].RecipeID.Valid)
}

func TestDocuments_DecodesAndFlattens(t *testing.T) {
	docs := []core.Document{
		{
			"recipe_id":  "recipe_ft_001",
			"difficulty": "Easy",
			"ingredients": []any{
				map[string]any{"name": "Thick White Bread", "quantity": float64(4), "unit": "slices"},
			},
			"steps": []any{},
		},
		{"recipe_id": "r2"},
	}

	res := newTestFlattener().Documents(docs)

	require.Len(t, res.Recipes, 2)
	require.Len(t, res.Ingredients, 1)
	assert.Empty(t, res.Steps)
	assert.Equal(t, "slices", res.Ingredients[0].Unit.String)
}

func TestResult_Tables(t *testing.T) {
	res := newTestFlattener().Recipes([]core.RecipeDocument{recipeDoc("r1", 2, 3)})

	tables := res.Tables()

	require.Len(t, tables, 3)
	assert.Equal(t, core.TableRecipes, tables[0].Key)
	assert.Equal(t, 1, tables[0].Len())
	assert.Equal(t, 2, tables[1].Len())
	assert.Equal(t, 3, tables[2].Len())
	assert.Equal(t, core.StepColumns, tables[2].Columns)
	quantities, err := tables[1].Column("quantity")
	require.NoError(t, err)
	assert.Equal(t, "0.5", quantities[0].String)
}

func TestUsersAndInteractions(t *testing.T) {
	users := Users([]core.Document{
		{"user_id": "creator_1", "join_date": "2023-01-01T00:00:00", "region": "North America"},
		{"user_id": "synth_2"},
	})
	require.Len(t, users, 2)
	assert.Equal(t, "2023-01-01T00:00:00.000000", core.TimestampCell(users[0].JoinDate).String)
	assert.False(t, users[1].JoinDate.Valid)

	inter := Interactions([]core.Document{
		{"interaction_id": "i1", "interaction_type": "rating", "value": 4.2},
	})
	require.Len(t, inter, 1)
	assert.Equal(t, 4.2, inter[0].Value.Float64)
}
