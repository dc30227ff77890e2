package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/recipeflow/internal/core"
	_ "github.com/JonMunkholm/recipeflow/internal/core/tables"
	"github.com/JonMunkholm/recipeflow/internal/quality"
	"github.com/JonMunkholm/recipeflow/internal/source"
	"github.com/JonMunkholm/recipeflow/internal/tablefile"
)

const recipesJSON = `[
  {
    "recipe_id": "recipe_ft_001",
    "user_id": "creator_1",
    "name": "Classic Golden French Toast",
    "servings": 2, "prep_time_min": 10, "cook_time_min": 8,
    "difficulty": "Easy",
    "ingredients": [
      {"name": "Thick White Bread", "quantity": 4, "unit": "slices"},
      {"name": "Eggs", "quantity": 3, "unit": "large"}
    ],
    "steps": [
      {"step_number": 1, "instruction": "Break 3 eggs into a bowl."},
      {"step_number": 2, "instruction": "Whisk in the milk."},
      {"step_number": 3, "instruction": "Fry until golden."}
    ]
  },
  {
    "recipe_id": "r2", "user_id": "u2", "name": "Soup",
    "servings": 4, "prep_time_min": 15, "cook_time_min": 45,
    "difficulty": "Advanced", "created_at": "2024-05-01T10:00:00",
    "ingredients": [], "steps": []
  }
]`

const usersJSON = `{"user_id": "creator_1", "join_date": "2023-01-01T00:00:00", "region": "Europe"}
{"user_id": "u2", "region": "Asia"}
`

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *tablefile.Store, string) {
	t.Helper()
	srcDir := t.TempDir()
	store := tablefile.NewStore(filepath.Join(t.TempDir(), "output"))

	base := []Option{
		WithSource(source.NewFileSource(srcDir)),
		WithClock(func() time.Time { return testNow }),
		WithRunIDs(func() string { return "run-1" }),
	}
	return NewService(store, append(base, opts...)...), store, srcDir
}

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func writeCSV(t *testing.T, store *tablefile.Store, key, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(store.Dir(), 0o755))
	path, err := store.Path(key)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func readCSV(t *testing.T, store *tablefile.Store, key string) string {
	t.Helper()
	path, err := store.Path(key)
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

const fiveRecipesCSV = `recipe_id,user_id,name,servings,prep_time_min,cook_time_min,difficulty,created_at
r1,u1,Toast,2,10,8,Easy,2024-01-01T00:00:00.000000
r2,u1,Soup,4,15,45,Advanced,2024-01-01T00:00:00.000000
r3,u2,Roast,6,30,400,Hard,2024-01-01T00:00:00.000000
r4,u2,Salad,1,5,300,Medium,2024-01-01T00:00:00.000000
r5,u3,Stew,8,20,120,Medium,2024-01-01T00:00:00.000000
`

func TestExtract(t *testing.T) {
	svc, store, srcDir := newTestService(t)
	writeSource(t, srcDir, "recipes.json", recipesJSON)
	writeSource(t, srcDir, "users.json", usersJSON)

	res, err := svc.Extract(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, map[string]int{
		core.TableRecipes:     2,
		core.TableIngredients: 2,
		core.TableSteps:       3,
		core.TableUsers:       2,
	}, res.Written)
	assert.Equal(t, []string{core.TableInteractions}, res.Skipped)
	assert.False(t, store.Exists(core.TableInteractions))

	recipes := readCSV(t, store, core.TableRecipes)
	assert.True(t, strings.HasPrefix(recipes, "recipe_id,user_id,name,servings,prep_time_min,cook_time_min,difficulty,created_at\n"))
	assert.Contains(t, recipes, "recipe_ft_001,creator_1,Classic Golden French Toast,2,10,8,Easy,2025-06-01T12:00:00.000000\n")
	assert.Contains(t, recipes, "r2,u2,Soup,4,15,45,Advanced,2024-05-01T10:00:00.000000\n")

	steps, err := store.Load(core.TableSteps)
	require.NoError(t, err)
	stepRecipes, err := steps.Column("recipe_id")
	require.NoError(t, err)
	for _, c := range stepRecipes {
		assert.Equal(t, "recipe_ft_001", c.String)
	}

	users := readCSV(t, store, core.TableUsers)
	assert.Contains(t, users, "u2,,Asia\n")
}

func TestExtract_SourceNotConfigured(t *testing.T) {
	svc := NewService(tablefile.NewStore(t.TempDir()))

	_, err := svc.Extract(context.Background())

	assert.Equal(t, "SRC001", core.MapError(err).Code)
}

func TestValidate_CleansAndSkipsMissing(t *testing.T) {
	svc, store, _ := newTestService(t)
	writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)

	res, err := svc.Validate(context.Background())

	require.NoError(t, err)
	require.Len(t, res.Reports, 2)

	recipes := res.Reports[0]
	assert.Equal(t, core.TableRecipes, recipes.Table)
	assert.Equal(t, 5, recipes.Input)
	assert.Equal(t, 3, recipes.Output)

	users := res.Reports[1]
	assert.True(t, users.Skipped)
	assert.False(t, store.Exists(core.TableUsers))

	clean, err := store.Load(core.TableRecipes)
	require.NoError(t, err)
	ids, _ := clean.Column("recipe_id")
	var got []string
	for _, c := range ids {
		got = append(got, c.String)
	}
	assert.Equal(t, []string{"r1", "r4", "r5"}, got)
	assert.Equal(t, 1, res.Cleaned())

	latest, ok := svc.LatestValidation()
	require.True(t, ok)
	assert.Equal(t, "run-1", latest.RunID)
}

func TestValidate_Idempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)

	_, err := svc.Validate(context.Background())
	require.NoError(t, err)
	first := readCSV(t, store, core.TableRecipes)

	res, err := svc.Validate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, readCSV(t, store, core.TableRecipes))
	assert.Zero(t, res.Reports[0].Violations())
}

func TestValidate_NothingAvailable(t *testing.T) {
	svc, store, _ := newTestService(t)

	res, err := svc.Validate(context.Background())

	require.NoError(t, err)
	for _, r := range res.Reports {
		assert.True(t, r.Skipped, "table %s", r.Table)
	}
	assert.Zero(t, res.Cleaned())
	_, statErr := os.Stat(store.Dir())
	assert.True(t, os.IsNotExist(statErr), "nothing should be written")
}

func TestValidate_SkipsHeaderOnlyTable(t *testing.T) {
	svc, store, _ := newTestService(t)
	writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)
	writeCSV(t, store, core.TableUsers, "user_id,join_date,region\n")

	path, err := store.Path(core.TableUsers)
	require.NoError(t, err)
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, old, old))

	res, err := svc.Validate(context.Background())

	require.NoError(t, err)
	users := res.Reports[1]
	assert.Equal(t, core.TableUsers, users.Table)
	assert.True(t, users.Skipped)
	assert.Equal(t, 1, res.Cleaned())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "empty table must not be rewritten")
}

func TestValidate_SchemaMismatchIsolated(t *testing.T) {
	svc, store, _ := newTestService(t)
	badRecipes := "recipe_id,user_id,name,servings,prep_time_min,difficulty\nr1,u1,Toast,2,10,Easy\n"
	writeCSV(t, store, core.TableRecipes, badRecipes)
	writeCSV(t, store, core.TableUsers, "user_id,join_date,region\nu1,2023-01-01T00:00:00.000000,Europe\nu2,,Asia\n")

	res, err := svc.Validate(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, quality.ErrSchemaMismatch))
	assert.True(t, res.Reports[0].Failed())
	assert.Equal(t, badRecipes, readCSV(t, store, core.TableRecipes), "failed table must not be rewritten")

	assert.False(t, res.Reports[1].Failed())
	assert.Equal(t, "user_id,join_date,region\nu1,2023-01-01T00:00:00.000000,Europe\n", readCSV(t, store, core.TableUsers))
}

func TestValidate_ReferencesFollowParent(t *testing.T) {
	plan, err := quality.LoadPlan(strings.NewReader(`
tables:
  - table: ingredients
    rules:
      - type: references
        column: recipe_id
        references: recipes.recipe_id
  - table: recipes
    rules:
      - type: membership
        column: difficulty
        allowed: [Easy, Medium, Hard]
`))
	require.NoError(t, err)

	t.Run("parent cleaned first", func(t *testing.T) {
		svc, store, _ := newTestService(t, WithPlan(plan))
		writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)
		writeCSV(t, store, core.TableIngredients, "recipe_id,ingredient_name,quantity,unit\nr1,Eggs,3,large\nr2,Leek,1,whole\nr9,Salt,1,pinch\n")

		res, err := svc.Validate(context.Background())

		require.NoError(t, err)
		assert.Equal(t, core.TableRecipes, res.Reports[0].Table)
		assert.Equal(t, core.TableIngredients, res.Reports[1].Table)
		assert.Equal(t, "recipe_id,ingredient_name,quantity,unit\nr1,Eggs,3,large\n", readCSV(t, store, core.TableIngredients))
	})

	t.Run("parent missing skips child", func(t *testing.T) {
		svc, store, _ := newTestService(t, WithPlan(plan))
		original := "recipe_id,ingredient_name,quantity,unit\nr1,Eggs,3,large\n"
		writeCSV(t, store, core.TableIngredients, original)

		res, err := svc.Validate(context.Background())

		require.NoError(t, err)
		assert.True(t, res.Reports[1].Skipped)
		assert.Contains(t, res.Reports[1].Reason, "recipes")
		assert.Equal(t, original, readCSV(t, store, core.TableIngredients))
	})
}

func TestOrderPipelines_Cycle(t *testing.T) {
	pipelines := []quality.Pipeline{
		{Table: "a", Rules: []quality.Rule{&quality.References{Column: "x", Table: "b", TableColumn: "x"}}},
		{Table: "b", Rules: []quality.Rule{&quality.References{Column: "x", Table: "a", TableColumn: "x"}}},
	}

	_, err := orderPipelines(pipelines)

	assert.True(t, errors.Is(err, core.ErrRuleConfig))
}

type recordingPublisher struct {
	name   string
	tables []string
	fail   map[string]bool
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(_ context.Context, t *core.Table) error {
	if p.fail[t.Key] {
		return errors.New("publish " + t.Key + " to " + p.name + ": refused")
	}
	p.tables = append(p.tables, t.Key)
	return nil
}

func TestPublish(t *testing.T) {
	good := &recordingPublisher{name: "sqlite"}
	flaky := &recordingPublisher{name: "s3", fail: map[string]bool{core.TableRecipes: true}}
	svc, store, _ := newTestService(t, WithPublishers(good, flaky))
	writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)
	writeCSV(t, store, core.TableUsers, "user_id,join_date,region\nu1,,Europe\n")

	res, err := svc.Publish(context.Background())

	require.Error(t, err)
	assert.Equal(t, "PUB001", core.MapError(err).Code)
	assert.ElementsMatch(t, []string{core.TableRecipes, core.TableUsers}, good.tables)
	assert.Equal(t, []string{core.TableUsers}, flaky.tables)
	assert.Equal(t, []string{"sqlite"}, res.Published[core.TableRecipes])
	assert.ElementsMatch(t, []string{core.TableIngredients, core.TableSteps, core.TableInteractions}, res.Missing)
}

func TestListTables(t *testing.T) {
	svc, store, _ := newTestService(t)
	writeCSV(t, store, core.TableUsers, "user_id,join_date,region\n")

	tables := svc.ListTables()

	require.Len(t, tables, core.TableCount())
	present := map[string]bool{}
	for _, ts := range tables {
		present[ts.Key] = ts.Present
	}
	assert.True(t, present[core.TableUsers])
	assert.False(t, present[core.TableRecipes])
}

func TestRuns_AreSerialized(t *testing.T) {
	svc, store, _ := newTestService(t, WithRunWait(20*time.Millisecond))
	writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)

	require.NoError(t, svc.gate.acquire(context.Background()))

	_, err := svc.Validate(context.Background())
	assert.ErrorIs(t, err, core.ErrRunInProgress)
	_, err = svc.Publish(context.Background())
	assert.ErrorIs(t, err, core.ErrRunInProgress)
	_, ok := svc.LatestValidation()
	assert.False(t, ok)

	svc.gate.release()
	require.NoError(t, svc.WaitForRuns(context.Background()))

	_, err = svc.Validate(context.Background())
	assert.NoError(t, err)
}

func TestTable(t *testing.T) {
	svc, store, _ := newTestService(t)
	writeCSV(t, store, core.TableRecipes, fiveRecipesCSV)

	tbl, err := svc.Table(core.TableRecipes)
	require.NoError(t, err)
	assert.Equal(t, 5, tbl.Len())

	_, err = svc.Table("orders")
	assert.ErrorIs(t, err, core.ErrUnknownTable)

	_, err = svc.Table(core.TableUsers)
	assert.ErrorIs(t, err, core.ErrTableMissing)
}
