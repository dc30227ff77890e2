package quality

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPlan(t *testing.T) {
	pipelines, err := DefaultPlan().Build()
	require.NoError(t, err)
	require.Len(t, pipelines, 2)

	recipes := pipelines[0]
	assert.Equal(t, "recipes", recipes.Table)
	require.Len(t, recipes.Rules, 3)
	assert.Equal(t, Completeness{Required: []string{"recipe_id", "user_id", "name", "servings", "difficulty", "prep_time_min"}}, recipes.Rules[0])
	assert.Equal(t, Membership{Column: "difficulty", Allowed: []string{"Easy", "Medium", "Hard"}}, recipes.Rules[1])
	assert.Equal(t, Range{Column: "cook_time_min", Min: 0, Max: 300}, recipes.Rules[2])

	users := pipelines[1]
	assert.Equal(t, "users", users.Table)
	assert.Equal(t, []Rule{Completeness{Required: []string{"user_id", "join_date"}}}, users.Rules)
}

func TestLoadPlan_OptInRules(t *testing.T) {
	src := `
tables:
  - table: steps
    rules:
      - type: unique
        columns: [recipe_id, step_number]
      - type: references
        column: recipe_id
        references: recipes.recipe_id
`
	p, err := LoadPlan(strings.NewReader(src))
	require.NoError(t, err)

	pipelines, err := p.Build()
	require.NoError(t, err)
	require.Len(t, pipelines[0].Rules, 2)
	assert.Equal(t, Unique{Keys: []string{"recipe_id", "step_number"}}, pipelines[0].Rules[0])
	assert.Equal(t, []string{"recipes"}, pipelines[0].Requires())
}

func TestLoadPlan_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"empty", ""},
		{"no tables", "tables: []"},
		{"unknown field", "tables:\n  - table: users\n    color: red\n"},
		{"unknown type", "tables:\n  - table: users\n    rules:\n      - type: regex\n"},
		{"missing type", "tables:\n  - table: users\n    rules:\n      - columns: [a]\n"},
		{"range without max", "tables:\n  - table: r\n    rules:\n      - type: range\n        column: c\n        min: 0\n"},
		{"range inverted", "tables:\n  - table: r\n    rules:\n      - type: range\n        column: c\n        min: 5\n        max: 1\n"},
		{"membership without allowed", "tables:\n  - table: r\n    rules:\n      - type: membership\n        column: c\n"},
		{"bad reference", "tables:\n  - table: r\n    rules:\n      - type: references\n        column: c\n        references: recipes\n"},
		{"duplicate table", "tables:\n  - table: r\n  - table: r\n"},
		{"missing table name", "tables:\n  - rules: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPlan(strings.NewReader(tt.src))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrRuleConfig), "err = %v", err)
		})
	}
}

func TestLoadPlanFile(t *testing.T) {
	p, err := LoadPlanFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPlan(), p)

	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables:\n  - table: users\n    rules:\n      - type: completeness\n        columns: [user_id]\n"), 0o644))

	p, err = LoadPlanFile(path)
	require.NoError(t, err)
	require.Len(t, p.Tables, 1)

	_, err = LoadPlanFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPlan_MarshalRoundTrip(t *testing.T) {
	out, err := DefaultPlan().Marshal()
	require.NoError(t, err)

	back, err := LoadPlan(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, DefaultPlan(), back)
}

func TestPlan_WithRangeMax(t *testing.T) {
	base := DefaultPlan()

	p := base.WithRangeMax("recipes", "cook_time_min", 120)

	pipelines, err := p.Build()
	require.NoError(t, err)
	assert.Equal(t, Range{Column: "cook_time_min", Min: 0, Max: 120}, pipelines[0].Rules[2])

	orig, err := base.Build()
	require.NoError(t, err)
	assert.Equal(t, Range{Column: "cook_time_min", Min: 0, Max: 300}, orig[0].Rules[2], "base plan must be unchanged")
}
