package tables

import (
	"testing"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

func TestRegisteredTables(t *testing.T) {
	want := map[string][]string{
		core.TableRecipes:      core.RecipeColumns,
		core.TableIngredients:  core.IngredientColumns,
		core.TableSteps:        core.StepColumns,
		core.TableUsers:        core.UserColumns,
		core.TableInteractions: core.InteractionColumns,
	}

	if core.TableCount() != len(want) {
		t.Fatalf("TableCount() = %d, want %d", core.TableCount(), len(want))
	}

	for key, cols := range want {
		def, ok := core.Get(key)
		if !ok {
			t.Errorf("table %q not registered", key)
			continue
		}
		if def.Info.FileName != key+".csv" {
			t.Errorf("%s FileName = %q, want %q", key, def.Info.FileName, key+".csv")
		}
		if len(def.Info.Columns) != len(cols) {
			t.Fatalf("%s has %d columns, want %d", key, len(def.Info.Columns), len(cols))
		}
		for i, c := range cols {
			if def.Info.Columns[i] != c {
				t.Errorf("%s column %d = %q, want %q", key, i, def.Info.Columns[i], c)
			}
		}
	}
}

func TestChildTablesReferenceRecipes(t *testing.T) {
	var children []core.TableDefinition
	for _, def := range core.All() {
		if def.Info.Parent == core.TableRecipes {
			children = append(children, def)
		}
	}
	if len(children) != 2 {
		t.Fatalf("tables with parent recipes = %d, want 2", len(children))
	}
	for _, def := range children {
		if def.Info.ForeignKey != "recipe_id" {
			t.Errorf("%s ForeignKey = %q, want recipe_id", def.Info.Key, def.Info.ForeignKey)
		}
	}
}

func TestRecipeFieldTypes(t *testing.T) {
	def, _ := core.Get(core.TableRecipes)

	tests := []struct {
		column string
		want   core.FieldType
	}{
		{"recipe_id", core.FieldText},
		{"servings", core.FieldInteger},
		{"cook_time_min", core.FieldInteger},
		{"difficulty", core.FieldEnum},
		{"created_at", core.FieldTimestamp},
	}

	for _, tt := range tests {
		spec, ok := def.Spec(tt.column)
		if !ok {
			t.Errorf("Spec(%q) not found", tt.column)
			continue
		}
		if spec.Type != tt.want {
			t.Errorf("Spec(%q).Type = %v, want %v", tt.column, spec.Type, tt.want)
		}
	}

	spec, _ := def.Spec("difficulty")
	if len(spec.EnumValues) != 3 {
		t.Errorf("difficulty EnumValues = %v, want 3 values", spec.EnumValues)
	}
}
