package tables

import "github.com/JonMunkholm/recipeflow/internal/core"

// DifficultyLevels are the difficulty values recipes are expected to use.
var DifficultyLevels = []string{"Easy", "Medium", "Hard"}

func init() {
	registerRecipes()
	registerIngredients()
	registerSteps()
}

func registerRecipes() {
	fields := specs(core.RecipeColumns, map[string]core.FieldType{
		"servings":      core.FieldInteger,
		"prep_time_min": core.FieldInteger,
		"cook_time_min": core.FieldInteger,
		"difficulty":    core.FieldEnum,
		"created_at":    core.FieldTimestamp,
	}, "recipe_id")

	for i := range fields {
		if fields[i].Name == "difficulty" {
			fields[i].EnumValues = DifficultyLevels
		}
	}

	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   core.TableRecipes,
			Group: "catalog",
			Label: "Recipes",
		},
		FieldSpecs: fields,
	})
}

func registerIngredients() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:        core.TableIngredients,
			Group:      "catalog",
			Label:      "Ingredients",
			Parent:     core.TableRecipes,
			ForeignKey: "recipe_id",
		},
		FieldSpecs: specs(core.IngredientColumns, map[string]core.FieldType{
			"quantity": core.FieldNumeric,
		}),
	})
}

func registerSteps() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:        core.TableSteps,
			Group:      "catalog",
			Label:      "Steps",
			Parent:     core.TableRecipes,
			ForeignKey: "recipe_id",
		},
		FieldSpecs: specs(core.StepColumns, map[string]core.FieldType{
			"step_number": core.FieldInteger,
		}, "recipe_id", "step_number"),
	})
}
