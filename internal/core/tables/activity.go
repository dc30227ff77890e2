package tables

import "github.com/JonMunkholm/recipeflow/internal/core"

// InteractionTypes are the interaction kinds the app records.
var InteractionTypes = []string{"view", "like", "cook_attempt", core.InteractionRating}

func init() {
	registerUsers()
	registerInteractions()
}

func registerUsers() {
	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   core.TableUsers,
			Group: "activity",
			Label: "Users",
		},
		FieldSpecs: specs(core.UserColumns, map[string]core.FieldType{
			"join_date": core.FieldTimestamp,
		}, "user_id"),
	})
}

func registerInteractions() {
	fields := specs(core.InteractionColumns, map[string]core.FieldType{
		"interaction_type": core.FieldEnum,
		"timestamp":        core.FieldTimestamp,
		"value":            core.FieldNumeric,
	}, "interaction_id")

	for i := range fields {
		if fields[i].Name == "interaction_type" {
			fields[i].EnumValues = InteractionTypes
		}
	}

	core.Register(core.TableDefinition{
		Info: core.TableInfo{
			Key:   core.TableInteractions,
			Group: "activity",
			Label: "Interactions",
		},
		FieldSpecs: fields,
	})
}
