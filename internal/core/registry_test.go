package core

import "testing"

func withCleanRegistry(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
}

func TestRegister_DerivesColumnsAndFileName(t *testing.T) {
	withCleanRegistry(t)

	Register(TableDefinition{
		Info: TableInfo{Key: "steps", Group: "catalog", Parent: "recipes", ForeignKey: "recipe_id"},
		FieldSpecs: []FieldSpec{
			{Name: "recipe_id"},
			{Name: "step_number", Type: FieldInteger},
		},
	})

	def, ok := Get("steps")
	if !ok {
		t.Fatal("Get(steps) not found")
	}
	if len(def.Info.Columns) != 2 || def.Info.Columns[1] != "step_number" {
		t.Errorf("Columns = %v", def.Info.Columns)
	}
	if def.Info.FileName != "steps.csv" {
		t.Errorf("FileName = %q, want steps.csv", def.Info.FileName)
	}
	if len(Children("recipes")) != 1 {
		t.Errorf("Children(recipes) = %d, want 1", len(Children("recipes")))
	}
}

func TestRegister_DuplicatePanics(t *testing.T) {
	withCleanRegistry(t)

	def := TableDefinition{Info: TableInfo{Key: "users"}, FieldSpecs: []FieldSpec{{Name: "user_id"}}}
	Register(def)

	defer func() {
		if recover() == nil {
			t.Error("Register() of duplicate key did not panic")
		}
	}()
	Register(def)
}

func TestRegister_ColumnSpecMismatchPanics(t *testing.T) {
	withCleanRegistry(t)

	defer func() {
		if recover() == nil {
			t.Error("Register() with mismatched columns did not panic")
		}
	}()
	Register(TableDefinition{
		Info:       TableInfo{Key: "users", Columns: []string{"user_id", "region"}},
		FieldSpecs: []FieldSpec{{Name: "user_id"}, {Name: "join_date"}},
	})
}

func TestAll_SortedByGroupThenKey(t *testing.T) {
	withCleanRegistry(t)

	Register(TableDefinition{Info: TableInfo{Key: "users", Group: "activity"}, FieldSpecs: []FieldSpec{{Name: "user_id"}}})
	Register(TableDefinition{Info: TableInfo{Key: "steps", Group: "catalog"}, FieldSpecs: []FieldSpec{{Name: "recipe_id"}}})
	Register(TableDefinition{Info: TableInfo{Key: "recipes", Group: "catalog"}, FieldSpecs: []FieldSpec{{Name: "recipe_id"}}})

	all := All()
	want := []string{"users", "recipes", "steps"}
	for i, k := range want {
		if all[i].Info.Key != k {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].Info.Key, k)
		}
	}

	groups := Groups()
	if len(groups) != 2 || groups[0] != "activity" {
		t.Errorf("Groups() = %v", groups)
	}
}
