// Package core provides the domain model shared by every stage of the
// recipe pipeline.
//
// It does no IO: sources, file storage, publishing and the
// HTTP surface live in their own packages and exchange data through the
// types defined here.
//
// # Tables
//
// A [Table] is a fixed column set plus rows of nullable text cells. Typed
// records ([RecipeRow], [IngredientRow], [StepRow], [UserRow],
// [InteractionRow]) implement [Record] and are turned into tables with
// [TableOf]. Missing values are cells with Valid=false, never absent keys.
//
// # Table Registry
//
// Tables are registered at init time using [Register] (see the tables
// subpackage):
//
//	core.Register(core.TableDefinition{
//	    Info: core.TableInfo{Key: "steps", Group: "catalog", Label: "Steps",
//	        Parent: "recipes", ForeignKey: "recipe_id"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "recipe_id", Type: core.FieldText, Key: true},
//	        {Name: "step_number", Type: core.FieldInteger, Key: true},
//	        {Name: "instruction", Type: core.FieldText},
//	    },
//	})
//
// # Documents
//
// Raw documents from the document store are [Document] values. The Decode*
// functions convert them into typed documents without ever failing; every
// missing or unusable field becomes null.
//
// # Timestamps
//
// Every timestamp written to a table uses [TimestampLayout] and parses back
// with [ParseTimestamp].
package core
