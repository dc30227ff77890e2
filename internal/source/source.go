// Package source reads hierarchical documents from a document store.
//
// Documents are opaque key-value maps. A collection that does not exist
// yields no documents rather than an error.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/JonMunkholm/recipeflow/internal/core"
)

// Collections read by the extract run.
const (
	CollectionRecipes      = "recipes"
	CollectionUsers        = "users"
	CollectionInteractions = "interactions"
)

// Source yields the documents of a collection in store order.
type Source interface {
	Documents(ctx context.Context, collection string) ([]core.Document, error)
}

// decodeDocument parses one JSON object. Numbers are kept as json.Number so
// identifiers are never rounded through float64.
func decodeDocument(raw []byte) (core.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var doc core.Document
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document is null")
	}
	return doc, nil
}
