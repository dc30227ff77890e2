package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/flatten"
	"github.com/JonMunkholm/recipeflow/internal/logging"
	"github.com/JonMunkholm/recipeflow/internal/source"
)

// ExtractResult summarizes an extract run.
type ExtractResult struct {
	RunID string `json:"run_id"`
	// Written maps table key to rows written.
	Written map[string]int `json:"written"`
	// Skipped lists tables with no rows; their files were left untouched.
	Skipped []string `json:"skipped,omitempty"`
}

// Extract reads every collection from the source, flattens recipes and
// writes one file per non-empty table.
func (s *Service) Extract(ctx context.Context) (ExtractResult, error) {
	if s.source == nil {
		return ExtractResult{}, errors.New("document source: not configured")
	}
	if err := s.gate.acquire(ctx); err != nil {
		return ExtractResult{}, err
	}
	defer s.gate.release()

	res := ExtractResult{RunID: s.newRunID(), Written: make(map[string]int)}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.FromContext(ctx)
	logger.Info("extract started")

	recipeDocs, err := s.source.Documents(ctx, source.CollectionRecipes)
	if err != nil {
		return res, err
	}
	userDocs, err := s.source.Documents(ctx, source.CollectionUsers)
	if err != nil {
		return res, err
	}
	interactionDocs, err := s.source.Documents(ctx, source.CollectionInteractions)
	if err != nil {
		return res, err
	}

	logger.Info("documents read",
		"recipes", len(recipeDocs),
		"users", len(userDocs),
		"interactions", len(interactionDocs))

	flat := s.flattener.Documents(recipeDocs)
	tables := append(flat.Tables(),
		core.TableOf(core.TableUsers, core.UserColumns, flatten.Users(userDocs)),
		core.TableOf(core.TableInteractions, core.InteractionColumns, flatten.Interactions(interactionDocs)),
	)

	for _, t := range tables {
		if t.Len() == 0 {
			logger.Warn("no rows, file not written", "table", t.Key)
			res.Skipped = append(res.Skipped, t.Key)
			continue
		}
		if err := s.store.Save(t.Key, t); err != nil {
			return res, fmt.Errorf("extract: %w", err)
		}
		res.Written[t.Key] = t.Len()
		logger.Info("table written", "table", t.Key, "rows", t.Len())
	}

	logger.Info("extract complete", "tables", len(res.Written), "skipped", len(res.Skipped))
	return res, nil
}
