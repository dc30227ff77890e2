package pipeline

import (
	"context"
	"errors"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/logging"
)

// PublishResult summarizes a publish run.
type PublishResult struct {
	RunID string `json:"run_id"`
	// Published maps table key to the targets that accepted it.
	Published map[string][]string `json:"published"`
	// Missing lists registered tables with no file.
	Missing []string `json:"missing,omitempty"`
}

// Publish sends every present table to every configured target. A missing
// table is skipped with a warning; a target failure does not stop the others.
func (s *Service) Publish(ctx context.Context) (PublishResult, error) {
	if err := s.gate.acquire(ctx); err != nil {
		return PublishResult{}, err
	}
	defer s.gate.release()

	res := PublishResult{RunID: s.newRunID(), Published: make(map[string][]string)}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.FromContext(ctx)

	if len(s.publishers) == 0 {
		logger.Warn("no publish targets configured")
		return res, nil
	}

	var errs []error
	for _, def := range core.All() {
		key := def.Info.Key

		t, err := s.store.Load(key)
		if errors.Is(err, core.ErrTableMissing) || errors.Is(err, core.ErrTableEmpty) {
			logger.Warn("table unavailable, not published", "table", key)
			res.Missing = append(res.Missing, key)
			continue
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, pub := range s.publishers {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			if err := pub.Publish(ctx, t); err != nil {
				logger.Error("publish failed", "table", key, "target", pub.Name(), "error", err)
				errs = append(errs, err)
				continue
			}
			res.Published[key] = append(res.Published[key], pub.Name())
			logger.Info("table published", "table", key, "target", pub.Name(), "rows", t.Len())
		}
	}

	return res, errors.Join(errs...)
}
