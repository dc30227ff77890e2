package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/recipeflow/internal/core"
	"github.com/JonMunkholm/recipeflow/internal/logging"
	"github.com/JonMunkholm/recipeflow/internal/quality"
)

// ValidateResult summarizes a validation run.
type ValidateResult struct {
	RunID      string           `json:"run_id"`
	FinishedAt time.Time        `json:"finished_at"`
	Reports    []quality.Report `json:"reports"`
}

// Cleaned returns the number of tables that were validated and rewritten.
func (r ValidateResult) Cleaned() int {
	n := 0
	for _, rep := range r.Reports {
		if !rep.Skipped && !rep.Failed() {
			n++
		}
	}
	return n
}

// Validate runs every pipeline of the plan. Tables are independent: a missing
// or empty input skips its own table, and a schema mismatch fails its own table, while
// the others proceed. Only tables that pass through their whole pipeline are
// rewritten. The returned error joins every table failure.
func (s *Service) Validate(ctx context.Context) (ValidateResult, error) {
	if err := s.gate.acquire(ctx); err != nil {
		return ValidateResult{}, err
	}
	defer s.gate.release()

	res := ValidateResult{RunID: s.newRunID()}
	ctx = logging.WithRunID(ctx, res.RunID)
	logger := logging.FromContext(ctx)

	pipelines, err := s.plan.Build()
	if err != nil {
		return res, err
	}
	ordered, err := orderPipelines(pipelines)
	if err != nil {
		return res, err
	}

	logger.Info("validation started", "tables", len(ordered))

	inPlan := make(map[string]bool, len(ordered))
	for _, p := range ordered {
		inPlan[p.Table] = true
	}

	// available holds the tables other pipelines may reference: clean output
	// for planned tables, raw files for the rest.
	available := make(map[string]*core.Table)
	var errs []error

	for _, p := range ordered {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		report, err := s.validateTable(ctx, p, inPlan, available)
		res.Reports = append(res.Reports, report)
		if err != nil {
			errs = append(errs, err)
		}
	}

	if allSkipped(res.Reports) {
		logger.Warn("no input tables available, nothing written")
	}

	res.FinishedAt = time.Now().UTC()
	s.mu.Lock()
	latest := res
	s.latest = &latest
	s.mu.Unlock()

	logger.Info("validation complete", "cleaned", res.Cleaned(), "tables", len(res.Reports))
	return res, errors.Join(errs...)
}

func (s *Service) validateTable(ctx context.Context, p quality.Pipeline, inPlan map[string]bool, available map[string]*core.Table) (quality.Report, error) {
	logger := logging.WithFields(ctx, "table", p.Table)

	t, err := s.store.Load(p.Table)
	if err == nil && t.Len() == 0 {
		err = fmt.Errorf("load %s: %w", p.Table, core.ErrTableEmpty)
	}
	if errors.Is(err, core.ErrTableMissing) || errors.Is(err, core.ErrTableEmpty) {
		logger.Warn("input table unavailable, skipping", "error", err)
		return quality.SkippedReport(p.Table, core.MapError(err).Message), nil
	}
	if err != nil {
		logger.Error("input table unreadable", "error", err)
		return quality.Report{Table: p.Table, Error: err.Error()}, err
	}

	for _, dep := range p.Requires() {
		if _, ok := available[dep]; ok {
			continue
		}
		if dep == p.Table {
			available[dep] = t
			continue
		}
		if inPlan[dep] {
			reason := fmt.Sprintf("references table %s, which was not cleaned", dep)
			logger.Warn("dependency unavailable, skipping", "reason", reason)
			return quality.SkippedReport(p.Table, reason), nil
		}
		parent, err := s.store.Load(dep)
		if err != nil {
			reason := fmt.Sprintf("references table %s, which is unavailable", dep)
			logger.Warn("dependency unavailable, skipping", "reason", reason, "error", err)
			return quality.SkippedReport(p.Table, reason), nil
		}
		available[dep] = parent
	}

	if err := p.Bind(available); err != nil {
		logger.Error("rule binding failed", "error", err)
		return quality.Report{Table: p.Table, Input: t.Len(), Error: err.Error()}, err
	}

	clean, report, err := p.Run(ctx, t)
	if err != nil {
		logger.Error("validation failed, table not written", "error", err)
		report.Error = err.Error()
		return report, err
	}

	if err := s.store.Save(p.Table, clean); err != nil {
		logger.Error("write failed", "error", err)
		report.Error = err.Error()
		return report, err
	}

	available[p.Table] = clean
	return report, nil
}

// orderPipelines places every pipeline after the planned tables it
// references, keeping plan order otherwise.
func orderPipelines(pipelines []quality.Pipeline) ([]quality.Pipeline, error) {
	planned := make(map[string]bool, len(pipelines))
	for _, p := range pipelines {
		planned[p.Table] = true
	}

	done := make(map[string]bool, len(pipelines))
	ordered := make([]quality.Pipeline, 0, len(pipelines))
	remaining := pipelines

	for len(remaining) > 0 {
		var next []quality.Pipeline
		for _, p := range remaining {
			ready := true
			for _, dep := range p.Requires() {
				if planned[dep] && !done[dep] && dep != p.Table {
					ready = false
					break
				}
			}
			if ready {
				ordered = append(ordered, p)
				done[p.Table] = true
			} else {
				next = append(next, p)
			}
		}
		if len(next) == len(remaining) {
			return nil, fmt.Errorf("%w: circular references between tables %s", core.ErrRuleConfig, tableNames(next))
		}
		remaining = next
	}

	return ordered, nil
}

func tableNames(pipelines []quality.Pipeline) []string {
	out := make([]string, len(pipelines))
	for i, p := range pipelines {
		out[i] = p.Table
	}
	return out
}

func allSkipped(reports []quality.Report) bool {
	for _, r := range reports {
		if !r.Skipped {
			return false
		}
	}
	return true
}
