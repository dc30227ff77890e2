package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/recipeflow/internal/config"
	"github.com/JonMunkholm/recipeflow/internal/pipeline"
	"github.com/JonMunkholm/recipeflow/internal/publish"
	"github.com/JonMunkholm/recipeflow/internal/quality"
	"github.com/JonMunkholm/recipeflow/internal/source"
	"github.com/JonMunkholm/recipeflow/internal/tablefile"
)

// needs selects which external connections a command opens.
type needs int

const (
	needSource needs = 1 << iota
	needPublishers
)

// app owns the service and the connections behind it.
type app struct {
	service *pipeline.Service
	closers []func()
}

// Close releases connections in reverse order of opening.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, n needs) (*app, error) {
	a := &app{}

	plan, err := loadPlan(cfg)
	if err != nil {
		return nil, err
	}
	opts := []pipeline.Option{pipeline.WithPlan(plan)}

	if n&needSource != 0 {
		src, err := a.openSource(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithSource(src))
	}

	if n&needPublishers != 0 {
		pubs, err := a.openPublishers(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, pipeline.WithPublishers(pubs...))
	}

	a.service = pipeline.NewService(tablefile.NewStore(cfg.Data.Dir), opts...)
	return a, nil
}

// loadPlan reads RULES_FILE (or the built-in plan) and applies the
// MAX_COOK_TIME_MIN override when it is set.
func loadPlan(cfg *config.Config) (quality.Plan, error) {
	plan, err := quality.LoadPlanFile(cfg.Quality.RulesFile)
	if err != nil {
		return quality.Plan{}, err
	}
	if bound := cfg.Quality.MaxCookTimeMin; bound != nil {
		slog.Debug("overriding cook time bound", "max", *bound)
		plan = plan.WithRangeMax("recipes", "cook_time_min", *bound)
	}
	if _, err := plan.Build(); err != nil {
		return quality.Plan{}, err
	}
	return plan, nil
}

func (a *app) openSource(ctx context.Context, cfg *config.Config) (source.Source, error) {
	switch cfg.Source.Kind {
	case config.SourcePostgres:
		pool, err := a.openPool(ctx, cfg.Source.DatabaseURL, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("document source: %w", err)
		}
		return source.NewPostgresSource(pool, cfg.Source.Table), nil
	default:
		slog.Debug("reading documents from files", "dir", cfg.Source.Dir)
		return source.NewFileSource(cfg.Source.Dir), nil
	}
}

func (a *app) openPublishers(ctx context.Context, cfg *config.Config) ([]publish.Publisher, error) {
	var pubs []publish.Publisher

	if cfg.Publish.HasTarget(config.TargetPostgres) {
		pool, err := a.openPool(ctx, cfg.Publish.DatabaseURL, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("publish postgres: %w", err)
		}
		pubs = append(pubs, publish.NewPostgres(pool, cfg.Publish.Schema))
	}

	if cfg.Publish.HasTarget(config.TargetSQLite) {
		db, err := publish.OpenSQLite(cfg.Publish.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { db.Close() })
		pubs = append(pubs, publish.NewSQLite(db))
	}

	if cfg.Publish.HasTarget(config.TargetS3) {
		s3, err := publish.NewS3(ctx, publish.S3Config{
			Bucket:   cfg.Publish.S3Bucket,
			Region:   cfg.Publish.S3Region,
			Endpoint: cfg.Publish.S3Endpoint,
			Prefix:   cfg.Publish.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("publish s3: %w", err)
		}
		pubs = append(pubs, s3)
	}

	return pubs, nil
}

// openPool connects a pgx pool with the shared pool settings and pings it.
func (a *app) openPool(ctx context.Context, dsn string, db config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(db.MaxConns)
	poolConfig.MinConns = int32(db.MinConns)
	poolConfig.MaxConnLifetime = db.MaxConnLifetime
	poolConfig.MaxConnIdleTime = db.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	a.closers = append(a.closers, pool.Close)

	if u, err := url.Parse(dsn); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}
	return pool, nil
}
