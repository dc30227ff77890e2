// Package config provides centralized configuration management for recipeflow.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Source kinds.
const (
	SourceFile     = "file"
	SourcePostgres = "postgres"
)

// Publish targets.
const (
	TargetPostgres = "postgres"
	TargetSQLite   = "sqlite"
	TargetS3       = "s3"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Data     DataConfig
	Source   SourceConfig
	Database DatabaseConfig
	Quality  QualityConfig
	Publish  PublishConfig
	Server   ServerConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// DataConfig holds the location of the table files.
type DataConfig struct {
	// Dir is the directory holding one CSV file per table (default: output)
	Dir string `env:"DATA_DIR" default:"output"`
}

// SourceConfig selects where hierarchical documents are read from.
type SourceConfig struct {
	// Kind is "file" or "postgres" (default: file)
	Kind string `env:"SOURCE_KIND" default:"file"`

	// Dir holds <collection>.json files when Kind is "file" (default: data)
	Dir string `env:"SOURCE_DIR" default:"data"`

	// DatabaseURL is the document database when Kind is "postgres".
	// Falls back to DATABASE_URL.
	DatabaseURL string `env:"SOURCE_DATABASE_URL" envAlt:"DATABASE_URL"`

	// Table is the jsonb document table (default: documents)
	Table string `env:"SOURCE_TABLE" default:"documents"`
}

// DatabaseConfig holds connection pool settings shared by every PostgreSQL pool.
type DatabaseConfig struct {
	// MaxConns is the maximum number of connections in a pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// QualityConfig holds data-quality gate settings.
type QualityConfig struct {
	// RulesFile is an optional YAML rule plan replacing the built-in one
	RulesFile string `env:"RULES_FILE"`

	// MaxCookTimeMin overrides the plan's inclusive upper bound for
	// cook_time_min. Nil keeps the bound from the rule plan (built-in: 300).
	MaxCookTimeMin *float64 `env:"MAX_COOK_TIME_MIN"`
}

// PublishConfig holds downstream target settings.
type PublishConfig struct {
	// Targets is a comma-separated list of postgres, sqlite, s3
	Targets []string `env:"PUBLISH_TARGETS"`

	// DatabaseURL is the PostgreSQL database receiving clean tables
	DatabaseURL string `env:"PUBLISH_DATABASE_URL"`

	// Schema is the PostgreSQL schema receiving clean tables (default: public)
	Schema string `env:"PUBLISH_SCHEMA" default:"public"`

	// SQLitePath is the SQLite database file (default: output/recipes.db)
	SQLitePath string `env:"PUBLISH_SQLITE_PATH" default:"output/recipes.db"`

	// S3Bucket receives one CSV object per table
	S3Bucket string `env:"PUBLISH_S3_BUCKET"`

	// S3Region is the bucket's region (default: us-east-1)
	S3Region string `env:"PUBLISH_S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// S3Endpoint overrides the endpoint for S3-compatible stores (MinIO)
	S3Endpoint string `env:"PUBLISH_S3_ENDPOINT"`

	// S3Prefix is prepended to every object key
	S3Prefix string `env:"PUBLISH_S3_PREFIX"`

	// Timeout bounds a whole publish run (default: 5m)
	Timeout time.Duration `env:"PUBLISH_TIMEOUT" default:"5m"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// SecurityConfig holds HTTP security settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey guards state-changing endpoints with X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HasTarget reports whether name is one of the configured publish targets.
func (c *PublishConfig) HasTarget(name string) bool {
	for _, t := range c.Targets {
		if t == name {
			return true
		}
	}
	return false
}
