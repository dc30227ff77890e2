package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	case reflect.Ptr:
		// Optional values stay nil unless the variable is set
		elem := reflect.New(field.Type().Elem())
		if err := setField(elem.Elem(), value); err != nil {
			return err
		}
		field.Set(elem)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if c.Data.Dir == "" {
		errs = append(errs, "DATA_DIR must not be empty")
	}

	// Source validation
	switch c.Source.Kind {
	case SourceFile:
		if c.Source.Dir == "" {
			errs = append(errs, "SOURCE_DIR is required when SOURCE_KIND=file")
		}
	case SourcePostgres:
		if c.Source.DatabaseURL == "" {
			errs = append(errs, "SOURCE_DATABASE_URL is required when SOURCE_KIND=postgres")
		}
		if !validIdentifier(c.Source.Table) {
			errs = append(errs, fmt.Sprintf("SOURCE_TABLE (%q) must be a plain identifier", c.Source.Table))
		}
	default:
		errs = append(errs, fmt.Sprintf("SOURCE_KIND (%q) must be one of: file, postgres", c.Source.Kind))
	}

	// Database pool validation
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Quality validation
	if c.Quality.MaxCookTimeMin != nil && *c.Quality.MaxCookTimeMin <= 0 {
		errs = append(errs, "MAX_COOK_TIME_MIN must be positive")
	}

	// Publish validation
	for _, t := range c.Publish.Targets {
		switch t {
		case TargetPostgres:
			if c.Publish.DatabaseURL == "" {
				errs = append(errs, "PUBLISH_DATABASE_URL is required for the postgres target")
			}
			if !validIdentifier(c.Publish.Schema) {
				errs = append(errs, fmt.Sprintf("PUBLISH_SCHEMA (%q) must be a plain identifier", c.Publish.Schema))
			}
		case TargetSQLite:
			if c.Publish.SQLitePath == "" {
				errs = append(errs, "PUBLISH_SQLITE_PATH is required for the sqlite target")
			}
		case TargetS3:
			if c.Publish.S3Bucket == "" {
				errs = append(errs, "PUBLISH_S3_BUCKET is required for the s3 target")
			}
		default:
			errs = append(errs, fmt.Sprintf("PUBLISH_TARGETS entry %q must be one of: postgres, sqlite, s3", t))
		}
	}
	if c.Publish.Timeout <= 0 {
		errs = append(errs, "PUBLISH_TIMEOUT must be positive")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// validIdentifier accepts names safe to splice into SQL after quoting:
// letters, digits and underscores, not starting with a digit.
func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// String returns a safe string representation of the config for logging.
// Connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Data: {Dir: %q}, ", c.Data.Dir)
	fmt.Fprintf(&b, "Source: {Kind: %q, Dir: %q, DatabaseURL: %s, Table: %q}, ",
		c.Source.Kind, c.Source.Dir, mask(c.Source.DatabaseURL), c.Source.Table)
	cookTime := "plan"
	if c.Quality.MaxCookTimeMin != nil {
		cookTime = strconv.FormatFloat(*c.Quality.MaxCookTimeMin, 'g', -1, 64)
	}
	fmt.Fprintf(&b, "Quality: {RulesFile: %q, MaxCookTimeMin: %s}, ",
		c.Quality.RulesFile, cookTime)
	fmt.Fprintf(&b, "Publish: {Targets: %v, DatabaseURL: %s, SQLitePath: %q, S3Bucket: %q}, ",
		c.Publish.Targets, mask(c.Publish.DatabaseURL), c.Publish.SQLitePath, c.Publish.S3Bucket)
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}", c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

func mask(s string) string {
	if s == "" {
		return `""`
	}
	return "[MASKED]"
}
