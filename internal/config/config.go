// Package config loads the configuration of the schemakit command.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/microsoft/go-mssqldb/msdsn"
	"gopkg.in/yaml.v3"

	"github.com/syssam/schemakit/dialect"
)

// EnvDSN overrides the configured DSN when set.
const EnvDSN = "SCHEMAKIT_DSN"

// Config is the configuration of the schemakit command.
type Config struct {
	// Dialect is one of mysql, postgres, sqlite, sqlserver or oracle.
	Dialect string `yaml:"dialect"`
	// Driver is the database/sql driver name. It defaults to the driver
	// registered for the dialect; Postgres accepts "postgres" or "pgx".
	Driver        string        `yaml:"driver"`
	DSN           string        `yaml:"dsn"`
	TablePrefix   string        `yaml:"table_prefix"`
	Schema        string        `yaml:"schema"`
	Username      string        `yaml:"username"`
	Cache         CacheConfig   `yaml:"cache"`
	LogLevel      string        `yaml:"log_level"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// CacheConfig configures the shared descriptor cache.
type CacheConfig struct {
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	TTL           time.Duration `yaml:"ttl"`
}

// drivers maps dialects to the database/sql drivers they may be opened with.
// The first one is the default.
var drivers = map[string][]string{
	dialect.MySQL:    {"mysql"},
	dialect.Postgres: {"postgres", "pgx"},
	dialect.SQLite:   {"sqlite"},
	dialect.MSSQL:    {"sqlserver"},
	dialect.Oracle:   {"oracle", "godror"},
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:      "info",
		SlowThreshold: 200 * time.Millisecond,
	}
}

// Option overrides a loaded configuration, such as with command line flags.
type Option func(*Config)

// WithDialect overrides the dialect. Empty values are ignored.
func WithDialect(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.Dialect = name
		}
	}
}

// WithDSN overrides the DSN and the environment. Empty values are ignored.
func WithDSN(dsn string) Option {
	return func(c *Config) {
		if dsn != "" {
			c.DSN = dsn
		}
	}
}

// WithLogLevel overrides the log level. Empty values are ignored.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.LogLevel = level
		}
	}
}

// Load reads a YAML configuration file. An empty path yields the default
// configuration. The environment and then opts are applied before
// validation.
func Load(path string, opts ...Option) (*Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		data = b
	}
	return Parse(data, opts...)
}

// Parse decodes YAML configuration data on top of the defaults.
func Parse(data []byte, opts ...Option) (*Config, error) {
	cfg := Default()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse: %w", err)
		}
	}
	if dsn := os.Getenv(EnvDSN); dsn != "" {
		cfg.DSN = dsn
	}
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.Dialect = dialect.Normalize(cfg.Dialect)
	if cfg.Driver == "" && len(drivers[cfg.Dialect]) > 0 {
		cfg.Driver = drivers[cfg.Dialect][0]
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	allowed, ok := drivers[c.Dialect]
	switch {
	case c.Dialect == "":
		errs = append(errs, errors.New("dialect is required"))
	case !ok:
		errs = append(errs, fmt.Errorf("unknown dialect %q", c.Dialect))
	case !slices.Contains(allowed, c.Driver):
		errs = append(errs, fmt.Errorf("driver %q cannot open dialect %s (use %s)", c.Driver, c.Dialect, strings.Join(allowed, " or ")))
	}
	if c.DSN == "" {
		errs = append(errs, fmt.Errorf("dsn is required (or set %s)", EnvDSN))
	} else if c.Dialect == dialect.MSSQL {
		if _, err := msdsn.Parse(c.DSN); err != nil {
			errs = append(errs, fmt.Errorf("invalid sqlserver dsn: %w", err))
		}
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	if c.SlowThreshold < 0 {
		errs = append(errs, errors.New("slow_threshold must not be negative"))
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, errors.New("cache.ttl must not be negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Level returns the slog level of LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}

// ConnectionID returns the DSN without credentials, identifying the
// database in shared cache keys.
func (c *Config) ConnectionID() string {
	dsn := c.DSN
	if i := strings.Index(dsn, "://"); i >= 0 {
		rest := dsn[i+3:]
		if at := strings.LastIndex(rest, "@"); at >= 0 {
			return dsn[:i+3] + rest[at+1:]
		}
		return dsn
	}
	// user:pass@tcp(host)/db
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		return dsn[at+1:]
	}
	return dsn
}
