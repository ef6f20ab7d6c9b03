package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is prepended to every variable, e.g. LINKSTORE_DATABASE_URL.
// envconfig falls back to the bare name (DATABASE_URL) when the prefixed one
// is unset.
const EnvPrefix = "LINKSTORE"

type Config struct {
	Database DatabaseConfig
	App      AppConfig
	Fetch    FetchConfig
}

// DatabaseConfig holds storage connection settings.
type DatabaseConfig struct {
	// URL is a file path, a file: URI, :memory:, or a libsql:// URL.
	// Empty means DefaultDatabaseURL().
	URL             string        `envconfig:"DATABASE_URL"`
	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	BusyTimeout     time.Duration `envconfig:"DB_BUSY_TIMEOUT" default:"5s"`
}

func (c *DatabaseConfig) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return fmt.Errorf("database url cannot be empty")
	}
	if c.MaxOpenConns <= 0 {
		return fmt.Errorf("max open connections must be positive")
	}
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("max idle connections cannot be negative")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return fmt.Errorf("max idle connections (%d) cannot be greater than max open connections (%d)", c.MaxIdleConns, c.MaxOpenConns)
	}
	if c.ConnMaxLifetime < 0 {
		return fmt.Errorf("connection max lifetime cannot be negative")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy timeout cannot be negative")
	}
	return nil
}

// IsRemote reports whether URL points at a libsql server.
func (c *DatabaseConfig) IsRemote() bool {
	return strings.HasPrefix(c.URL, "libsql://") || strings.HasPrefix(c.URL, "wss://")
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment string `envconfig:"APP_ENV" default:"production"` // development, production, test
	LogLevel    string `envconfig:"LOG_LEVEL" default:"warn"`     // debug, info, warn, error
	TopDomains  int    `envconfig:"TOP_DOMAINS" default:"10"`
	SearchLimit int    `envconfig:"SEARCH_LIMIT" default:"50"`
}

func (c *AppConfig) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"production":  true,
		"test":        true,
	}
	if !validEnvs[c.Environment] {
		return fmt.Errorf("invalid environment: %s (must be one of: development, production, test)", c.Environment)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	if c.TopDomains <= 0 {
		return fmt.Errorf("top domains must be positive")
	}
	if c.SearchLimit < 0 {
		return fmt.Errorf("search limit cannot be negative")
	}
	return nil
}

// FetchConfig controls page description fetching during import.
type FetchConfig struct {
	Timeout     time.Duration `envconfig:"FETCH_TIMEOUT" default:"10s"`
	Concurrency int           `envconfig:"FETCH_CONCURRENCY" default:"4"`
	UserAgent   string        `envconfig:"FETCH_USER_AGENT" default:"Mozilla/5.0 (compatible; linkstore/1.0)"`
}

func (c *FetchConfig) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("fetch timeout must be positive")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("fetch concurrency must be positive")
	}
	return nil
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env not found

	cfg := &Config{}

	if err := envconfig.Process(EnvPrefix, &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to load Database config: %w", err)
	}
	if cfg.Database.URL == "" {
		cfg.Database.URL = DefaultDatabaseURL()
	}
	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Database config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg.App); err != nil {
		return nil, fmt.Errorf("failed to load App config: %w", err)
	}
	if err := cfg.App.Validate(); err != nil {
		return nil, fmt.Errorf("invalid App config: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg.Fetch); err != nil {
		return nil, fmt.Errorf("failed to load Fetch config: %w", err)
	}
	if err := cfg.Fetch.Validate(); err != nil {
		return nil, fmt.Errorf("invalid Fetch config: %w", err)
	}

	return cfg, nil
}

// DefaultDatabaseURL is ~/.linkstore/links.db, or links.db in the working
// directory when the home directory is unknown.
func DefaultDatabaseURL() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "links.db"
	}
	return filepath.Join(home, ".linkstore", "links.db")
}
