// Package config provides application configuration management with multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.sessionvault/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Storage: backend selection and location (see storage.go for PostgreSQL DSN helpers)
//   - Artifacts: compression threshold and size ceiling
//   - Cache: hot-metadata LRU capacity
//   - Events: notification bus buffer size
//   - Logging: level and output format
//
// Security: the PostgreSQL password is never logged; the config directory uses 0750 permissions.
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBackend indicates the storage backend is not supported.
	ErrInvalidBackend = errors.New("invalid storage backend")

	// ErrInvalidDataDir indicates the data directory is invalid.
	ErrInvalidDataDir = errors.New("invalid data directory")

	// ErrInvalidThreshold indicates the compression threshold is out of range.
	ErrInvalidThreshold = errors.New("invalid compression threshold")

	// ErrInvalidMaxArtifactSize indicates the artifact size ceiling is out of range.
	ErrInvalidMaxArtifactSize = errors.New("invalid max artifact size")

	// ErrInvalidCacheCapacity indicates the cache capacity is negative.
	ErrInvalidCacheCapacity = errors.New("invalid cache capacity")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

// Storage backend identifiers used in Config.Backend.
const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory" // volatile, testing and throwaway runs only
)

// Config stores application configuration.
// SECURITY: Sensitive fields are explicitly masked in MarshalJSON().
// When adding new sensitive fields (passwords, tokens), update MarshalJSON.
type Config struct {
	// Storage backend configuration
	Backend string `mapstructure:"backend" json:"backend"`   // "sqlite" (default), "postgres", "memory"
	DataDir string `mapstructure:"data_dir" json:"data_dir"` // sqlite database location

	// Artifact configuration
	CompressionThreshold int64 `mapstructure:"compression_threshold" json:"compression_threshold"` // bytes; payloads above this are compression candidates
	MaxArtifactSize      int64 `mapstructure:"max_artifact_size" json:"max_artifact_size"`         // bytes; hard ceiling per artifact

	// Cache configuration
	CacheCapacity int `mapstructure:"cache_capacity" json:"cache_capacity"` // entries; 0 disables the cache

	// Event bus configuration
	EventBuffer int `mapstructure:"event_buffer" json:"event_buffer"` // notifications buffered before drops

	// PostgreSQL configuration (only used when backend is "postgres";
	// see storage.go for DSN helpers)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"` // "debug", "info", "warn", "error"
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".sessionvault")

	// Ensure directory exists (use 0750 permission for better security)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides individual postgres_* settings if set
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	// Storage defaults
	viper.SetDefault("backend", BackendSQLite)
	viper.SetDefault("data_dir", filepath.Join(configDir, "data"))

	// Artifact defaults: 10 KiB compression threshold, 100 MiB ceiling
	viper.SetDefault("compression_threshold", 10*1024)
	viper.SetDefault("max_artifact_size", 100*1024*1024)

	// Cache and event defaults
	viper.SetDefault("cache_capacity", 100)
	viper.SetDefault("event_buffer", 256)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "sessionvault")
	viper.SetDefault("postgres_password", "sessionvault_dev_password")
	viper.SetDefault("postgres_db_name", "sessionvault")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables() {
	// Helper to panic on unexpected bind errors (hardcoded strings can't fail)
	// If this panics, it's a BUG in our code, not a runtime error
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("backend", "SESSIONVAULT_BACKEND")
	mustBind("data_dir", "SESSIONVAULT_DATA_DIR")
	mustBind("cache_capacity", "SESSIONVAULT_CACHE_CAPACITY")
	mustBind("log_level", "SESSIONVAULT_LOG_LEVEL")
	mustBind("log_json", "SESSIONVAULT_LOG_JSON")
	mustBind("postgres_password", "SESSIONVAULT_POSTGRES_PASSWORD")

	// NOTE: DATABASE_URL is read directly in parseDatabaseURL, not via Viper
}

// maskedValue is the placeholder for masked sensitive data.
// Using ████████ (full-width blocks U+2588) to avoid substring matching
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging.
// Shows first 2 and last 2 characters, masks the rest.
// SECURITY: For secrets <=8 chars, fully masks to prevent substring attacks.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field masking.
//
// Sensitive fields masked:
//   - PostgresPassword
//
// When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}

// LogLevelSlog maps the configured level string to a slog.Level.
// Unknown values fall back to Info.
func (c *Config) LogLevelSlog() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
