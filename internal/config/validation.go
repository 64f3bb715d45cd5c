package config

import (
	"fmt"
	"log/slog"
	"slices"
)

// validSSLModes are the sslmode values pgx accepts.
var validSSLModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

// maxArtifactSizeLimit caps max_artifact_size; the artifact codec frames
// payload lengths in 32 bits.
const maxArtifactSizeLimit = 1 << 31 // 2 GiB

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	// 0. Check for nil config (defensive programming)
	if c == nil {
		return ErrConfigNil
	}

	// 1. Storage backend validation
	switch c.Backend {
	case BackendSQLite, BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("%w: must be one of sqlite, postgres, memory, got %q",
			ErrInvalidBackend, c.Backend)
	}

	if c.Backend == BackendSQLite && c.DataDir == "" {
		return fmt.Errorf("%w: data_dir cannot be empty with the sqlite backend",
			ErrInvalidDataDir)
	}

	// 2. Artifact configuration validation
	if c.CompressionThreshold < 0 {
		return fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidThreshold, c.CompressionThreshold)
	}
	if c.MaxArtifactSize < 1 {
		return fmt.Errorf("%w: must be >= 1, got %d", ErrInvalidMaxArtifactSize, c.MaxArtifactSize)
	}
	if c.MaxArtifactSize > maxArtifactSizeLimit {
		return fmt.Errorf("%w: must be <= %d, got %d",
			ErrInvalidMaxArtifactSize, int64(maxArtifactSizeLimit), c.MaxArtifactSize)
	}
	if c.CompressionThreshold > c.MaxArtifactSize {
		return fmt.Errorf("%w: threshold %d exceeds max artifact size %d",
			ErrInvalidThreshold, c.CompressionThreshold, c.MaxArtifactSize)
	}

	// 3. Cache configuration validation (0 disables the cache)
	if c.CacheCapacity < 0 {
		return fmt.Errorf("%w: must be >= 0, got %d", ErrInvalidCacheCapacity, c.CacheCapacity)
	}

	// 4. PostgreSQL configuration validation (only when selected)
	if c.Backend == BackendPostgres {
		if c.PostgresHost == "" {
			return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
		}
		if c.PostgresPort < 1 || c.PostgresPort > 65535 {
			return fmt.Errorf("%w: must be between 1 and 65535, got %d",
				ErrInvalidPostgresPort, c.PostgresPort)
		}
		if c.PostgresDBName == "" {
			return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
		}
		if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
			return fmt.Errorf("%w: must be one of %v, got %q",
				ErrInvalidPostgresSSLMode, validSSLModes, c.PostgresSSLMode)
		}

		// Warn on the default dev password without blocking dev setups.
		if c.PostgresPassword == "sessionvault_dev_password" {
			slog.Warn("Using default development password for PostgreSQL",
				"warning", "Change postgres_password in config.yaml for production deployments")
		}
	}

	return nil
}
