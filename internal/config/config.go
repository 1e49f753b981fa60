// Package config defines all configuration structures for the molgnn
// service. No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"

	"github.com/turtacn/molgnn/internal/gnn"
	"github.com/turtacn/molgnn/internal/infrastructure/artifact"
	"github.com/turtacn/molgnn/internal/infrastructure/monitoring/logging"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// StorageConfig selects where pretrained checkpoints come from.
type StorageConfig struct {
	// Backend is "local" or "minio".
	Backend string `mapstructure:"backend"`
	// LocalDir is the checkpoint directory for the local backend.
	LocalDir string `mapstructure:"local_dir"`
	// MinIO configures the object-storage backend.
	MinIO artifact.MinIOConfig `mapstructure:"minio"`
}

// MetricsConfig holds the Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
}

// Config is the root configuration tree.
type Config struct {
	Model   gnn.ModelConfig   `mapstructure:"model"`
	Storage StorageConfig     `mapstructure:"storage"`
	Log     logging.LogConfig `mapstructure:"log"`
	Metrics MetricsConfig     `mapstructure:"metrics"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate checks cross-field constraints that the zero-value defaults can't
// express. Model parameters get their deep validation at model construction;
// only fast sanity checks live here.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("config: storage.local_dir is required for the local backend")
		}
	case "minio":
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("config: storage.minio.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q (want local or minio)", c.Storage.Backend)
	}

	if c.Model.BatchSize < 0 {
		return fmt.Errorf("config: model.batch_size must not be negative")
	}
	if c.Model.Epochs < 0 {
		return fmt.Errorf("config: model.epochs must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("config: metrics.addr is required when metrics are enabled")
	}
	return nil
}
