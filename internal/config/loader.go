// Package config provides configuration loading, defaults, and validation
// for the molgnn service.
package config

import (
	"fmt"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix used by all settings.
const envPrefix = "MOLGNN"

// newViper builds a pre-configured Viper instance with the standard settings:
// YAML file type, MOLGNN_ env prefix, automatic env binding, and a key
// replacer that maps "." to "_" so that nested keys like "storage.backend"
// resolve to "MOLGNN_STORAGE_BACKEND".
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerKeys(v)
	return v
}

// registerKeys declares every known key so that environment-only values are
// visible to Unmarshal. Viper ignores env vars for keys it has never seen.
func registerKeys(v *viper.Viper) {
	for _, key := range []string{
		"model.model_type", "model.task", "model.device",
		"model.num_workers", "model.batch_size", "model.epochs",
		"model.lr", "model.lr_scale", "model.weight_decay",
		"model.num_layers", "model.emb_dim", "model.dropout",
		"model.graph_pooling", "model.jk", "model.conv", "model.seed",
		"storage.backend", "storage.local_dir",
		"storage.minio.endpoint", "storage.minio.access_key_id",
		"storage.minio.secret_access_key", "storage.minio.use_ssl",
		"storage.minio.region", "storage.minio.bucket",
		"storage.minio.prefix", "storage.minio.cache_dir",
		"log.level", "log.format", "log.output_paths",
		"metrics.enabled", "metrics.addr", "metrics.path",
	} {
		v.SetDefault(key, "")
	}
}

// Load reads the YAML file at configPath, merges any MOLGNN_* environment
// variable overrides, applies defaults for unset fields, and validates the
// result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}

	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from MOLGNN_* environment variables,
// with no config file required. This is the preferred loading strategy for
// containerised deployments.
//
// Environment variable naming convention:
//
//	MOLGNN_<SECTION>_<FIELD>   e.g.  MOLGNN_STORAGE_BACKEND, MOLGNN_LOG_LEVEL
func LoadFromEnv() (*Config, error) {
	v := newViper()
	return unmarshalAndFinalize(v)
}

// unmarshalAndFinalize unmarshals viper state into a Config struct, applies
// defaults, and validates the result.
func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath for changes and invokes onChange with the newly
// parsed Config whenever the file is modified on disk. Intended for
// hot-reloading non-critical settings such as the log level; callers are
// responsible for applying only the safe subset of changes at runtime.
//
// Watch is non-blocking; it starts a background goroutine managed by viper.
// If the changed file fails to parse or validate, onChange is not called.
func Watch(configPath string, onChange func(*Config)) {
	v := newViper()
	v.SetConfigFile(configPath)

	// Initial read; callers should have called Load first.
	_ = v.ReadInConfig()

	v.WatchConfig()
	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			return
		}
		onChange(cfg)
	})
}

// MustLoad is a convenience wrapper around Load that panics on any error.
// Intended for main(), where a config-load failure is always fatal.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
