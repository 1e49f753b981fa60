package config

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultStorageBackend = "local"
	DefaultLocalDir       = "./checkpoints"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "molgnn-models"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsAddr = ":9102"
	DefaultMetricsPath = "/metrics"
)

// ApplyDefaults fills zero-value fields in cfg with well-known defaults. It
// must be called after unmarshalling raw config data and before Validate.
func ApplyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = DefaultStorageBackend
	}
	if cfg.Storage.LocalDir == "" {
		cfg.Storage.LocalDir = DefaultLocalDir
	}
	if cfg.Storage.MinIO.Endpoint == "" && cfg.Storage.Backend == "minio" {
		cfg.Storage.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.Storage.MinIO.Bucket == "" {
		cfg.Storage.MinIO.Bucket = DefaultMinIOBucket
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
}
