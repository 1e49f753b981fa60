package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
model:
  model_type: "contextpred"
  task: "classification"
  batch_size: 16
  epochs: 5
  lr: 0.001
storage:
  backend: "local"
  local_dir: "/tmp/molgnn-checkpoints"
log:
  level: "debug"
  format: "console"
metrics:
  enabled: true
  addr: ":9102"
`

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "contextpred", cfg.Model.ModelType)
	assert.Equal(t, 16, cfg.Model.BatchSize)
	assert.Equal(t, 5, cfg.Model.Epochs)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "/tmp/molgnn-checkpoints", cfg.Storage.LocalDir)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "model:\n  model_type: contextpred\n"))
	require.NoError(t, err)

	assert.Equal(t, DefaultStorageBackend, cfg.Storage.Backend)
	assert.Equal(t, DefaultLocalDir, cfg.Storage.LocalDir)
	assert.Equal(t, DefaultLogLevel, cfg.Log.Level)
	assert.Equal(t, DefaultLogFormat, cfg.Log.Format)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeTempConfig(t, "storage:\n  backend: ftp\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage backend")

	_, err = Load(writeTempConfig(t, "model:\n  epochs: -3\n"))
	require.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("MOLGNN_STORAGE_BACKEND", "local")
	t.Setenv("MOLGNN_STORAGE_LOCAL_DIR", "/var/lib/molgnn")
	t.Setenv("MOLGNN_LOG_LEVEL", "warn")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/molgnn", cfg.Storage.LocalDir)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("MOLGNN_LOG_LEVEL", "error")
	cfg, err := Load(writeTempConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
}

func TestValidateStorageBackends(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	require.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "minio"
	cfg.Storage.MinIO.Endpoint = ""
	require.Error(t, cfg.Validate())

	cfg.Storage.MinIO.Endpoint = "localhost:9000"
	require.NoError(t, cfg.Validate())
}

func TestValidateMetrics(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Metrics.Enabled = true
	cfg.Metrics.Addr = ""
	require.Error(t, cfg.Validate())
}
