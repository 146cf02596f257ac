package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Storage.Backend)
	assert.Equal(t, ":8080", cfg.Server.Listen)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ambar.yaml")
	data := []byte("storage:\n  backend: azure\n  connection_string: UseDevelopmentStorage=true\nserver:\n  listen: \":9090\"\nlogging:\n  format: text\n")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendAzure, cfg.Storage.Backend)
	assert.Equal(t, ":9090", cfg.Server.Listen)
	assert.Equal(t, "text", cfg.Logging.Format)
	// Unset keys keep their defaults.
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage: StorageConfig{Backend: BackendMemory},
			Server:  ServerConfig{Listen: ":8080"},
			Logging: LoggingConfig{Format: "json"},
		}
	}

	assert.NoError(t, valid().Validate())

	cfg := valid()
	cfg.Storage.Backend = "s3"
	assert.ErrorContains(t, cfg.Validate(), "unknown storage backend")

	cfg = valid()
	cfg.Storage.Backend = BackendAzure
	assert.ErrorContains(t, cfg.Validate(), "connection_string")

	cfg = valid()
	cfg.Server.Listen = ""
	assert.ErrorContains(t, cfg.Validate(), "listen")

	cfg = valid()
	cfg.Logging.Format = "xml"
	assert.ErrorContains(t, cfg.Validate(), "logging format")
}
