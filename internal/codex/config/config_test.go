package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":3400", cfg.ListenAddr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "bolt", cfg.Persist.Backend)
	assert.Equal(t, 5*time.Second, cfg.Persist.Timeout)
	assert.Contains(t, cfg.Index.Keys, "water_state")
	assert.Equal(t, 10, cfg.Traversal.MaxAncestorDepth)
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen_addr: ":9999"
log:
  level: debug
  json: true
index:
  keys: [realm, phase]
persistence:
  backend: neo4j
  uri: bolt://localhost:7687
  retry_attempts: 5
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, []string{"realm", "phase"}, cfg.Index.Keys)
	assert.Equal(t, "neo4j", cfg.Persist.Backend)
	assert.Equal(t, 5, cfg.Persist.RetryAttempts)
	// Untouched fields keep their defaults.
	assert.Equal(t, 10, cfg.Traversal.MaxFanout)
	assert.Equal(t, 5*time.Second, cfg.Persist.Timeout)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [broken"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := Default()
	cfg.ListenAddr = ":4500"
	require.NoError(t, Save(cfg, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
