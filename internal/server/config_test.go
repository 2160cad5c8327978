package server

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
server:
  name: my-hub
  transport: http
  address: ":9090"
store:
  backend: file
  path: /tmp/connections.json
audit:
  enabled: true
  capacity: 500
retest_on_start: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "my-hub", cfg.Server.Name)
	assert.Equal(t, "http", cfg.Server.Transport)
	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "/tmp/connections.json", cfg.Store.Path)
	assert.True(t, cfg.Audit.Enabled)
	assert.Equal(t, 500, cfg.Audit.Capacity)
	assert.True(t, cfg.RetestOnStart)

	// Unset fields pick up defaults.
	assert.Equal(t, Version, cfg.Server.Version)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `{}`))
	require.NoError(t, err)
	assert.Equal(t, "mcp-connections-hub", cfg.Server.Name)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.False(t, cfg.RetestOnStart)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server: [not a map"))
		assert.Error(t, err)
	})

	t.Run("unknown transport", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server:\n  transport: carrier-pigeon\n"))
		assert.ErrorContains(t, err, "unknown transport")
	})

	t.Run("file backend needs path", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "store:\n  backend: file\n"))
		assert.ErrorContains(t, err, "requires a path")
	})

	t.Run("postgres backend needs dsn", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "store:\n  backend: postgres\n"))
		assert.ErrorContains(t, err, "requires a dsn")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "store:\n  backend: etcd\n"))
		assert.ErrorContains(t, err, "unknown store backend")
	})
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.True(t, cfg.Audit.Enabled)
	assert.True(t, cfg.RetestOnStart)
}
