package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettingsFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoader_JSONLayer(t *testing.T) {
	path := writeSettingsFile(t, "settings.json", `{
		"endpoints": {"candidates": ["nats://node1:4222", "nats://node2:4222"]},
		"connection": {"username": "reader", "reconnect_wait": "5s"},
		"read": {"page_size": 200}
	}`)

	settings, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"nats://node1:4222", "nats://node2:4222"}, settings.Endpoints.Candidates)
	assert.Equal(t, "reader", settings.Connection.Username)
	assert.Equal(t, 5*time.Second, settings.Connection.ReconnectWait)
	assert.Equal(t, 200, settings.Read.PageSize)
	// Untouched fields keep their defaults
	assert.Equal(t, "ledgerstream", settings.Connection.Name)
	assert.True(t, settings.Discovery.Enabled)
}

func TestLoader_YAMLLayer(t *testing.T) {
	path := writeSettingsFile(t, "settings.yaml", `
endpoints:
  candidates:
    - nats://node1:4222
connection:
  name: yaml-session
  request_timeout: 750ms
keepalive:
  interval: 3s
`)

	settings, err := NewLoader().LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml-session", settings.Connection.Name)
	assert.Equal(t, 750*time.Millisecond, settings.Connection.RequestTimeout)
	assert.Equal(t, 3*time.Second, settings.Keepalive.Interval)
	assert.Equal(t, 10*time.Second, settings.Keepalive.Timeout, "default preserved")
}

func TestLoader_LayerPrecedence(t *testing.T) {
	base := writeSettingsFile(t, "base.json", `{
		"endpoints": {"candidates": ["nats://base:4222"]},
		"read": {"page_size": 100, "resolve_links": true}
	}`)
	override := writeSettingsFile(t, "override.yaml", `
read:
  page_size: 25
`)

	loader := NewLoader()
	loader.AddLayer(base)
	loader.AddLayer(override)

	settings, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 25, settings.Read.PageSize, "later layer wins")
	assert.True(t, settings.Read.ResolveLinks, "untouched field survives the later layer")
	assert.Equal(t, []string{"nats://base:4222"}, settings.Endpoints.Candidates)
}

func TestLoader_EnvOverrides(t *testing.T) {
	t.Setenv("LEDGERSTREAM_ENDPOINTS", "nats://env1:4222,nats://env2:4222")
	t.Setenv("LEDGERSTREAM_USERNAME", "env-reader")
	t.Setenv("LEDGERSTREAM_LOG_LEVEL", "debug")

	settings, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"nats://env1:4222", "nats://env2:4222"}, settings.Endpoints.Candidates)
	assert.Equal(t, "env-reader", settings.Connection.Username)
	assert.Equal(t, "debug", settings.Logging.Level)
}

func TestLoader_SchemaRejection(t *testing.T) {
	path := writeSettingsFile(t, "settings.json", `{
		"read": {"page_size": "many"}
	}`)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")
}

func TestLoader_UnknownFieldRejected(t *testing.T) {
	path := writeSettingsFile(t, "settings.json", `{
		"transport": {"urls": ["nats://localhost:4222"]}
	}`)

	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
}

func TestLoader_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
}

func TestLoader_RejectsUnsupportedExtension(t *testing.T) {
	path := writeSettingsFile(t, "settings.toml", `page_size = 10`)
	_, err := NewLoader().LoadFile(path)
	require.Error(t, err)
}

func TestLoader_ValidationDisabled(t *testing.T) {
	// Structurally valid but semantically wrong settings pass when
	// validation is off
	path := writeSettingsFile(t, "settings.json", `{
		"endpoints": {"candidates": ["nats://localhost:4222"]},
		"discovery": {"enabled": true, "max_attempts": 1}
	}`)

	loader := NewLoader()
	loader.EnableValidation(false)
	settings, err := loader.LoadFile(path)
	require.NoError(t, err)
	assert.NotNil(t, settings)
}

func TestSettings_SaveToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.json")

	settings := DefaultSettings()
	settings.Connection.Name = "saved-session"
	require.NoError(t, settings.SaveToFile(path))

	loaded, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "saved-session", loaded.Connection.Name)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}
