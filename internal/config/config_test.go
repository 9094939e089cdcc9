package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsOnEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "xkoj", cfg.Server.ServerName)
	assert.True(t, cfg.Server.EnableKeepAlive)
	assert.Equal(t, 60, cfg.Server.KeepAliveTimeout)
	assert.Equal(t, 1<<20, cfg.Server.MaxRequestSize)
	assert.Equal(t, 8192, cfg.Server.MaxHeaderSize)
	assert.True(t, cfg.Server.EnableLogging)
}

func TestLoadJSONOverridesWireFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {
			"host": "127.0.0.1", "port": 9090, "timeout_seconds": 30,
			"server_name": "custom-server", "enable_keep_alive": false,
			"keep_alive_timeout": 15, "max_request_size": 2048,
			"max_header_size": 4096, "enable_logging": false
		}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom-server", cfg.Server.ServerName)
	assert.False(t, cfg.Server.EnableKeepAlive)
	assert.Equal(t, 15*time.Second, cfg.KeepAliveTimeoutDuration())
	assert.Equal(t, 2048, cfg.Server.MaxRequestSize)
	assert.Equal(t, 4096, cfg.Server.MaxHeaderSize)
	assert.False(t, cfg.Server.EnableLogging)
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"host": "127.0.0.1", "port": 9090, "max_connections": 64, "timeout_seconds": 30},
		"static": [{"prefix": "/assets", "root": "./public"}],
		"rate_limit": {"enabled": true, "max_requests": 10, "window_seconds": 60}
	}`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 64, cfg.Server.MaxConnections)
	require.Len(t, cfg.Static, 1)
	assert.Equal(t, "/assets", cfg.Static[0].Prefix)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.MaxRequests)
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  host: 10.0.0.1\n  port: 7070\n  timeout_seconds: 15\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestLoadRejectsMissingPort(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"host": "127.0.0.1", "port": 0, "timeout_seconds": 5}}`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.conf")
	require.NoError(t, os.WriteFile(path, []byte("host=127.0.0.1"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"host": "127.0.0.1", "port": 9000, "timeout_seconds": 5}}`), 0o644))

	reloaded := make(chan *ServerConfig, 1)
	stop := make(chan struct{})
	defer close(stop)

	require.NoError(t, Watch(path, stop, func(cfg *ServerConfig) {
		reloaded <- cfg
	}, nil))

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"host": "127.0.0.1", "port": 9100, "timeout_seconds": 5}}`), 0o644))

	select {
	case cfg := <-reloaded:
		assert.Equal(t, 9100, cfg.Server.Port)
	case <-time.After(2 * time.Second):
		t.Fatal("config reload was not observed")
	}
}
